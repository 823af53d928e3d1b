package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dkozlov/tableprimer/databases"
)

// SampleHandler creates a handler for the sample_table tool
func SampleHandler(connector databases.Database) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
		}

		limit := 10

		results, err := connector.Sample(ctx, table, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Sample failed: %v", err)), nil
		}

		return jsonResult(results)
	}
}

// QueryHandler creates a handler for the query_database tool
func QueryHandler(connector databases.Database) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing query parameter: %v", err)), nil
		}

		results, err := connector.Query(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
		}

		return jsonResult(results)
	}
}

// ListTablesHandler creates a handler for the list_tables tool
func ListTablesHandler(connector databases.Database) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tables, err := connector.ListTables(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("List failed: %v", err)), nil
		}

		return jsonResult(tables)
	}
}

// ReflectHandler creates a handler for the reflect_table tool
func ReflectHandler(connector databases.Database) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
		}

		descriptor, err := connector.Reflect(ctx, table)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Reflect failed: %v", err)), nil
		}

		return jsonResult(descriptor)
	}
}

// DescribeHandler creates a handler for the describe_table tool
func DescribeHandler(connector databases.Database) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := request.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing table parameter: %v", err)), nil
		}

		description, err := connector.DescribeTable(ctx, table)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Describe failed: %v", err)), nil
		}

		return jsonResult(description)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
