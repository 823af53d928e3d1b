package mcp

import (
	goMCP "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dkozlov/tableprimer/databases"
	"github.com/dkozlov/tableprimer/handlers"
)

func RegisterTools(s *server.MCPServer, connector databases.Database) {
	// Sample tool
	sampleTool := goMCP.NewTool("sample_table",
		goMCP.WithDescription("Get sample data from a specific table"),
		goMCP.WithString("table",
			goMCP.Required(),
			goMCP.Description("Name of the table to sample"),
		),
		goMCP.WithNumber("limit",
			goMCP.Description("Number of rows to return (default: 10)"),
		),
	)

	// Query tool
	queryTool := goMCP.NewTool("query_database",
		goMCP.WithDescription("Execute a read-only SQL query on the database"),
		goMCP.WithString("query",
			goMCP.Required(),
			goMCP.Description("SQL query to execute (SELECT statements only)"),
		),
	)

	// List tool
	listTool := goMCP.NewTool("list_tables",
		goMCP.WithDescription("List the user tables in the connected database"),
	)

	// Reflect tool
	reflectTool := goMCP.NewTool("reflect_table",
		goMCP.WithDescription("Reflect a table's current structure from the engine catalog as a descriptor"),
		goMCP.WithString("table",
			goMCP.Required(),
			goMCP.Description("Name of the table to reflect"),
		),
	)

	// Describe tool
	describeTool := goMCP.NewTool("describe_table",
		goMCP.WithDescription("Describe a table: columns, row count, primary keys, indexes, sample rows"),
		goMCP.WithString("table",
			goMCP.Required(),
			goMCP.Description("Name of the table to describe"),
		),
	)

	s.AddTool(sampleTool, handlers.SampleHandler(connector))
	s.AddTool(queryTool, handlers.QueryHandler(connector))
	s.AddTool(listTool, handlers.ListTablesHandler(connector))
	s.AddTool(reflectTool, handlers.ReflectHandler(connector))
	s.AddTool(describeTool, handlers.DescribeHandler(connector))
}
