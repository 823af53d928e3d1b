package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/dkozlov/tableprimer/config"
	"github.com/dkozlov/tableprimer/databases"
	"github.com/dkozlov/tableprimer/mcp"
	"github.com/dkozlov/tableprimer/tour"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "tableprimer",
		Short: "A guided tour of table descriptors, copy-rename migration, and reflection on an embedded SQL engine",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	tourCmd := &cobra.Command{
		Use:   "tour",
		Short: "Run the walkthrough from start to finish",
		RunE:  runTour,
	}

	reflectCmd := &cobra.Command{
		Use:   "reflect <table>",
		Short: "Reflect a table's structure from the live catalog and print the descriptor",
		Args:  cobra.ExactArgs(1),
		RunE:  runReflect,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the connected database as MCP inspection tools over stdio",
		RunE:  runServe,
	}

	rootCmd.AddCommand(tourCmd, reflectCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openDatabase loads the config and opens the connector it describes. A
// missing config file falls back to the in-memory sqlite defaults so the
// tour runs with zero setup.
func openDatabase() (databases.Database, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
		slog.Info("no config file, using in-memory sqlite", "path", configPath)
	}

	connStr, err := cfg.Database.GetConnectionString()
	if err != nil {
		return nil, err
	}

	db, err := databases.NewConnector(cfg.Database.Dialect, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	if cfg.Database.Echo {
		db = databases.WithEcho(db, slog.Default())
	}
	return db, nil
}

func runTour(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	return tour.New(db).Run(cmd.Context())
}

func runReflect(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	descriptor, err := db.Reflect(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonData))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	s := server.NewMCPServer(
		"tableprimer",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	mcp.RegisterTools(s, db)
	slog.Info("serving MCP tools over stdio")

	return server.ServeStdio(s)
}
