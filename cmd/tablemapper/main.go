// tablemapper is a command-line tool for CRUD over database tables through pkg/mapper.
//
// Usage:
//
//	tablemapper [--config config.yaml] --select users --where name=Ann
//
// See --help for the full command list.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/mssql"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/mysql"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/postgres"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/sqlite"
	"github.com/ruslano69/tablemapper/pkg/config"
)

func main() {
	ctx := context.Background()

	// Parse flags
	flags := ParseFlags()

	// Handle version
	if *flags.Version {
		PrintVersion()
		os.Exit(0)
	}

	// Handle help
	if *flags.Help {
		PrintHelp()
		os.Exit(0)
	}

	// Handle config creation
	if *flags.CreateConfig != "" {
		createConfigTemplate(*flags.CreateConfig, *flags.Output)
		return
	}

	// Load configuration
	cfg, err := config.Load(*flags.Config)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}

	level := cfg.LogLevel
	if *flags.LogLevel != "" {
		level = *flags.LogLevel
	}
	setupLogger(level)

	adapter, err := adapters.New(ctx, cfg.Database.AdapterConfig())
	if err != nil {
		fatal("Failed to connect: %v", err)
	}
	defer adapter.Close(ctx)

	r := &runner{adapter: adapter, out: os.Stdout, log: log.Logger}
	fields := parseFields(*flags.Fields)

	// Route commands
	var cmdErr error
	switch {
	case *flags.List:
		cmdErr = r.ListTables(ctx)
	case *flags.Schema != "":
		cmdErr = r.ShowSchema(ctx, *flags.Schema)
	case *flags.Get != "":
		cmdErr = r.Get(ctx, *flags.Get, *flags.ID)
	case *flags.Select != "":
		cmdErr = r.Select(ctx, *flags.Select, *flags.Where)
	case *flags.Insert != "":
		cmdErr = r.Insert(ctx, *flags.Insert, *flags.Data, fields)
	case *flags.Update != "":
		cmdErr = r.Update(ctx, *flags.Update, *flags.ID, *flags.Data, fields)
	case *flags.Delete != "":
		cmdErr = r.Delete(ctx, *flags.Delete, *flags.ID)
	case *flags.ExportXLSX != "":
		cmdErr = r.ExportXLSX(ctx, *flags.ExportXLSX, *flags.Output, *flags.Sheet)
	case *flags.ImportXLSX != "":
		cmdErr = r.ImportXLSX(ctx, *flags.ImportXLSX, *flags.Table, *flags.Sheet)
	default:
		PrintHelp()
		adapter.Close(ctx)
		os.Exit(1)
	}

	if cmdErr != nil {
		adapter.Close(ctx)
		fatal("%v", cmdErr)
	}
}

// setupLogger configures the global zerolog logger for console output
func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// createConfigTemplate writes a sample config for dbType
func createConfigTemplate(dbType, output string) {
	if !adapters.IsRegistered(config.Sample(dbType).Database.AdapterType()) {
		fatal("Unknown database type %q (supported: %v)", dbType, adapters.Types())
	}

	if output == "" {
		output = "config.yaml"
	}
	if err := config.Save(output, config.Sample(dbType)); err != nil {
		fatal("Failed to create config: %v", err)
	}
	fmt.Printf("Created sample %s config: %s\n", dbType, output)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
