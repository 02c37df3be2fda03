package main

import "flag"

// Flags holds all command-line flags
type Flags struct {
	// Commands
	List       *bool
	Schema     *string
	Get        *string
	Select     *string
	Insert     *string
	Update     *string
	Delete     *string
	ExportXLSX *string
	ImportXLSX *string

	// Record input
	ID     *string
	Data   *string
	Fields *string
	Where  *string

	// Options
	Config   *string
	Output   *string
	Table    *string
	Sheet    *string
	LogLevel *string

	// Config Creation
	CreateConfig *string

	// Misc
	Version *bool
	Help    *bool
}

// ParseFlags defines and parses all command-line flags
func ParseFlags() *Flags {
	f := &Flags{}

	// Commands
	f.List = flag.Bool("list", false, "List all tables in database")
	f.Schema = flag.String("schema", "", "Show introspected columns of a table (table name)")
	f.Get = flag.String("get", "", "Fetch one row by id (table name, use with --id)")
	f.Select = flag.String("select", "", "Select rows by equality filter (table name, use with --where)")
	f.Insert = flag.String("insert", "", "Insert a row built from --data (table name)")
	f.Update = flag.String("update", "", "Update row --id with values from --data (table name)")
	f.Delete = flag.String("delete", "", "Delete row by id (table name, use with --id)")
	f.ExportXLSX = flag.String("export-xlsx", "", "Export table to XLSX (table name)")
	f.ImportXLSX = flag.String("import-xlsx", "", "Import XLSX file into --table (file path)")

	// Record input
	f.ID = flag.String("id", "", "Row id for --get, --update, --delete")
	f.Data = flag.String("data", "", "JSON object with column values, e.g. '{\"name\":\"Ann\"}'")
	f.Fields = flag.String("fields", "", "Restrict --data to these columns (comma-separated)")
	f.Where = flag.String("where", "", "Equality filter: col=value,col2=value")

	// Options
	f.Config = flag.String("config", "config.yaml", "Configuration file path")
	f.Output = flag.String("output", "", "Output file path (default: <table>.xlsx or config.yaml)")
	f.Table = flag.String("table", "", "Target table for --import-xlsx")
	f.Sheet = flag.String("sheet", "", "Excel sheet name (export: table name, import: first sheet)")
	f.LogLevel = flag.String("log-level", "", "Log level override: debug, info, warn, error")

	// Config Creation
	f.CreateConfig = flag.String("create-config", "", "Create sample config file: sqlite, postgres, mysql, mssql")

	// Misc
	f.Version = flag.Bool("version", false, "Show version information")
	f.Help = flag.Bool("help", false, "Show detailed help with examples")

	flag.Parse()

	return f
}
