package main

import "fmt"

const version = "0.3.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("tablemapper version %s\n", version)
	fmt.Println("Schema-driven table mapper for SQLite, PostgreSQL, MySQL and MS SQL")
}

// PrintHelp prints comprehensive help information
func PrintHelp() {
	fmt.Println("tablemapper - CRUD over any table without model code")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  tablemapper [command] [options]")
	fmt.Println()

	fmt.Println("COMMANDS:")
	fmt.Println("    --list                     List all tables in database")
	fmt.Println("    --schema <table>           Show columns and declared types")
	fmt.Println("    --get <table> --id <id>    Fetch one row by id")
	fmt.Println("    --select <table>           Select rows (filter with --where)")
	fmt.Println("    --insert <table>           Insert row from --data")
	fmt.Println("    --update <table> --id <id> Update row from --data")
	fmt.Println("    --delete <table> --id <id> Delete row")
	fmt.Println("    --export-xlsx <table>      Export table to XLSX")
	fmt.Println("    --import-xlsx <file>       Import XLSX rows into --table")
	fmt.Println("    --create-config <type>     Write sample config (sqlite, postgres, mysql, mssql)")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println("    --config <file>            Configuration file (default: config.yaml)")
	fmt.Println("    --data <json>              Column values as a JSON object")
	fmt.Println("    --fields <a,b>             Only take these columns from --data")
	fmt.Println("    --where <col=val,...>      Equality filter for --select")
	fmt.Println("    --output <file>            Output file")
	fmt.Println("    --sheet <name>             XLSX sheet name")
	fmt.Println("    --log-level <level>        debug prints the generated SQL")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  tablemapper --create-config sqlite")
	fmt.Println("  tablemapper --insert users --data '{\"id\":1,\"name\":\"Ann\",\"score\":\"4.5\"}'")
	fmt.Println("  tablemapper --select users --where name=Ann")
	fmt.Println("  tablemapper --update users --id 1 --data '{\"score\":5}'")
	fmt.Println("  tablemapper --export-xlsx users --output users.xlsx")
	fmt.Println("  tablemapper --import-xlsx users.xlsx --table users")
	fmt.Println()

	fmt.Println("ENVIRONMENT:")
	fmt.Println("  TABLEMAPPER_DSN            Connection string when database.dsn is empty")
}
