package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/celsowm/adorn-api/api/contract"
	"github.com/celsowm/adorn-api/api/contract/entity"
	"github.com/celsowm/adorn-api/internal/config"
)

// entityCmd introspects database tables and prints the JSON schemas
// that 'adorn build' would hoist for them. Tables come from the
// command line, falling back to the [db] tables setting.
func entityCmd(args []string) {
	flags := flag.NewFlagSet("entity", flag.ExitOnError)
	dir := flags.String("dir", "", "project directory (default: current directory)")
	dbURL := flags.String("db", "", "database URL (default: [db] url)")
	_ = flags.Parse(args)

	cfg, err := config.Load(*dir)
	if err != nil {
		fatal(err)
	}

	url := cfg.DB.URL
	if *dbURL != "" {
		url = *dbURL
	}
	if url == "" {
		fatal(fmt.Errorf("no database configured: set [db] url in %s or pass --db", config.ConfigFilename))
	}

	tables := flags.Args()
	if len(tables) == 0 {
		tables = cfg.DB.Tables
	}
	if len(tables) == 0 {
		fatal(fmt.Errorf("no tables given: pass table names or set [db] tables in %s", config.ConfigFilename))
	}

	ctx := context.Background()
	db, dialect, err := entity.Open(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	reg := contract.NewRegistry()
	tr := contract.NewTranslator(reg, nil)
	for _, table := range tables {
		t, err := entity.Introspect(ctx, db, dialect, table)
		if err != nil {
			fatal(err)
		}
		if _, ok := tr.Translate(t.TypeExpr()); !ok {
			fatal(fmt.Errorf("table %q produced no schema", table))
		}
	}

	components := make(map[string]*contract.OpenAPISchema)
	for name, node := range reg.Components() {
		components[name] = contract.RenderSchema(node)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(components); err != nil {
		fatal(err)
	}
}
