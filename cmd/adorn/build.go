package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/celsowm/adorn-api/api/contract"
	"github.com/celsowm/adorn-api/api/contract/entity"
	"github.com/celsowm/adorn-api/api/contract/jsv"
	"github.com/celsowm/adorn-api/api/contract/scan"
	"github.com/celsowm/adorn-api/internal/config"
	"github.com/celsowm/adorn-api/logging"
)

func buildCmd(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	dir := fs.String("dir", "", "project directory (default: current directory)")
	force := fs.Bool("force", false, "rebuild even when the cache is fresh")
	verbose := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)

	cfg, err := config.Load(*dir)
	if err != nil {
		fatal(err)
	}
	if err := runBuild(cfg, *force, pickLogger(*verbose)); err != nil {
		fatal(err)
	}
}

func pickLogger(verbose bool) *slog.Logger {
	if verbose {
		return logging.DevLogger
	}
	return logging.ProdLogger
}

// runBuild is the full build pipeline: scan, translate, emit, stamp.
// It is shared by the build and watch commands.
func runBuild(cfg *config.Config, force bool, logger *slog.Logger) error {
	out := cfg.OutputDir()
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if !force {
		if cache := contract.LoadCache(out, logger); cache != nil {
			if fresh, _ := cache.Fresh(); fresh {
				logger.Info("artifacts are up to date", "dir", out)
				return nil
			}
		}
	}

	res, err := scan.Scan(scan.Config{
		Dir:      cfg.ConfigDir,
		Patterns: cfg.Project.Source,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if len(res.Controllers) == 0 {
		return fmt.Errorf("no controllers found in %v", cfg.Project.Source)
	}

	reg := contract.NewRegistry()
	if err := addEntitySchemas(cfg, reg, logger); err != nil {
		return err
	}

	validatorsFile := ""
	if cfg.API.Validation != "none" {
		validatorsFile = "./" + contract.ValidatorsFilename
	}
	m, err := contract.BuildManifest(res.Controllers, reg, contract.BuildOptions{
		ValidationMode: cfg.API.Validation,
		SchemaFile:     "./" + contract.OpenAPIFilename,
		ValidatorsFile: validatorsFile,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	doc, err := contract.BuildOpenAPI(m, reg, contract.OpenAPIInfo{
		Title:       cfg.API.Title,
		Version:     cfg.API.Version,
		Description: cfg.API.Description,
		Servers:     cfg.API.Servers,
	})
	if err != nil {
		return err
	}

	if err := contract.WriteManifest(out, m); err != nil {
		return err
	}
	if err := contract.WriteOpenAPI(out, doc); err != nil {
		return err
	}

	if cfg.API.Validation != "none" {
		set := contract.EmitValidators(m, reg, provider(cfg), logger)
		wrote, err := contract.WriteValidators(out, set)
		if err != nil {
			return err
		}
		if !wrote {
			logger.Info("validators unchanged", "hash", set.Hash)
		}
	}

	cache := contract.SnapshotCache(cfg.ConfigFiles(), cfg.Lockfile(), res.Inputs)
	if err := contract.WriteCache(out, cache); err != nil {
		return err
	}

	logger.Info("build complete",
		"controllers", len(res.Controllers),
		"operations", len(m.Operations()),
		"schemas", len(reg.Names()),
		"warnings", len(res.Warnings),
		"dir", out,
	)
	return nil
}

// addEntitySchemas introspects the configured tables and hoists their
// derived schemas into the component registry.
func addEntitySchemas(cfg *config.Config, reg *contract.Registry, logger *slog.Logger) error {
	if cfg.DB.URL == "" || len(cfg.DB.Tables) == 0 {
		return nil
	}

	ctx := context.Background()
	db, dialect, err := entity.Open(ctx, cfg.DB.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	tr := contract.NewTranslator(reg, logger)
	for _, table := range cfg.DB.Tables {
		t, err := entity.Introspect(ctx, db, dialect, table)
		if err != nil {
			return err
		}
		if _, ok := tr.Translate(t.TypeExpr()); !ok {
			return fmt.Errorf("table %q produced no schema", table)
		}
		logger.Info("entity schema added", "table", table, "dialect", dialect)
	}
	return nil
}

func provider(cfg *config.Config) contract.SchemaProvider {
	if cfg.API.Provider == "jsonschema" {
		return jsv.Provider{}
	}
	return contract.NativeProvider{}
}

func cleanCmd(args []string) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	dir := fs.String("dir", "", "project directory (default: current directory)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*dir)
	if err != nil {
		fatal(err)
	}

	out := cfg.OutputDir()
	for _, name := range []string{contract.ManifestFilename, contract.OpenAPIFilename, contract.ValidatorsFilename} {
		path := out + string(os.PathSeparator) + name
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			fatal(err)
		}
	}
	if err := contract.ClearCache(out); err != nil {
		fatal(err)
	}
	fmt.Printf("cleaned %s\n", out)
}
