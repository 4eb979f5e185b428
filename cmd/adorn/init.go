package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/celsowm/adorn-api/internal/config"
)

const starterConfig = `[project]
; Package patterns to scan for controllers.
source = ./...
; Directory where the generated artifacts are written.
output = contract

[api]
title = My API
version = 0.1.0
; validation: none | jsonschema-runtime | precompiled
validation = jsonschema-runtime
; provider: native | jsonschema
provider = native

[serve]
addr = :8080
; bearer_secret =       ; or set ADORN_BEARER_SECRET

[db]
; url =                 ; or set DATABASE_URL
; tables =
`

func initCmd(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dir := fs.String("dir", "", "project directory (default: current directory)")
	_ = fs.Parse(args)

	target := *dir
	if target == "" {
		wd, err := os.Getwd()
		if err != nil {
			fatal(err)
		}
		target = wd
	}

	path := filepath.Join(target, config.ConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fatal(fmt.Errorf("%s already exists", path))
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
		fatal(err)
	}
	fmt.Printf("created %s\n", path)
	fmt.Println("Edit it, then run 'adorn build'.")
}
