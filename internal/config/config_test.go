package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for missing adorn.ini")
	}

	if !strings.Contains(err.Error(), "adorn.ini not found") {
		t.Errorf("error should mention 'adorn.ini not found', got: %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "adorn.ini", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should have defaults
	if len(cfg.Project.Source) != 1 || cfg.Project.Source[0] != "./..." {
		t.Errorf("expected default source './...', got %v", cfg.Project.Source)
	}
	if cfg.Project.Output != "contract" {
		t.Errorf("expected default output 'contract', got %q", cfg.Project.Output)
	}
	if cfg.API.Validation != "jsonschema-runtime" {
		t.Errorf("expected default validation 'jsonschema-runtime', got %q", cfg.API.Validation)
	}
	if cfg.API.Provider != "native" {
		t.Errorf("expected default provider 'native', got %q", cfg.API.Provider)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("expected default addr ':8080', got %q", cfg.Serve.Addr)
	}
}

func TestLoad_AllSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "adorn.ini", `
[project]
source = ./api/..., ./handlers
output = gen/contract

[api]
title = Petstore
version = 1.2.3
description = A demo API
servers = https://api.example.com, https://staging.example.com
validation = precompiled
provider = jsonschema

[serve]
addr = 127.0.0.1:9090
bearer_secret = hunter2

[db]
url = postgres://localhost/pets
tables = pets, owners
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Project.Source) != 2 || cfg.Project.Source[0] != "./api/..." {
		t.Errorf("unexpected source: %v", cfg.Project.Source)
	}
	if cfg.Project.Output != "gen/contract" {
		t.Errorf("unexpected output: %q", cfg.Project.Output)
	}
	if cfg.API.Title != "Petstore" || cfg.API.Version != "1.2.3" {
		t.Errorf("unexpected api info: %q %q", cfg.API.Title, cfg.API.Version)
	}
	if len(cfg.API.Servers) != 2 {
		t.Errorf("expected 2 servers, got %v", cfg.API.Servers)
	}
	if cfg.API.Validation != "precompiled" {
		t.Errorf("unexpected validation: %q", cfg.API.Validation)
	}
	if cfg.API.Provider != "jsonschema" {
		t.Errorf("unexpected provider: %q", cfg.API.Provider)
	}
	if cfg.Serve.Addr != "127.0.0.1:9090" {
		t.Errorf("unexpected addr: %q", cfg.Serve.Addr)
	}
	if cfg.Serve.BearerSecret != "hunter2" {
		t.Errorf("unexpected bearer secret: %q", cfg.Serve.BearerSecret)
	}
	if cfg.DB.URL != "postgres://localhost/pets" {
		t.Errorf("unexpected db url: %q", cfg.DB.URL)
	}
	if len(cfg.DB.Tables) != 2 || cfg.DB.Tables[1] != "owners" {
		t.Errorf("unexpected tables: %v", cfg.DB.Tables)
	}
}

func TestLoad_InvalidValidation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "adorn.ini", `
[api]
validation = sometimes
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for invalid validation mode")
	}
	if !strings.Contains(err.Error(), "api.validation") {
		t.Errorf("error should name api.validation, got: %v", err)
	}
}

func TestLoad_BearerSecretFromEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "adorn.ini", `
[serve]
bearer_secret = from-file
`)
	t.Setenv("ADORN_BEARER_SECRET", "from-env")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Serve.BearerSecret != "from-env" {
		t.Errorf("environment should override file, got %q", cfg.Serve.BearerSecret)
	}
}

func TestOutputDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "adorn.ini", `
[project]
output = gen
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(dir, "gen")
	if cfg.OutputDir() != want {
		t.Errorf("expected %q, got %q", want, cfg.OutputDir())
	}
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "adorn.ini", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files := cfg.ConfigFiles()
	if len(files) != 2 {
		t.Fatalf("expected 2 config files, got %v", files)
	}
	if filepath.Base(files[0]) != "adorn.ini" || filepath.Base(files[1]) != "go.mod" {
		t.Errorf("unexpected config files: %v", files)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
