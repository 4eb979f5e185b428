// Package config provides unified configuration loading from adorn.ini.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/celsowm/adorn-api/inifile"
)

// ConfigFilename is the name of the unified config file.
const ConfigFilename = "adorn.ini"

// Config holds the complete configuration from adorn.ini.
type Config struct {
	// ConfigDir is the directory containing adorn.ini (the project root).
	ConfigDir string

	Project ProjectConfig
	API     APIConfig
	Serve   ServeConfig
	DB      DBConfig
}

// ProjectConfig holds project-level settings from the [project] section.
type ProjectConfig struct {
	// Source lists the package patterns the scanner reads.
	Source []string
	// Output is the artifacts directory, relative to the project root.
	Output string
}

// APIConfig holds build settings from the [api] section.
type APIConfig struct {
	Title       string
	Version     string
	Description string
	Servers     []string

	// Validation is "none", "jsonschema-runtime", or "precompiled".
	Validation string
	// Provider picks the validation backend: "native" or "jsonschema".
	Provider string
}

// ServeConfig holds runtime settings from the [serve] section.
type ServeConfig struct {
	Addr string
	// BearerSecret signs bearer tokens. The ADORN_BEARER_SECRET
	// environment variable overrides the file value so secrets can stay
	// out of the project tree.
	BearerSecret string
}

// DBConfig holds entity introspection settings from the [db] section.
type DBConfig struct {
	URL    string
	Tables []string
}

// Load reads adorn.ini from the given directory (or CWD if empty).
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	iniPath := filepath.Join(dir, ConfigFilename)
	if _, err := os.Stat(iniPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s not found in %s\n"+
			"  Hint: run 'adorn init' to create a new project, or ensure you're in the project root directory",
			ConfigFilename, dir)
	}

	f, err := inifile.ParseFile(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFilename, err)
	}

	cfg := &Config{
		ConfigDir: dir,
		Project: ProjectConfig{
			Source: []string{"./..."},
			Output: "contract",
		},
		API: APIConfig{
			Version:    "0.0.0",
			Validation: "jsonschema-runtime",
			Provider:   "native",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}

	if v := f.Get("project", "source"); v != "" {
		cfg.Project.Source = splitList(v)
	}
	if v := f.Get("project", "output"); v != "" {
		cfg.Project.Output = v
	}

	if v := f.Get("api", "title"); v != "" {
		cfg.API.Title = v
	}
	if v := f.Get("api", "version"); v != "" {
		cfg.API.Version = v
	}
	if v := f.Get("api", "description"); v != "" {
		cfg.API.Description = v
	}
	if v := f.Get("api", "servers"); v != "" {
		cfg.API.Servers = splitList(v)
	}
	if v := f.Get("api", "validation"); v != "" {
		switch v {
		case "none", "jsonschema-runtime", "precompiled":
			cfg.API.Validation = v
		default:
			return nil, fmt.Errorf("api.validation must be none, jsonschema-runtime, or precompiled, got %q", v)
		}
	}
	if v := f.Get("api", "provider"); v != "" {
		switch v {
		case "native", "jsonschema":
			cfg.API.Provider = v
		default:
			return nil, fmt.Errorf("api.provider must be native or jsonschema, got %q", v)
		}
	}

	if v := f.Get("serve", "addr"); v != "" {
		cfg.Serve.Addr = v
	}
	cfg.Serve.BearerSecret = f.Get("serve", "bearer_secret")
	if v := os.Getenv("ADORN_BEARER_SECRET"); v != "" {
		cfg.Serve.BearerSecret = v
	}

	cfg.DB.URL = f.Get("db", "url")
	if cfg.DB.URL == "" {
		cfg.DB.URL = os.Getenv("DATABASE_URL")
	}
	if v := f.Get("db", "tables"); v != "" {
		cfg.DB.Tables = splitList(v)
	}

	return cfg, nil
}

// OutputDir is the absolute artifacts directory.
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.Project.Output) {
		return c.Project.Output
	}
	return filepath.Join(c.ConfigDir, c.Project.Output)
}

// ConfigFiles lists the files whose changes invalidate the build cache.
func (c *Config) ConfigFiles() []string {
	return []string{
		filepath.Join(c.ConfigDir, ConfigFilename),
		filepath.Join(c.ConfigDir, "go.mod"),
	}
}

// Lockfile is the module lockfile path, or "" when absent.
func (c *Config) Lockfile() string {
	path := filepath.Join(c.ConfigDir, "go.sum")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
