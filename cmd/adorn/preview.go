package main

import (
	"flag"
	"net/http"
	"path/filepath"

	"github.com/celsowm/adorn-api/api/contract"
	"github.com/celsowm/adorn-api/api/contract/serve"
	"github.com/celsowm/adorn-api/internal/config"
	"github.com/celsowm/adorn-api/logging"
)

// previewCmd serves the generated artifacts over HTTP so they can be
// inspected in a browser or fed to OpenAPI tooling. Artifacts are
// reloaded automatically when the manifest on disk changes.
func previewCmd(args []string) {
	flags := flag.NewFlagSet("preview", flag.ExitOnError)
	dir := flags.String("dir", "", "project directory (default: current directory)")
	addr := flags.String("addr", "", "listen address (default: [serve] addr)")
	verbose := flags.Bool("v", false, "verbose output")
	_ = flags.Parse(args)

	cfg, err := config.Load(*dir)
	if err != nil {
		fatal(err)
	}
	logger := pickLogger(*verbose)

	out := cfg.OutputDir()
	cache := contract.NewArtifactCache(provider(cfg), logger)
	if _, err := cache.Load(out); err != nil {
		fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /"+contract.OpenAPIFilename, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(out, contract.OpenAPIFilename))
	})
	mux.HandleFunc("GET /"+contract.ManifestFilename, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(out, contract.ManifestFilename))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		arts, err := cache.Load(out)
		if err != nil {
			serve.RespondError(w, err)
			return
		}
		serve.RespondJSON(w, http.StatusOK, previewIndex(arts))
	})

	listen := cfg.Serve.Addr
	if *addr != "" {
		listen = *addr
	}
	logger.Info("preview server listening", "addr", listen, "dir", out)
	if err := http.ListenAndServe(listen, logging.Decorate(nil, logger, mux)); err != nil {
		fatal(err)
	}
}

type previewOperation struct {
	OperationID string `json:"operationId"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Auth        string `json:"auth,omitempty"`
}

type previewSummary struct {
	Generator  contract.ManifestGenerator `json:"generator"`
	Validation string                     `json:"validation"`
	Schemas    int                        `json:"schemas"`
	Operations []previewOperation         `json:"operations"`
	Artifacts  []string                   `json:"artifacts"`
}

func previewIndex(arts *contract.Artifacts) previewSummary {
	s := previewSummary{
		Generator:  arts.Manifest.Generator,
		Validation: arts.Manifest.Validation.Mode,
		Schemas:    arts.Registry.Len(),
		Artifacts:  []string{"/" + contract.ManifestFilename, "/" + contract.OpenAPIFilename},
	}
	for _, op := range arts.Manifest.Operations() {
		s.Operations = append(s.Operations, previewOperation{
			OperationID: op.OperationID,
			Method:      op.HTTP.Method,
			Path:        op.HTTP.Path,
			Auth:        op.Auth,
		})
	}
	return s
}
