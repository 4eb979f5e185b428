package contract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Artifacts is one loaded build output set: the manifest plus the
// schema components and the validator set recompiled from them.
type Artifacts struct {
	Dir        string
	Manifest   *Manifest
	Registry   *Registry
	Validators *ValidatorSet

	manifestMtime int64
}

// ArtifactCache loads build artifacts on demand and serves them to the
// runtime. A changed manifest mtime triggers a wholesale reload: the
// manifest, components, and validators always come from the same build.
type ArtifactCache struct {
	mu       sync.Mutex
	provider SchemaProvider
	logger   *slog.Logger
	byDir    map[string]*Artifacts
}

// NewArtifactCache builds a cache that recompiles validators with the
// given provider on every (re)load.
func NewArtifactCache(provider SchemaProvider, logger *slog.Logger) *ArtifactCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ArtifactCache{
		provider: provider,
		logger:   logger,
		byDir:    make(map[string]*Artifacts),
	}
}

// Load returns the artifacts for an output directory, reading them from
// disk on first use and rereading everything when the manifest file has
// been rewritten since.
func (c *ArtifactCache) Load(dir string) (*Artifacts, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mtime := mtimeMs(filepath.Join(dir, ManifestFilename))
	if a, ok := c.byDir[dir]; ok && a.manifestMtime == mtime && mtime != 0 {
		return a, nil
	}

	a, err := loadArtifacts(dir, c.provider, c.logger)
	if err != nil {
		return nil, err
	}
	a.manifestMtime = mtime
	c.byDir[dir] = a
	c.logger.Debug("loaded build artifacts", "dir", dir, "operations", len(a.Manifest.Operations()))
	return a, nil
}

// Invalidate drops the cached artifacts for a directory.
func (c *ArtifactCache) Invalidate(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byDir, dir)
}

func loadArtifacts(dir string, provider SchemaProvider, logger *slog.Logger) (*Artifacts, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	reg, err := LoadComponents(filepath.Join(dir, m.Schemas.File))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema components: %w", err)
	}

	a := &Artifacts{Dir: dir, Manifest: m, Registry: reg}
	if m.Validation.Mode != "none" {
		a.Validators = EmitValidators(m, reg, provider, logger)
		if vf, err := LoadValidatorsFile(dir); err == nil && vf.Hash != a.Validators.Hash {
			logger.Warn("validators artifact is stale; run 'adorn build'",
				"dir", dir, "artifactHash", vf.Hash, "compiledHash", a.Validators.Hash)
		}
	}
	return a, nil
}

// LoadComponents reads the components/schemas section of a persisted
// OpenAPI document back into a registry.
func LoadComponents(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseComponents(data)
}
