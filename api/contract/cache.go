package contract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// CacheFilename is the build cache artifact name inside the output dir.
const CacheFilename = "buildcache.json"

// CacheVersion is the current build cache format version.
const CacheVersion = 1

// BuildCache records the modification times of everything a build read:
// project config files, the module lockfile, and the scanned source
// files. A later build compares and skips regeneration when nothing
// moved. Any unreadable or mismatched cache means a full rebuild; the
// cache is never trusted partially.
type BuildCache struct {
	CacheVersion int               `json:"cacheVersion"`
	Generator    ManifestGenerator `json:"generator"`
	Project      CacheProject      `json:"project"`
	Inputs       map[string]int64  `json:"inputs"`
}

// CacheProject covers the non-source inputs of a build.
type CacheProject struct {
	ConfigFiles map[string]int64 `json:"configFiles"`
	Lockfile    *CacheLockfile   `json:"lockfile"`
}

// CacheLockfile is the module lockfile stamp, or absent when the
// project has none.
type CacheLockfile struct {
	Path    string `json:"path"`
	MtimeMs int64  `json:"mtimeMs"`
}

// SnapshotCache stamps the current state of the given files. Config
// files that do not exist are recorded with mtime 0 so that creating
// one later invalidates the cache.
func SnapshotCache(configFiles []string, lockfile string, inputs []string) *BuildCache {
	c := &BuildCache{
		CacheVersion: CacheVersion,
		Generator: ManifestGenerator{
			Name:    GeneratorName,
			Version: GeneratorVersion,
		},
		Project: CacheProject{ConfigFiles: make(map[string]int64, len(configFiles))},
		Inputs:  make(map[string]int64, len(inputs)),
	}
	for _, f := range configFiles {
		c.Project.ConfigFiles[f] = mtimeMs(f)
	}
	if lockfile != "" {
		if ms := mtimeMs(lockfile); ms != 0 {
			c.Project.Lockfile = &CacheLockfile{Path: lockfile, MtimeMs: ms}
		}
	}
	for _, f := range inputs {
		c.Inputs[f] = mtimeMs(f)
	}
	return c
}

// Fresh reports whether the on-disk state still matches this cache. A
// false result carries the first reason found, for logging.
func (c *BuildCache) Fresh() (bool, string) {
	if c == nil {
		return false, "no cache"
	}
	if c.CacheVersion != CacheVersion {
		return false, fmt.Sprintf("cache version %d (want %d)", c.CacheVersion, CacheVersion)
	}
	if c.Generator.Name != GeneratorName || c.Generator.Version != GeneratorVersion {
		return false, fmt.Sprintf("built by %s %s", c.Generator.Name, c.Generator.Version)
	}
	for _, f := range sortedKeys(c.Project.ConfigFiles) {
		if mtimeMs(f) != c.Project.ConfigFiles[f] {
			return false, "config changed: " + f
		}
	}
	if lf := c.Project.Lockfile; lf != nil {
		if mtimeMs(lf.Path) != lf.MtimeMs {
			return false, "lockfile changed: " + lf.Path
		}
	}
	for _, f := range sortedKeys(c.Inputs) {
		if mtimeMs(f) != c.Inputs[f] {
			return false, "source changed: " + f
		}
	}
	return true, ""
}

// WriteCache persists the cache to the output dir.
func WriteCache(dir string, c *BuildCache) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode build cache: %w", err)
	}
	path := filepath.Join(dir, CacheFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadCache reads the cache from the output dir. Any read or parse
// failure returns nil: the caller rebuilds.
func LoadCache(dir string, logger *slog.Logger) *BuildCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	path := filepath.Join(dir, CacheFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var c BuildCache
	if err := json.Unmarshal(data, &c); err != nil {
		logger.Warn("discarding unreadable build cache", "path", path, "error", err)
		return nil
	}
	return &c
}

// ClearCache removes the cache artifact, forcing the next build to run
// from scratch. Missing files are fine.
func ClearCache(dir string) error {
	err := os.Remove(filepath.Join(dir, CacheFilename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func mtimeMs(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixMilli()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
