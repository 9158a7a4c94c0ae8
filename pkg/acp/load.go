package acp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc"

	"github.com/acp-protocol/acp-mcp/pkg/errors"
	"github.com/acp-protocol/acp-mcp/pkg/logging"
)

const (
	// CacheDir is the project-relative directory holding index output.
	CacheDir = ".acp"
	// CacheFile is the indexer output consumed by the server.
	CacheFile = "acp.cache.json"
	// VarsFileName is the optional variable tracking file.
	VarsFileName = "acp.vars.json"
	// AttemptsFileName is the optional attempt tracking file.
	AttemptsFileName = "acp.attempts.json"
)

// Project bundles everything loaded from a project's .acp directory.
// The cache is mandatory; vars and attempts degrade to nil.
type Project struct {
	Root     string
	Cache    *Cache
	Vars     *VarsFile
	Attempts *AttemptsFile
}

// CachePath returns the cache file path under the given project root.
func CachePath(root string) string {
	return filepath.Join(root, CacheDir, CacheFile)
}

// VarsPath returns the vars file path under the given project root.
func VarsPath(root string) string {
	return filepath.Join(root, CacheDir, VarsFileName)
}

// AttemptsPath returns the attempts file path under the project root.
func AttemptsPath(root string) string {
	return filepath.Join(root, CacheDir, AttemptsFileName)
}

// LoadProject reads the cache and the optional tracking files from the
// project root. The three files are independent, so they are read
// concurrently. A missing or corrupt vars/attempts file is logged and
// dropped; a missing or corrupt cache is fatal to the load.
func LoadProject(ctx context.Context, root string) (*Project, error) {
	logger := logging.GetLogger()

	var (
		cache       *Cache
		cacheErr    error
		vars        *VarsFile
		varsErr     error
		attempts    *AttemptsFile
		attemptsErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		cache, cacheErr = LoadCache(CachePath(root))
	})
	wg.Go(func() {
		vars, varsErr = LoadVars(VarsPath(root))
	})
	wg.Go(func() {
		attempts, attemptsErr = LoadAttempts(AttemptsPath(root))
	})
	wg.Wait()

	if cacheErr != nil {
		return nil, cacheErr
	}
	if varsErr != nil {
		logger.Warn(ctx, "vars file unavailable: %v", varsErr)
		vars = nil
	}
	if attemptsErr != nil {
		logger.Warn(ctx, "attempts file unavailable: %v", attemptsErr)
		attempts = nil
	}

	logger.Info(ctx, "loaded cache with %d files, %d symbols, %d domains",
		len(cache.Files), len(cache.Symbols), len(cache.Domains))

	return &Project{
		Root:     root,
		Cache:    cache,
		Vars:     vars,
		Attempts: attempts,
	}, nil
}

// LoadCache reads and parses a cache file.
func LoadCache(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithFields(
				errors.New(errors.CacheNotFound, "no cache found, run the indexer first"),
				errors.Fields{"path": path})
		}
		return nil, errors.Wrap(err, errors.CacheNotFound, "failed to read cache")
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.CacheParseFailed, "failed to parse cache"),
			errors.Fields{"path": path})
	}

	if cache.Files == nil {
		cache.Files = map[string]*FileEntry{}
	}
	if cache.Symbols == nil {
		cache.Symbols = map[string]*SymbolEntry{}
	}
	if cache.Domains == nil {
		cache.Domains = map[string]*Domain{}
	}

	return &cache, nil
}

// LoadVars reads the optional vars file. Returns (nil, nil) when the
// file does not exist.
func LoadVars(path string) (*VarsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ResourceNotFound, "failed to read vars")
	}

	var vars VarsFile
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, errors.Wrap(err, errors.CacheParseFailed, "failed to parse vars")
	}
	return &vars, nil
}

// LoadAttempts reads the optional attempts file. Returns (nil, nil)
// when the file does not exist.
func LoadAttempts(path string) (*AttemptsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ResourceNotFound, "failed to read attempts")
	}

	var attempts AttemptsFile
	if err := json.Unmarshal(data, &attempts); err != nil {
		return nil, errors.Wrap(err, errors.CacheParseFailed, "failed to parse attempts")
	}
	return &attempts, nil
}
