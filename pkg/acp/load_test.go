package acp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acp-protocol/acp-mcp/pkg/errors"
)

const sampleCache = `{
	"project": {"name": "sample", "root": "."},
	"files": {
		"src/main.go": {"path": "src/main.go", "language": "go", "layer": "application"},
		"src/auth/service.go": {
			"path": "src/auth/service.go",
			"language": "go",
			"layer": "service",
			"imported_by": ["src/main.go"]
		}
	},
	"symbols": {
		"AuthService": {"name": "AuthService", "file": "src/auth/service.go", "kind": "struct"}
	},
	"domains": {
		"auth": {"files": ["src/auth/service.go"], "description": "Authentication"}
	},
	"constraints": {
		"by_file": {
			"src/auth/service.go": {"mutation": {"level": "frozen", "reason": "security reviewed"}}
		}
	},
	"stats": {"files": 2, "symbols": 1, "lines": 140, "annotation_coverage": 0.5}
}`

func writeProjectFixture(t *testing.T, cacheJSON string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, CacheDir), 0o755))
	require.NoError(t, os.WriteFile(CachePath(root), []byte(cacheJSON), 0o644))
	return root
}

func TestLoadCache(t *testing.T) {
	root := writeProjectFixture(t, sampleCache)

	cache, err := LoadCache(CachePath(root))
	require.NoError(t, err)

	assert.Equal(t, "sample", cache.Project.Name)
	assert.Len(t, cache.Files, 2)
	assert.Len(t, cache.Symbols, 1)

	f, ok := cache.GetFile("src/auth/service.go")
	require.True(t, ok)
	assert.Equal(t, "service", f.Layer)
	assert.Equal(t, []string{"src/main.go"}, f.ImportedBy)

	c := cache.Constraints.ByFile["src/auth/service.go"]
	require.NotNil(t, c.Mutation)
	assert.Equal(t, LockFrozen, c.Mutation.Level)
}

func TestLoadCacheMissing(t *testing.T) {
	_, err := LoadCache(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, errors.CacheNotFound, errors.Code(err))
}

func TestLoadCacheMalformed(t *testing.T) {
	root := writeProjectFixture(t, "{not json")
	_, err := LoadCache(CachePath(root))
	require.Error(t, err)
	assert.Equal(t, errors.CacheParseFailed, errors.Code(err))
}

func TestLoadProjectOptionalFilesAbsent(t *testing.T) {
	root := writeProjectFixture(t, sampleCache)

	project, err := LoadProject(context.Background(), root)
	require.NoError(t, err)

	assert.NotNil(t, project.Cache)
	assert.Nil(t, project.Vars)
	assert.Nil(t, project.Attempts)
}

func TestLoadProjectWithVarsAndAttempts(t *testing.T) {
	root := writeProjectFixture(t, sampleCache)
	require.NoError(t, os.WriteFile(VarsPath(root),
		[]byte(`{"variables": {"SYM_AuthService": {"file": "src/auth/service.go"}}}`), 0o644))
	require.NoError(t, os.WriteFile(AttemptsPath(root),
		[]byte(`{"attempts": [
			{"id": "a1", "status": "active"},
			{"id": "a2", "status": "completed"}
		]}`), 0o644))

	project, err := LoadProject(context.Background(), root)
	require.NoError(t, err)

	require.NotNil(t, project.Vars)
	assert.Contains(t, project.Vars.Variables, "SYM_AuthService")

	require.NotNil(t, project.Attempts)
	assert.Equal(t, 1, project.Attempts.ActiveCount())
}

func TestLoadProjectCorruptVarsDegrades(t *testing.T) {
	root := writeProjectFixture(t, sampleCache)
	require.NoError(t, os.WriteFile(VarsPath(root), []byte("{broken"), 0o644))

	project, err := LoadProject(context.Background(), root)
	require.NoError(t, err)
	assert.Nil(t, project.Vars)
}

func TestEntryPoints(t *testing.T) {
	cache := NewCache("test", ".")
	cache.Files["src/main.go"] = &FileEntry{Path: "src/main.go", Language: "go"}
	cache.Files["web/index.ts"] = &FileEntry{Path: "web/index.ts", Language: "typescript"}
	cache.Files["pkg/util/strings.go"] = &FileEntry{Path: "pkg/util/strings.go", Language: "go"}

	eps := cache.EntryPoints(10)
	assert.Len(t, eps, 2)
}

func TestLayerCounts(t *testing.T) {
	cache := NewCache("test", ".")
	cache.Files["a.go"] = &FileEntry{Path: "a.go", Layer: "service"}
	cache.Files["b.go"] = &FileEntry{Path: "b.go", Layer: "service"}
	cache.Files["c.go"] = &FileEntry{Path: "c.go", Layer: "model"}
	cache.Files["d.go"] = &FileEntry{Path: "d.go"}

	counts := cache.LayerCounts()
	assert.Equal(t, map[string]int{"service": 2, "model": 1}, counts)
}
