// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{ID: "find-matches", DisplayName: "Find Matches", Category: "matching", TaskType: "find-matches"},
			{ID: "optimize-weights", DisplayName: "Optimize Weights", Category: "matching", TaskType: "optimize-weights"},
		},
	}
}

func TestLoadRegistry_ShippedCatalogue(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	a, ok := reg.Find("record-match-feedback")
	require.True(t, ok)
	assert.Contains(t, a.ErrorCodes, "MATCH_NOT_FOUND")
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleRegistry().Validate())

	tests := map[string]func(r *ActivityRegistry){
		"empty":              func(r *ActivityRegistry) { r.Activities = nil },
		"missing id":         func(r *ActivityRegistry) { r.Activities[0].ID = "" },
		"duplicate id":       func(r *ActivityRegistry) { r.Activities[1].ID = "find-matches" },
		"missing name":       func(r *ActivityRegistry) { r.Activities[0].DisplayName = "" },
		"missing task type":  func(r *ActivityRegistry) { r.Activities[1].TaskType = "" },
		"duplicate taskType": func(r *ActivityRegistry) { r.Activities[1].TaskType = "find-matches" },
		"missing category":   func(r *ActivityRegistry) { r.Activities[0].Category = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := sampleRegistry()
			mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestDiff(t *testing.T) {
	missing, stale := sampleRegistry().Diff([]string{"rebuild-matches", "find-matches", "batch-find-matches"})
	assert.Equal(t, []string{"batch-find-matches", "rebuild-matches"}, missing)
	assert.Equal(t, []string{"optimize-weights"}, stale)

	missing, stale = sampleRegistry().Diff([]string{"find-matches", "optimize-weights"})
	assert.Empty(t, missing)
	assert.Empty(t, stale)
}
