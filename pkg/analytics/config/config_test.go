package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/analytics/pkg/analytics"
	"github.com/randalmurphal/analytics/pkg/analytics/config"
)

// TestNew verifies Config creation from maps.
func TestNew(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil map", nil},
		{"empty map", map[string]any{}},
		{"with values", map[string]any{"key": "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.NotNil(t, cfg.Raw())
		})
	}
}

// TestString verifies string extraction with defaults.
func TestString(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"key exists", map[string]any{"sink": "sqlite"}, "sqlite"},
		{"key missing", map[string]any{"other": "value"}, "memory"},
		{"empty string", map[string]any{"sink": ""}, ""},
		{"wrong type", map[string]any{"sink": 3}, "memory"},
		{"nil map", nil, "memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.String("sink", "memory"))
		})
	}
}

// TestDuration verifies duration extraction from strings and numbers.
func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"string", "250ms", 250 * time.Millisecond},
		{"int seconds", 3, 3 * time.Second},
		{"int64 seconds", int64(2), 2 * time.Second},
		{"float seconds", 1.5, 1500 * time.Millisecond},
		{"duration", 4 * time.Minute, 4 * time.Minute},
		{"invalid string", "soon", time.Second},
		{"wrong type", true, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"flush": tt.value})
			assert.Equal(t, tt.want, cfg.Duration("flush", time.Second))
		})
	}
}

func TestBoolIntStringSlice(t *testing.T) {
	cfg := config.New(map[string]any{
		"erase":    true,
		"workers":  int64(4),
		"fraction": 2.5,
		"whole":    8.0,
		"names":    []any{"a", "b"},
		"mixed":    []any{"a", 1},
		"typed":    []string{"x"},
	})

	assert.True(t, cfg.Bool("erase", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.Equal(t, 4, cfg.Int("workers", 0))
	assert.Equal(t, 0, cfg.Int("fraction", 0), "fractional floats fall back")
	assert.Equal(t, 8, cfg.Int("whole", 0))
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("names", nil))
	assert.Nil(t, cfg.StringSlice("mixed", nil))
	assert.Equal(t, []string{"x"}, cfg.StringSlice("typed", nil))
	assert.True(t, cfg.Has("erase"))
	assert.False(t, cfg.Has("missing"))
	assert.Equal(t, "fallback", cfg.Any("missing", "fallback"))
}

func TestSection(t *testing.T) {
	cfg := config.New(map[string]any{
		"sink":  map[string]any{"path": "events.db"},
		"plain": "value",
	})

	assert.Equal(t, "events.db", cfg.Section("sink").String("path", ""))
	assert.Empty(t, cfg.Section("plain").Raw())
	assert.Empty(t, cfg.Section("missing").Raw())
}

func TestGroup(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  analytics.Group
	}{
		{"single string", "error|critical", analytics.Error | analytics.Critical},
		{"list", []any{"action", "state"}, analytics.Action | analytics.State},
		{"defaults", "default", analytics.DefaultGroups},
		{"unknown name", "loud", analytics.Info},
		{"wrong type", 7, analytics.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"groups": tt.value})
			assert.Equal(t, tt.want, cfg.Group("groups", analytics.Info))
		})
	}

	assert.Equal(t, analytics.Info, config.New(nil).Group("groups", analytics.Info))
}

// TestFromYAML verifies YAML parsing.
func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
name: audit
workers: 2
routes:
  - handler: store
    groups: [action]
`))
	require.NoError(t, err)
	assert.Equal(t, "audit", cfg.String("name", ""))
	assert.Equal(t, 2, cfg.Int("workers", 0))

	_, err = config.FromYAML([]byte(`invalid: yaml: content:`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")

	empty, err := config.FromYAML(nil)
	require.NoError(t, err)
	assert.False(t, empty.Has("anything"))
}

// TestFromJSON verifies JSON parsing.
func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"name": "audit", "workers": 2, "multiplex": {"erase": true}}`))
	require.NoError(t, err)
	assert.Equal(t, "audit", cfg.String("name", ""))
	assert.Equal(t, 2, cfg.Int("workers", 0))
	assert.True(t, cfg.Section("multiplex").Bool("erase", false))

	_, err = config.FromJSON([]byte(`{`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")
}

func TestFromTOML(t *testing.T) {
	cfg, err := config.FromTOML([]byte(`
name = "audit"
workers = 2

[encoding]
keys = "snake_case"

[[routes]]
handler = "store"
groups = ["action", "state"]

[[routes]]
handler = "console"
groups = "error|critical"
`))
	require.NoError(t, err)
	assert.Equal(t, "audit", cfg.String("name", ""))
	assert.Equal(t, 2, cfg.Int("workers", 0))
	assert.Equal(t, "snake_case", cfg.Section("encoding").String("keys", ""))

	routes, err := config.Routes(cfg)
	require.NoError(t, err)
	assert.Equal(t, []config.Route{
		{Handler: "store", Groups: analytics.Action | analytics.State},
		{Handler: "console", Groups: analytics.Error | analytics.Critical},
	}, routes)

	_, err = config.FromTOML([]byte(`name = `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse toml")
}

// TestFromFile verifies file loading with extension detection.
func TestFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{"yaml", write("a.yaml", "name: fromyaml"), "fromyaml", ""},
		{"yml", write("b.yml", "name: fromyml"), "fromyml", ""},
		{"json", write("c.json", `{"name": "fromjson"}`), "fromjson", ""},
		{"toml", write("d.toml", `name = "fromtoml"`), "fromtoml", ""},
		{"upper case extension", write("e.YAML", "name: upper"), "upper", ""},
		{"unsupported", write("f.txt", "name"), "", "unsupported config file extension"},
		{"missing", filepath.Join(tmpDir, "nope.yaml"), "", "read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromFile(tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.String("name", ""))
		})
	}
}
