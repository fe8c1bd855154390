package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/symtree/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "symtree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, "utf16", cfg.Index.CharUnit)
	assert.Equal(t, 4, cfg.Index.Shards)
	assert.Equal(t, 10000, cfg.Bench.Nodes)
	assert.Equal(t, "symtree", cfg.Metrics.ServiceName)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
index:
  char_unit: grapheme
  shards: 2
  validate_on_commit: true
  hibernation_threshold: 500
logging:
  level: debug
  format: json
bench:
  nodes: 50
  accesses: 70
  seed: 9
metrics:
  addr: ":9464"
`))
	require.NoError(t, err)

	assert.Equal(t, "grapheme", cfg.Index.CharUnit)
	assert.Equal(t, 2, cfg.Index.Shards)
	assert.True(t, cfg.Index.ValidateOnCommit)
	assert.Equal(t, 500, cfg.Index.HibernationThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, config.BenchConfig{Nodes: 50, Accesses: 70, Seed: 9}, cfg.Bench)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SYMTREE_INDEX_CHAR_UNIT", "rune")
	t.Setenv("SYMTREE_BENCH_NODES", "123")

	cfg, err := config.LoadConfig(writeConfig(t, "index:\n  char_unit: grapheme\n"))
	require.NoError(t, err)

	assert.Equal(t, "rune", cfg.Index.CharUnit)
	assert.Equal(t, 123, cfg.Bench.Nodes)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "char unit", content: "index:\n  char_unit: bytes\n", want: config.ErrInvalidCharUnit},
		{name: "shards", content: "index:\n  shards: 0\n", want: config.ErrInvalidShards},
		{name: "threshold", content: "index:\n  hibernation_threshold: -1\n", want: config.ErrInvalidThreshold},
		{name: "log level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "log format", content: "logging:\n  format: xml\n", want: config.ErrInvalidLogFormat},
		{name: "bench", content: "bench:\n  accesses: 0\n", want: config.ErrInvalidBench},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}
