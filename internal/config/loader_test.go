package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
database:
  host: pg.internal
  user: qbank
  password: secret
  db_name: questions
log:
  level: debug
  format: console
taxonomy:
  path: /etc/qbank/taxonomy.yaml
  fuzzy_threshold: 0.85
numbering:
  rules:
    - school: Rosyth
      section: P1B
      offset: 0
    - school: Nan Hua
      section: P2
      mapping:
        "31": 1
        "32": 2
papers:
  sections:
    - section: P1A
      name: Booklet A
      total_marks: 20
      total_questions: 15
      ranges:
        - {start: 1, end: 10, marks: 1, kind: mcq}
        - {start: 11, end: 15, marks: 2, kind: mcq}
pipeline:
  key_numbering: printed
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ReadsFileAndAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.85, cfg.Taxonomy.FuzzyThreshold)
	assert.Equal(t, KeyNumberingPrinted, cfg.Pipeline.KeyNumbering)

	rules, err := cfg.NumberingRules()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, map[int]int{31: 1, 32: 2}, rules[1].Mapping)

	require.Len(t, cfg.Papers.Sections, 1)
	assert.Equal(t, "P1A", cfg.Papers.Sections[0].Section)
	assert.Len(t, cfg.Papers.Sections[0].Ranges, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("QBANK_DATABASE_HOST", "from-env")
	t.Setenv("QBANK_PIPELINE_CONCURRENCY", "12")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Host)
	assert.Equal(t, 12, cfg.Pipeline.Concurrency)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QBANK_TAXONOMY_PATH", "/srv/taxonomy.yaml")
	t.Setenv("QBANK_SERVER_PORT", "7000")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/srv/taxonomy.yaml", cfg.Taxonomy.Path)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
}

func TestLoadOrEnv_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("QBANK_LOG_LEVEL", "warn")

	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

//Personal.AI order the ending
