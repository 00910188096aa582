package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, "file", c.DBType)
	assert.Equal(t, time.Minute, c.TickInterval)
	assert.Equal(t, 5, c.TapThreshold)
	assert.Equal(t, time.Local, c.Location())
}

func TestParseYAMLThenEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "echo.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
storage_backend: sqlite
sqlite_path: /tmp/echo.db
tick_interval: 30s
timezone: Europe/Berlin
listen_addr: ":9000"
`), 0o644))

	t.Setenv("LISTEN_ADDR", ":9100")
	c, err := Parse(file)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBType)
	assert.Equal(t, "/tmp/echo.db", c.SQLitePath)
	assert.Equal(t, 30*time.Second, c.TickInterval)
	assert.Equal(t, ":9100", c.ListenAddr)
	assert.Equal(t, "Europe/Berlin", c.Location().String())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"postgres without dsn": func(c *Config) { c.DBType = "postgres" },
		"unknown backend":      func(c *Config) { c.DBType = "mongo" },
		"bad env":              func(c *Config) { c.Env = "qa" },
		"prod without auth":    func(c *Config) { c.Env = "production" },
		"zero tick":            func(c *Config) { c.TickInterval = 0 },
		"bad timezone":         func(c *Config) { c.Timezone = "Mars/Olympus" },
		"tiny tap threshold":   func(c *Config) { c.TapThreshold = 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := defaults()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseBadDuration(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "soon")
	_, err := Parse("")
	assert.Error(t, err)
}
