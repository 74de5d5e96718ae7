package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxidemo/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1500*time.Millisecond, cfg.Tour.ImportDelay)
	assert.Equal(t, 5, cfg.Notifications.Limit)
	assert.Equal(t, 5*time.Minute, cfg.Contact.Cooldown)
	assert.False(t, cfg.Store.CascadeDelete)
	assert.True(t, cfg.Store.Seed)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("store:\n  cascade_delete: true\n  seed: true\ntour:\n  draft_delay: 250ms\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Store.CascadeDelete)
	assert.Equal(t, 250*time.Millisecond, cfg.Tour.DraftDelay)
	assert.Equal(t, 3*time.Second, cfg.Tour.ExecutionDelayMin)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"inverted range": "tour:\n  execution_delay_min: 5s\n  execution_delay_max: 1s\n",
		"zero limit":     "notifications:\n  limit: 0\n",
		"negative ttl":   "notifications:\n  ttl: -1s\n",
		"bad endpoint":   "contact:\n  endpoint: ftp://relay\n",
		"bad env name":   "sessions:\n  jwt_secret_env: not-an-env\n",
		"base path":      "server:\n  base_path: v0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.Load(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "arxidemo.yml"), []byte("sessions:\n  max: 3\n"), 0o644))
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Sessions.Max)
}

func TestYAMLRoundTripKeepsDurations(t *testing.T) {
	out, err := config.Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "import_delay: 1.5s")
	cfg, err := config.FromYAML([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
