package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PERFEVAL_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.RatingMin)
	assert.Equal(t, 5, cfg.RatingMax)
	assert.Equal(t, 10*time.Second, cfg.LockTimeout)
	assert.Equal(t, LockModePerOperation, cfg.LockMode)
	assert.Equal(t, filepath.Join("data", "users.json"), cfg.UsersFile)
	assert.Equal(t, filepath.Join("data", "criteria.json"), cfg.CriteriaFile)
	assert.Equal(t, filepath.Join("data", "evaluations.json"), cfg.EvaluationsFile)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfeval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/perfeval
rating_max: 10
lock_timeout: 3s
lock_mode: serialized
cors_origins: [https://a.example]
`), 0o644))

	t.Setenv("RATING_MAX", "7")
	t.Setenv("CRITERIA_FILE", "/tmp/crit.json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.RatingMax, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, LockModeSerialized, cfg.LockMode)
	assert.Equal(t, []string{"https://a.example"}, cfg.CORSOrigins)
	assert.Equal(t, filepath.Join("/srv/perfeval", "users.json"), cfg.UsersFile)
	assert.Equal(t, "/tmp/crit.json", cfg.CriteriaFile)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad int", "RATING_MIN", "one"},
		{"bad duration", "STORE_LOCK_TIMEOUT", "soon"},
		{"bad lock mode", "STORE_LOCK_MODE", "optimistic"},
		{"empty range", "RATING_MIN", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProdRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestWithDataDir(t *testing.T) {
	cfg := Default()
	cfg.UsersFile = "/elsewhere/users.json"

	cfg = cfg.WithDataDir("/d")
	assert.Equal(t, filepath.Join("/d", "users.json"), cfg.UsersFile)
	assert.Equal(t, filepath.Join("/d", "evaluations.json"), cfg.EvaluationsFile)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
