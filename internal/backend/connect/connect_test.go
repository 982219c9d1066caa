package connect

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.BackendConfig
		wantDriver string
		wantErr    bool
	}{
		{"auto without credentials", config.BackendConfig{Driver: config.BackendAuto}, "null", false},
		{"rest without key", config.BackendConfig{Driver: config.BackendREST, URL: "https://x.supabase.co"}, "null", false},
		{"auto with credentials", config.BackendConfig{Driver: config.BackendAuto, URL: "https://x.supabase.co", AnonKey: "k"}, "rest", false},
		{"unknown", config.BackendConfig{Driver: "mongo"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Open(tt.cfg, logger.Discard())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, conn.Client.Driver())
			assert.NoError(t, conn.Close())
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	conn, err := Open(config.BackendConfig{
		Driver:     config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "p.db"),
	}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.Client.Driver())
	assert.NoError(t, conn.Close())
}
