package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func unsetAll(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		if had {
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetAll(t, "TRACKER_LISTEN_ADDR", "TRACKER_LOG_LEVEL", "TRACKER_PLAYER_ID", "TRACKER_RULES_PATH")

	cfg := Load()

	require.Equal(t, ":8090", cfg.ListenAddr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 1, cfg.PlayerID)
	require.Empty(t, cfg.RulesPath)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRACKER_LISTEN_ADDR", ":9999")
	t.Setenv("TRACKER_LOG_LEVEL", "debug")
	t.Setenv("TRACKER_PLAYER_ID", "3")
	t.Setenv("TRACKER_RULES_PATH", "/tmp/rules.json")

	cfg := Load()

	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3, cfg.PlayerID)
	require.Equal(t, "/tmp/rules.json", cfg.RulesPath)
}

func TestLoadFallsBackOnInvalidPlayerID(t *testing.T) {
	t.Setenv("TRACKER_PLAYER_ID", "not-a-number")

	cfg := Load()

	require.Equal(t, 1, cfg.PlayerID, "want fallback of 1 for an unparseable value")
}
