package app

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRuntimeLifecycle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dead := deadConn(t)

	settings := filepath.Join(dir, "last.json")
	body := `{"message":"QST net","interval":"30","max_chars":140,"js8_host":"127.0.0.1","js8_port":` + strconv.Itoa(dead.Port) + `}`
	require.NoError(t, os.WriteFile(settings, []byte(body), 0o600))

	opts := filepath.Join(dir, "options.yaml")
	yml := "settings_path: " + settings + "\n" +
		"logging:\n  level: warn\n  console: false\n  file:\n    enabled: false\n    path: \"\"\n  telegram:\n    enabled: false\n    min_level: error\n    rate_per_sec: 1\n" +
		"storage:\n  driver: file\n  path: " + filepath.Join(dir, "hist") + "\n"
	require.NoError(t, os.WriteFile(opts, []byte(yml), 0o600))

	rt, err := NewRuntime(RuntimeOptions{ConfigPath: opts})
	require.NoError(t, err)

	st := rt.App().State()
	require.Equal(t, "QST net", st.Message)
	require.Equal(t, 140, st.LimitChars)
	require.Equal(t, dead.Port, st.Connection.Port)

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)
	require.False(t, rt.App().Connected())

	_, err = rt.App().History(ctx, 5)
	require.NoError(t, err, "file history is configured")

	status, ok := rt.status().(runtimeStatus)
	require.True(t, ok)
	require.Equal(t, "30", status.Schedule)

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	require.NoError(t, rt.Close(closeCtx))

	saved, err := os.ReadFile(settings)
	require.NoError(t, err)
	require.Equal(t, body, string(saved), "nothing changed, the file is left alone")
}

func TestRuntimeSettingsOverride(t *testing.T) {
	t.Parallel()
	settings := filepath.Join(t.TempDir(), "other.json")
	rt, err := NewRuntime(RuntimeOptions{SettingsPath: settings, Quiet: true})
	require.NoError(t, err)
	require.Equal(t, settings, rt.Options().ResolvedSettingsPath())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Close(ctx))
	_, err = os.Stat(settings)
	require.NoError(t, err, "Close writes the first snapshot")
}

func TestLevelBelowWarn(t *testing.T) {
	t.Parallel()
	for lvl, want := range map[string]bool{"": true, "debug": true, "info": true, "WARN": false, "error": false} {
		require.Equal(t, want, levelBelowWarn(lvl), lvl)
	}
}
