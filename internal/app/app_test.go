package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rendertrace/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewWithMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	a, err := New(path)
	require.NoError(t, err)
	require.NotNil(t, a.cfgm.Get())
	require.Equal(t, "INFO", a.cfgm.Get().Logging.Level)
}

func TestNewRejectsBrokenConfig(t *testing.T) {
	path := writeConfig(t, "track:\n  batch_window: \"not-a-duration\"\n")
	_, err := New(path)
	require.Error(t, err)
}

func TestScenarioRunsThroughToStore(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: ERROR
  console: false
track:
  batch_window: "30ms"
scenarios:
  - name: mount-tree
  - name: counter-click
presenter:
  enabled: false
`)
	a, err := New(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		require.NoError(t, a.Stop(stopCtx))
	}()

	// mount-tree is silent (initial renders); counter-click must batch
	// and surface one notification.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if a.Store().Len() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, a.Store().Len())

	n := a.Store().Snapshot()[0]
	require.Equal(t, "Counter", n.Primary.Unit)
	require.Positive(t, a.Registry().SequenceOf("Counter"))
}

func TestMapPresenterConfigDefaults(t *testing.T) {
	pc := mapPresenterConfig(&config.Config{})
	require.True(t, pc.Enabled)

	off := false
	pc = mapPresenterConfig(&config.Config{Presenter: &config.PresenterConfig{Enabled: &off, ShowBadges: true}})
	require.False(t, pc.Enabled)
	require.True(t, pc.ShowBadges)
}
