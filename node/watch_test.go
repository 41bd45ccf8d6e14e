package node

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qnet-node.toml")
	require.NoError(t, os.WriteFile(path, []byte("NetworkID = 1\n"), 0644))

	reloaded := make(chan Config, 1)
	stop, err := WatchConfig(path, func(cfg Config) { reloaded <- cfg })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("NetworkID = 2\n"), 0644))

	select {
	case cfg := <-reloaded:
		require.EqualValues(t, 2, cfg.NetworkID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
