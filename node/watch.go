package node

import (
	"github.com/rjeczalik/notify"
)

// WatchConfig decodes path into a fresh zero-value Config whenever the
// file changes on disk and invokes onReload with it, letting an operator
// push a new qnet-node.toml without restarting the process. Errors
// decoding the changed file are logged and onReload is not called,
// rather than aborting the watch goroutine.
//
// The teacher's go.mod declares github.com/rjeczalik/notify but no
// retrieved file exercises it; this is that dependency's first real call
// site, applied to the one thing in this module an operator plausibly
// wants to hot-swap: the TOML config file.
func WatchConfig(path string, onReload func(Config)) (stop func(), err error) {
	events := make(chan notify.EventInfo, 1)
	if err := notify.Watch(path, events, notify.Write); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-events:
				var cfg Config
				if err := LoadConfig(path, &cfg); err != nil {
					logger.Error("config reload failed", "path", path, "err", err)
					continue
				}
				logger.Info("config reloaded", "path", path)
				onReload(cfg)
			case <-done:
				return
			}
		}
	}()

	return func() {
		notify.Stop(events)
		close(done)
	}, nil
}
