package config

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/analytics/pkg/analytics/sink"
)

// OpenStore builds the record store described by the "store" section:
//
//	store:
//	  driver: sqlite      # memory (default) or sqlite
//	  path: events.db     # sqlite only, default ":memory:"
//	  busy_timeout: 5s    # sqlite only
//
// A section with a path and no driver selects sqlite.
func OpenStore(cfg Config) (sink.Store, error) {
	section := cfg.Section("store")

	driver := section.String("driver", "memory")
	if !section.Has("driver") && section.Has("path") {
		driver = "sqlite"
	}

	switch strings.ToLower(driver) {
	case "memory":
		return sink.NewMemoryStore(), nil
	case "sqlite":
		store, err := sink.NewSQLiteStore(
			section.String("path", ":memory:"),
			sink.WithBusyTimeout(section.Duration("busy_timeout", 0)),
		)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
