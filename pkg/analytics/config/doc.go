/*
Package config loads analytics wiring from YAML, JSON or TOML files.

A configuration document names which handlers receive which groups and how
payloads are encoded for backends:

	multiplex:
	  erase: false
	routes:
	  - handler: store
	    groups: [action, state]
	  - handler: console
	    groups: "error|critical"
	encoding:
	  keys: snake_case
	  dates: rfc3339
	  floats: string
	  formatting: compact
	  on_failure: ignore

The same document in TOML uses an array of tables for the routes:

	[[routes]]
	handler = "store"
	groups = ["action", "state"]

# Building a Multiplex

Handlers are constructed in code and looked up by route name:

	cfg, err := config.FromFile("analytics.yaml")
	if err != nil {
	    return err
	}
	m, err := config.NewMultiplex(cfg, analytics.MultiplexConfig{Logger: logger},
	    map[string]analytics.Handler[string]{
	        "store":   storeHandler,
	        "console": consoleHandler,
	    })

Routes are validated before anything is registered; an empty handler name,
an empty group set or an unknown handler fails the whole load.

OpenStore builds the record store for a sink.StoreHandler from the "store"
section:

	store:
	  driver: sqlite
	  path: events.db
	  busy_timeout: 5s

# Typed Lookups

Config wraps the decoded document. Accessors return the supplied default
when a key is missing or holds the wrong type:

	timeout := cfg.Section("sink").Duration("flush", 5*time.Second)
	groups := cfg.Group("console_groups", analytics.DefaultGroups)
*/
package config
