package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/analytics/pkg/analytics"
	"github.com/randalmurphal/analytics/pkg/analytics/encoding"
)

// ErrUnknownHandler indicates a route naming a handler that was not supplied.
var ErrUnknownHandler = errors.New("config: unknown handler")

var validate = validator.New()

// Route binds a named handler to the groups it receives.
type Route struct {
	Handler string          `validate:"required,printascii"`
	Groups  analytics.Group `validate:"required"`
}

// Routes reads the "routes" list. Each entry is a table with a "handler"
// name and "groups", given either as a list of names or as one string
// ("error|critical"). A missing list yields no routes.
func Routes(cfg Config) ([]Route, error) {
	raw := cfg.Any("routes", nil)
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("routes: expected a list, got %T", raw)
	}

	routes := make([]Route, 0, len(items))
	for i, item := range items {
		table, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("route %d: expected a table, got %T", i, item)
		}
		entry := New(table)
		groups, err := parseGroupValue(entry.Any("groups", nil))
		if err != nil {
			return nil, fmt.Errorf("route %d: groups: %w", i, err)
		}
		route := Route{
			Handler: entry.String("handler", ""),
			Groups:  groups,
		}
		if err := validate.Struct(route); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// Wire registers each route's handler on m. Every route is resolved before
// anything is registered, so an unknown name leaves m untouched. Routes
// naming the same handler merge their groups.
func Wire[N comparable](m *analytics.Multiplex[N], routes []Route, handlers map[string]analytics.Handler[N]) error {
	resolved := make([]analytics.HashableHandler[N], len(routes))
	for i, r := range routes {
		h, ok := handlers[r.Handler]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownHandler, r.Handler)
		}
		hh, err := analytics.NewHashableHandler(h)
		if err != nil {
			return fmt.Errorf("handler %q: %w", r.Handler, err)
		}
		resolved[i] = hh
	}
	for i, hh := range resolved {
		m.RegisterHashable(hh, routes[i].Groups)
	}
	return nil
}

// NewMultiplex builds a multiplex from the "multiplex" section and the
// "routes" list. base supplies the logger, metrics and spans; the
// "multiplex.erase" key overrides base.Erase when present.
func NewMultiplex[N comparable](
	cfg Config,
	base analytics.MultiplexConfig,
	handlers map[string]analytics.Handler[N],
) (*analytics.Multiplex[N], error) {
	base.Erase = cfg.Section("multiplex").Bool("erase", base.Erase)

	routes, err := Routes(cfg)
	if err != nil {
		return nil, err
	}
	m := analytics.NewMultiplex[N](base)
	if err := Wire(m, routes, handlers); err != nil {
		return nil, err
	}
	return m, nil
}

// EncoderOptions reads the "encoding" section over encoding.DefaultOptions.
func EncoderOptions(cfg Config) (encoding.Options, error) {
	opts := encoding.DefaultOptions()
	section := cfg.Section("encoding").Raw()
	if len(section) == 0 {
		return opts, nil
	}

	// Round-trip through YAML so the strategy types decode by name.
	doc, err := yaml.Marshal(section)
	if err != nil {
		return opts, fmt.Errorf("encoding options: %w", err)
	}
	if err := yaml.Unmarshal(doc, &opts); err != nil {
		return encoding.DefaultOptions(), fmt.Errorf("encoding options: %w", err)
	}
	return opts, nil
}

// FailureAction reads "encoding.on_failure". Missing means FailureError.
func FailureAction(cfg Config) (encoding.EncodingFailureAction, error) {
	var a encoding.EncodingFailureAction
	raw := cfg.Section("encoding").String("on_failure", "")
	if err := a.UnmarshalText([]byte(raw)); err != nil {
		return encoding.FailureError, err
	}
	return a, nil
}

func parseGroupValue(v any) (analytics.Group, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return analytics.ParseGroup(val)
	case []string:
		return analytics.ParseGroup(strings.Join(val, "|"))
	case []any:
		names := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return 0, fmt.Errorf("expected group name, got %T", item)
			}
			names = append(names, s)
		}
		return analytics.ParseGroup(strings.Join(names, "|"))
	default:
		return 0, fmt.Errorf("expected string or list, got %T", v)
	}
}
