package collectors

import (
	"context"
	"fmt"
	"sort"
)

// Collector fetches raw documents (pages, files, messages) that may contain
// share links. Link extraction happens downstream.
type Collector interface {
	Collect(ctx context.Context, config map[string]interface{}) ([]string, error)
}

type Factory func() Collector

var registry = make(map[string]Factory)

func Register(name string, factory Factory) {
	registry[name] = factory
}

func Get(name string) (Collector, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("collector plugin '%s' not found", name)
	}
	return factory(), nil
}

// Names lists the registered plugin types.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String reads an optional string parameter.
func String(config map[string]interface{}, key string) string {
	s, _ := config[key].(string)
	return s
}

// Int reads an optional integer parameter, returning def when absent.
func Int(config map[string]interface{}, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Strings reads a parameter that may be a single string or a list.
func Strings(config map[string]interface{}, key string) []string {
	switch v := config[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
