package collectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCollector struct{ docs []string }

func (s staticCollector) Collect(context.Context, map[string]interface{}) ([]string, error) {
	return s.docs, nil
}

func TestRegistry(t *testing.T) {
	Register("static", func() Collector { return staticCollector{docs: []string{"a"}} })

	c, err := Get("static")
	require.NoError(t, err)
	docs, err := c.Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, docs)
	assert.Contains(t, Names(), "static")

	_, err = Get("missing")
	assert.Error(t, err)
}

func TestParams(t *testing.T) {
	cfg := map[string]interface{}{
		"url":   "https://example.com",
		"limit": 20,
		"paths": []interface{}{"a.txt", 3, "b.txt"},
	}
	assert.Equal(t, "https://example.com", String(cfg, "url"))
	assert.Equal(t, "", String(cfg, "limit"))
	assert.Equal(t, 20, Int(cfg, "limit", 5))
	assert.Equal(t, 5, Int(cfg, "missing", 5))
	assert.Equal(t, []string{"a.txt", "b.txt"}, Strings(cfg, "paths"))
	assert.Equal(t, []string{"https://example.com"}, Strings(cfg, "url"))
	assert.Nil(t, Strings(cfg, "missing"))
}
