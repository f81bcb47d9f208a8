package geoip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountryWithoutDatabase(t *testing.T) {
	Close()
	assert.Equal(t, "", Country("8.8.8.8"))
	assert.Equal(t, "", Country("[2001:db8::1]"))
	assert.Equal(t, "", Country("example.com"))
}

func TestInit(t *testing.T) {
	assert.NoError(t, Init(""))
	assert.Error(t, Init(filepath.Join(t.TempDir(), "missing.mmdb")))
}
