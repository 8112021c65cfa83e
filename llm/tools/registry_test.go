package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, p Params) (any, error) { return nil, nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(GetWeather, noop, Metadata{}))
	assert.ErrorContains(t, r.Register(GetWeather, noop, Metadata{}), "already registered")
	assert.ErrorContains(t, r.Register("teleport", noop, Metadata{}), "unknown tool")
	assert.ErrorContains(t, r.Register(SearchFlights, nil, Metadata{}), "nil handler")

	_, meta, ok := r.Lookup(GetWeather)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, meta.Timeout)
}

func TestRegistry_CustomCatalog(t *testing.T) {
	r := NewRegistry(nil, "teleport")
	assert.NoError(t, r.Register("teleport", noop, Metadata{Timeout: time.Second}))
	assert.Error(t, r.Register(GetWeather, noop, Metadata{}))
}

func TestRegistry_Seal(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(GetWeather, noop, Metadata{})
	r.Seal()

	assert.ErrorContains(t, r.Register(SearchFlights, noop, Metadata{}), "sealed")
	assert.True(t, r.Has(GetWeather))
	assert.Panics(t, func() { r.MustRegister(SearchFlights, noop, Metadata{}) })
}

func TestRegistry_Require(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(GetWeather, noop, Metadata{})
	r.MustRegister(SearchFlights, noop, Metadata{})

	assert.NoError(t, r.Require(GetWeather, SearchFlights))
	err := r.Require(GetWeather, BuildItinerary, ConvertCurrency)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build_itinerary")
	assert.Contains(t, err.Error(), "convert_currency")

	assert.Equal(t, []Name{GetWeather, SearchFlights}, r.Names())
}

func TestParams(t *testing.T) {
	p := Params{"city": "Rome", "nights": 3, "budget": "1500.5", "rate": 1.1, "flag": true}

	assert.Equal(t, "Rome", p.Text("city"))
	assert.Equal(t, "true", p.Text("flag"))
	assert.Equal(t, "", p.Text("missing"))

	n, ok := p.Int("nights")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	f, ok := p.Float("budget")
	assert.True(t, ok)
	assert.Equal(t, 1500.5, f)

	_, ok = p.Float("flag")
	assert.False(t, ok)
}
