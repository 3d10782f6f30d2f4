package forexsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhub/elimu/core"
)

func newTestConverter(t *testing.T, handler http.HandlerFunc) (*Converter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewConverter(&core.Config{
		Forex: core.ForexConfig{BaseURL: srv.URL, CacheTTL: time.Minute},
	})
	return c, srv
}

func TestConverter_Convert(t *testing.T) {
	var hits int
	c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/latest/USD", r.URL.Path)
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"CDF":2500,"EUR":0.9}}`)
	})
	ctx := context.Background()

	got, err := c.Convert(ctx, decimal.NewFromInt(10), "usd", "cdf")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(25000)), "got %s", got)

	// same currency needs no rates
	got, err = c.Convert(ctx, decimal.NewFromInt(10), "USD", "usd")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10)))

	// second conversion on the same base hits the cache
	_, err = c.Convert(ctx, decimal.NewFromInt(1), "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	_, err = c.Convert(ctx, decimal.NewFromInt(1), "USD", "XXX")
	assert.Equal(t, ErrUnknownCurrency, errors.Cause(err))
}

func TestConverter_Convert_staleOnOutage(t *testing.T) {
	var down bool
	c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
		if down {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"EUR":0.5}}`)
	})
	c.conf.CacheTTL = 0 // every call refetches
	ctx := context.Background()

	got, err := c.Convert(ctx, decimal.NewFromInt(10), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(5)))

	// rates endpoint goes down; the stale table still serves
	down = true
	got, err = c.Convert(ctx, decimal.NewFromInt(20), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10)))

	// no cache at all for a new base
	_, err = c.Convert(ctx, decimal.NewFromInt(1), "EUR", "USD")
	assert.Error(t, err)
}
