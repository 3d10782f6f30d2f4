package forexsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Converter converts amounts between currencies using published exchange
// rates. Rate tables are fetched per base currency and cached for the
// configured TTL; concurrent conversions share the cache.
type Converter struct {
	conf   core.ForexConfig
	client *http.Client

	mu    sync.RWMutex
	cache map[string]rateTable
}

type rateTable struct {
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

func NewConverter(conf *core.Config) *Converter {
	return &Converter{
		conf:   conf.Forex,
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  make(map[string]rateTable),
	}
}

// Convert returns amount expressed in the `to` currency.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rates, err := c.rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, errors.Wrap(ErrUnknownCurrency, to)
	}
	return amount.Mul(rate), nil
}

func (c *Converter) rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	c.mu.RLock()
	cached, ok := c.cache[base]
	c.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < c.conf.CacheTTL {
		return cached.rates, nil
	}

	rates, err := c.fetch(ctx, base)
	if err != nil {
		// serve stale rates over an outage
		if ok {
			return cached.rates, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[base] = rateTable{rates: rates, fetchedAt: time.Now()}
	c.mu.Unlock()
	return rates, nil
}

type ratesResponse struct {
	Result string                     `json:"result"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

func (c *Converter) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/latest/%s", c.conf.BaseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building rates request")
	}
	if c.conf.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching rates")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, errors.Errorf("forex: status %d: %s", res.StatusCode, body)
	}

	var rr ratesResponse
	if err = json.NewDecoder(res.Body).Decode(&rr); err != nil {
		return nil, errors.Wrap(err, "decoding rates response")
	}
	if rr.Result != "success" {
		return nil, errors.Errorf("forex: result %q", rr.Result)
	}
	if _, ok := rr.Rates[base]; !ok {
		return nil, errors.Wrap(ErrUnknownCurrency, base)
	}
	return rr.Rates, nil
}
