package paymentsvc

import (
	"bytes"
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
	"github.com/elimuhub/elimu/core/enroll"
)

// PayPalProvider drives the PayPal Orders v2 API: an order is created when a
// purchase begins and captured once the buyer approves it.
type PayPalProvider struct {
	conf   core.PayPalConfig
	client *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ enroll.PaymentProvider = (*PayPalProvider)(nil)

func NewPayPalProvider(conf *core.Config) *PayPalProvider {
	return &PayPalProvider{
		conf:   conf.PayPal,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type (
	paypalTokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	paypalAmount struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
	}

	paypalPurchaseUnit struct {
		Amount      paypalAmount `json:"amount"`
		Description string       `json:"description,omitempty"`
	}

	paypalOrderRequest struct {
		Intent        string               `json:"intent"`
		PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
	}

	paypalLink struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	}

	paypalOrderResponse struct {
		ID            string       `json:"id"`
		Status        string       `json:"status"`
		Links         []paypalLink `json:"links"`
		PurchaseUnits []struct {
			Amount   paypalAmount `json:"amount"`
			Payments struct {
				Captures []struct {
					Status string       `json:"status"`
					Amount paypalAmount `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
)

// token returns a cached OAuth2 access token, fetching a fresh one when the
// cached one is within a minute of expiry.
func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.conf.BaseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", errors.Wrap(err, "building token request")
	}
	req.SetBasicAuth(p.conf.ClientID, p.conf.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting token")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return "", errors.Errorf("paypal token: status %d: %s", res.StatusCode, body)
	}

	var tr paypalTokenResponse
	if err = json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(err, "decoding token response")
	}
	p.accessToken = tr.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return p.accessToken, nil
}

func (p *PayPalProvider) do(ctx context.Context, method, path string, payload, out interface{}) error {
	tok, err := p.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.conf.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", path)
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(res.Body)
		return errors.Errorf("paypal %s: status %d: %s", path, res.StatusCode, raw)
	}
	if out != nil {
		if err = json.NewDecoder(res.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response")
		}
	}
	return nil
}

func (p *PayPalProvider) CreateOrder(ctx context.Context, ord enroll.ProviderOrder) (string, string, error) {
	payload := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			Amount: paypalAmount{
				CurrencyCode: ord.Currency,
				Value:        ord.Amount.StringFixed(2),
			},
			Description: ord.Description,
		}},
	}

	var res paypalOrderResponse
	if err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, &res); err != nil {
		return "", "", err
	}

	var approveURL string
	for _, link := range res.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	return res.ID, approveURL, nil
}

func (p *PayPalProvider) CaptureOrder(ctx context.Context, ref string) (enroll.CaptureResult, error) {
	var res paypalOrderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", ref)
	if err := p.do(ctx, http.MethodPost, path, struct{}{}, &res); err != nil {
		return enroll.CaptureResult{}, err
	}

	result := enroll.CaptureResult{Captured: res.Status == "COMPLETED"}
	for _, pu := range res.PurchaseUnits {
		for _, cap := range pu.Payments.Captures {
			if cap.Status == "COMPLETED" {
				amount, err := decimal.NewFromString(cap.Amount.Value)
				if err != nil {
					return enroll.CaptureResult{}, errors.Wrap(err, "parsing captured amount")
				}
				result.Amount = result.Amount.Add(amount)
				result.Currency = cap.Amount.CurrencyCode
			}
		}
	}
	return result, nil
}
