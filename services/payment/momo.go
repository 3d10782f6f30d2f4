package paymentsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/elimuhub/elimu/core"
	"github.com/elimuhub/elimu/core/enroll"
)

// MoMoProvider drives the MTN Mobile Money Collections API. A request-to-pay
// is initiated when a purchase begins; capture polls the request's status and
// succeeds only once the payer has approved it on their handset.
type MoMoProvider struct {
	conf   core.MoMoConfig
	client *http.Client
}

var _ enroll.PaymentProvider = (*MoMoProvider)(nil)

func NewMoMoProvider(conf *core.Config) *MoMoProvider {
	return &MoMoProvider{
		conf:   conf.MoMo,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type (
	momoRequestToPay struct {
		Amount     string `json:"amount"`
		Currency   string `json:"currency"`
		ExternalID string `json:"externalId"`
		PayerNote  string `json:"payerNote,omitempty"`
	}

	momoStatusResponse struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Status   string `json:"status"` // PENDING | SUCCESSFUL | FAILED
	}
)

func (p *MoMoProvider) CreateOrder(ctx context.Context, ord enroll.ProviderOrder) (string, string, error) {
	ref := uuid.New().String()

	payload := momoRequestToPay{
		Amount:     ord.Amount.StringFixed(2),
		Currency:   ord.Currency,
		ExternalID: ref,
		PayerNote:  ord.Description,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", "", errors.Wrap(err, "encoding request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.conf.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(raw))
	if err != nil {
		return "", "", errors.Wrap(err, "building request")
	}
	p.setHeaders(req)
	req.Header.Set("X-Reference-Id", ref)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return "", "", errors.Wrap(err, "requesting payment")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(res.Body)
		return "", "", errors.Errorf("momo requesttopay: status %d: %s", res.StatusCode, body)
	}

	// approval happens on the payer's handset; there is no redirect URL
	return ref, "", nil
}

func (p *MoMoProvider) CaptureOrder(ctx context.Context, ref string) (enroll.CaptureResult, error) {
	path := fmt.Sprintf("/collection/v1_0/requesttopay/%s", ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.conf.BaseURL+path, nil)
	if err != nil {
		return enroll.CaptureResult{}, errors.Wrap(err, "building request")
	}
	p.setHeaders(req)

	res, err := p.client.Do(req)
	if err != nil {
		return enroll.CaptureResult{}, errors.Wrap(err, "checking payment status")
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return enroll.CaptureResult{}, errors.Errorf("momo status: status %d: %s", res.StatusCode, body)
	}

	var sr momoStatusResponse
	if err = json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return enroll.CaptureResult{}, errors.Wrap(err, "decoding status response")
	}
	if sr.Status != "SUCCESSFUL" {
		return enroll.CaptureResult{Captured: false}, nil
	}

	amount, err := decimal.NewFromString(sr.Amount)
	if err != nil {
		return enroll.CaptureResult{}, errors.Wrap(err, "parsing captured amount")
	}
	return enroll.CaptureResult{Captured: true, Amount: amount, Currency: sr.Currency}, nil
}

func (p *MoMoProvider) setHeaders(req *http.Request) {
	req.Header.Set("Ocp-Apim-Subscription-Key", p.conf.SubscriptionKey)
	req.Header.Set("X-Target-Environment", p.conf.TargetEnv)
}
