// Package payments charges cards through a Stripe-compatible HTTP API.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrCardDeclined is returned when the payment provider rejects the
// card token. Callers map it to a client error instead of a server
// failure.
var ErrCardDeclined = errors.New("payments: card declined")

// Charger debits a card token for an amount in rappen and returns the
// provider's charge identifier.
type Charger interface {
	Charge(ctx context.Context, token string, amount uint64, description string) (string, error)
}

// StripeCharger talks to the Stripe charges endpoint. BaseURL is
// overridable so tests and staging can point at a mock server.
type StripeCharger struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewStripeCharger builds a charger for the given API base URL and
// secret key.
func NewStripeCharger(baseURL, secretKey string) *StripeCharger {
	return &StripeCharger{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

// chargeResponse is the subset of the provider's response we read.
type chargeResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Charge posts a charge in CHF for the given card token. Amounts are
// in rappen. A declined card yields ErrCardDeclined; transport and
// provider outages yield ordinary errors.
func (s *StripeCharger) Charge(ctx context.Context, token string, amount uint64, description string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatUint(amount, 10))
	form.Set("currency", "chf")
	form.Set("source", token)
	form.Set("description", description)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.secretKey, "")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("payments: charge request: %w", err)
	}
	defer resp.Body.Close()

	var body chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("payments: decode charge response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if body.ID == "" {
			return "", errors.New("payments: provider returned no charge id")
		}
		return body.ID, nil
	}
	if body.Error != nil && body.Error.Type == "card_error" {
		return "", fmt.Errorf("%w: %s", ErrCardDeclined, body.Error.Message)
	}
	if body.Error != nil {
		return "", fmt.Errorf("payments: provider error %q: %s", body.Error.Code, body.Error.Message)
	}
	return "", fmt.Errorf("payments: unexpected status %d", resp.StatusCode)
}
