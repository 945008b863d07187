package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "2000", r.FormValue("amount"))
		assert.Equal(t, "chf", r.FormValue("currency"))
		assert.Equal(t, "tok_visa", r.FormValue("source"))
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_123", user)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ch_1"}`))
	}))
	defer srv.Close()

	c := NewStripeCharger(srv.URL, "sk_test_123")
	id, err := c.Charge(context.Background(), "tok_visa", 2000, "course signups")
	require.NoError(t, err)
	assert.Equal(t, "ch_1", id)
}

func TestChargeDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	c := NewStripeCharger(srv.URL, "sk_test_123")
	_, err := c.Charge(context.Background(), "tok_chargeDeclined", 1000, "course signups")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCardDeclined)
}

func TestChargeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","code":"rate_limit","message":"busy"}}`))
	}))
	defer srv.Close()

	c := NewStripeCharger(srv.URL, "sk_test_123")
	_, err := c.Charge(context.Background(), "tok_visa", 1000, "course signups")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCardDeclined)
}
