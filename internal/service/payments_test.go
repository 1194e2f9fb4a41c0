package service

import (
	"context"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     int64
		wantErr  bool
	}{
		{"usd", 12.34, "usd", 1234, false},
		{"rounds float noise", 19.99, "EUR", 1999, false},
		{"half cent rounds up", 0.005, "usd", 1, false},
		{"jpy untouched", 1500, "JPY", 1500, false},
		{"lower-case zero decimal", 2500, "krw", 2500, false},
		{"zero", 0, "usd", 0, true},
		{"negative", -5, "usd", 0, true},
		{"nan", math.NaN(), "usd", 0, true},
		{"cents overflow", math.MaxInt64 / 100 * 2, "usd", 0, true},
		{"zero decimal overflow", math.MaxInt64, "JPY", 0, true},
		{"largest cents amount", 1e16, "usd", 1e18, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.amount, tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"clientSecret": "pi_1_secret_2"})
	})

	secret, err := f.api.CreatePaymentIntent(context.Background(), "b1", 49.5, "USD")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_2", secret)

	got := f.last(t)
	assert.Equal(t, "/payments/create-intent", got.Path)
	assert.Equal(t, map[string]any{
		"amount":    float64(4950),
		"currency":  "usd",
		"bookingId": "b1",
	}, got.Body)
}

func TestCreatePaymentIntent_MissingSecret(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.api.CreatePaymentIntent(context.Background(), "b1", 10, "usd")
	assert.Error(t, err)
}
