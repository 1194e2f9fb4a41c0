package service

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// zeroDecimal lists the currencies whose smallest unit is the major unit.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// ToMinorUnits converts an amount in major units to the integer amount the
// payment provider expects, rounding to the nearest unit.
func ToMinorUnits(amount float64, currency string) (int64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("internal/service: invalid amount %v", amount)
	}
	scaled := amount
	if !zeroDecimal[strings.ToUpper(currency)] {
		scaled = amount * 100
	}
	scaled = math.Round(scaled)
	// float64(math.MaxInt64) is 2^63, the first value that does not fit.
	if scaled >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("internal/service: amount %v %s is too large", amount, currency)
	}
	return int64(scaled), nil
}

type PaymentIntentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency" validate:"required,len=3"`
	BookingID string `json:"bookingId,omitempty"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// CreatePaymentIntent starts a payment of amount (major units) and returns
// the client secret used to confirm it.
func (a *API) CreatePaymentIntent(ctx context.Context, bookingID string, amount float64, currency string) (string, error) {
	minor, err := ToMinorUnits(amount, currency)
	if err != nil {
		return "", err
	}
	req := PaymentIntentRequest{
		Amount:    minor,
		Currency:  strings.ToLower(currency),
		BookingID: bookingID,
	}
	if err := a.check(req); err != nil {
		return "", err
	}

	var res paymentIntentResponse
	if err := a.client.Post(ctx, "/payments/create-intent", req, &res); err != nil {
		return "", err
	}
	if res.ClientSecret == "" {
		return "", fmt.Errorf("internal/service: payment intent response has no client secret")
	}
	return res.ClientSecret, nil
}
