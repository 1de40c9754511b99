// Package paysvc implements the online payment gateway on Stripe
// PaymentIntents.
package paysvc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/payment"
)

const referencePrefix = "STRIPE-"

type stripeGateway struct {
	api    *client.API
	logger core.Logger
}

var _ payment.Gateway = (*stripeGateway)(nil)

func NewStripeGateway(conf *core.Config, logger core.Logger) *stripeGateway {
	api := &client.API{}
	api.Init(conf.Stripe.SecretKey, nil)
	return &stripeGateway{api: api, logger: logger}
}

// CreateIntent opens a PaymentIntent for the full payment amount. Amounts
// are charged in centavos.
func (gw *stripeGateway) CreateIntent(ctx context.Context, pmt payment.Payment) (payment.CheckoutIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(centavos(pmt.Amount)),
		Currency: stripe.String(string(stripe.CurrencyPHP)),
	}
	params.AddMetadata("payment_id", pmt.ID)
	params.AddMetadata("tenant_id", pmt.TenantID)

	intent, err := gw.api.PaymentIntents.New(params)
	if err != nil {
		return payment.CheckoutIntent{}, errors.Wrap(err, "creating payment intent")
	}
	return payment.CheckoutIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ReferenceNo derives the recorded reference number from an intent ID,
// keeping the last 12 characters.
func (gw *stripeGateway) ReferenceNo(intentID string) string {
	id := strings.TrimSpace(intentID)
	if len(id) > 12 {
		id = id[len(id)-12:]
	}
	return referencePrefix + id
}

func centavos(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
