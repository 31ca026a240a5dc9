// Package payments wraps Stripe checkout for accepted cost estimates.
package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

type Client struct {
	client        *stripe.Client
	webhookSecret string
	baseURL       string
}

func NewClient(secretKey, webhookSecret, baseURL string) *Client {
	return &Client{
		client:        stripe.NewClient(secretKey),
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
	}
}

// CheckoutParams holds parameters for creating an estimate checkout session.
type CheckoutParams struct {
	EstimateID    uuid.UUID
	RepairID      uuid.UUID
	Description   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
}

// CreateEstimateCheckout creates a checkout session for an accepted cost
// estimate. The estimate ID rides in the session metadata so the webhook
// can mark the right estimate paid.
func (c *Client) CreateEstimateCheckout(ctx context.Context, params CheckoutParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("estimate amount must be positive")
	}

	currency := params.Currency
	if currency == "" {
		currency = "pln"
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(c.baseURL + "/repairs/" + params.RepairID.String() + "?payment=success"),
		CancelURL:          stripe.String(c.baseURL + "/repairs/" + params.RepairID.String() + "?payment=cancelled"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
					UnitAmount: stripe.Int64(params.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(params.CustomerEmail),
		Metadata: map[string]string{
			"estimate_id": params.EstimateID.String(),
			"repair_id":   params.RepairID.String(),
		},
	}
	if params.CustomerEmail == "" {
		sessionParams.CustomerEmail = nil
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}

// ReadWebhookEvent verifies the Stripe-Signature header and decodes the
// event payload.
func (c *Client) ReadWebhookEvent(r *http.Request) (*stripe.Event, error) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return nil, fmt.Errorf("missing stripe signature header")
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature validation failed: %w", err)
	}
	return &event, nil
}
