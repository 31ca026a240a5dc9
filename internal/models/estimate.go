package models

import (
	"time"

	"github.com/google/uuid"
)

type EstimateStatus string

const (
	EstimatePending  EstimateStatus = "pending"
	EstimateAccepted EstimateStatus = "accepted"
	EstimateRejected EstimateStatus = "rejected"
)

type CostEstimate struct {
	ID                      uuid.UUID      `json:"id"`
	RepairID                uuid.UUID      `json:"repair_id"`
	Description             string         `json:"description"`
	PartsCents              int            `json:"parts_cents"`
	LaborCents              int            `json:"labor_cents"`
	TotalCents              int            `json:"total_cents"`
	Currency                string         `json:"currency"`
	Status                  EstimateStatus `json:"status"`
	StripeCheckoutSessionID string         `json:"stripe_checkout_session_id,omitempty"`
	AcceptedAt              time.Time      `json:"accepted_at"`
	PaidAt                  time.Time      `json:"paid_at"`
	CreatedAt               time.Time      `json:"created_at"`
}
