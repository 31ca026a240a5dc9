// Package storage persists shipping label documents after first retrieval
// so repeat downloads never hit the carrier again.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	Upload(ctx context.Context, path string, body []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
}

// LabelPath is the canonical object key for a shipment's label.
func LabelPath(shipmentID string) string {
	return fmt.Sprintf("%s/label.pdf", shipmentID)
}
