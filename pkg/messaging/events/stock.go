// Package events holds the payloads published by the catalog.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/catalog/pkg/messaging"
	"go.opentelemetry.io/otel/propagation"
)

// StockUpdatedEvent is published after units in stock of a product were assigned.
// Carrier holds the trace context of the request that made the change.
type StockUpdatedEvent struct {
	Carrier      propagation.MapCarrier `json:"carrier,omitempty"`
	ProductID    string                 `json:"product_id"`
	UnitsInStock int64                  `json:"units_in_stock"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func (e StockUpdatedEvent) Subject() string {
	return messaging.StockUpdatedSubject
}

func (e StockUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
