package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/abgdnv/catalog/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockUpdatedEvent(t *testing.T) {
	// given
	updatedAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	event := StockUpdatedEvent{ProductID: "P1", UnitsInStock: 12, UpdatedAt: updatedAt}

	// when
	payload, err := event.Payload()

	// then
	require.NoError(t, err)
	assert.Equal(t, messaging.StockUpdatedSubject, event.Subject())
	assert.JSONEq(t, `{"product_id":"P1","units_in_stock":12,"updated_at":"2025-07-01T12:00:00Z"}`, string(payload))

	var decoded StockUpdatedEvent
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, event, decoded)
}
