package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLegacyNamesAreEquivalent(t *testing.T) {
	payload := json.RawMessage(`{"orderId":"17","orderNumber":"ORD-0017","status":"PLACED","branch":"downtown"}`)

	newNames := []string{"new-order", "newOrder", "order:new", "new_order", "order-created"}
	for _, name := range newNames {
		ev, err := Normalize(name, payload)
		require.NoError(t, err, "event name %q", name)
		assert.Equal(t, KindNew, ev.Kind, "event name %q", name)
		assert.Equal(t, "ORD-0017", ev.OrderNumber)
		assert.Equal(t, "downtown", ev.Branch)
	}

	updNames := []string{"order-updated", "orderUpdated", "order:updated", "order_updated"}
	for _, name := range updNames {
		ev, err := Normalize(name, payload)
		require.NoError(t, err, "event name %q", name)
		assert.Equal(t, KindUpdated, ev.Kind, "event name %q", name)
	}
}

func TestNormalizeRejectsUnknownEventName(t *testing.T) {
	_, err := Normalize("order-deleted", json.RawMessage(`{"orderNumber":"ORD-1"}`))
	assert.Error(t, err)
}

func TestNormalizeRejectsMissingOrderNumber(t *testing.T) {
	_, err := Normalize("new-order", json.RawMessage(`{"orderId":"17","status":"PLACED"}`))
	assert.Error(t, err)

	_, err = Normalize("new-order", json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestNormalizeNestedPayloadShape(t *testing.T) {
	// Older gateways wrap the order one level down and may leave the branch at
	// the top level.
	payload := json.RawMessage(`{
		"branch": "riverside",
		"order": {"orderId":"9","orderNumber":"ORD-0009","status":"READY","updatedByRole":"MANAGER"}
	}`)

	ev, err := Normalize("orderUpdated", payload)
	require.NoError(t, err)
	assert.Equal(t, "ORD-0009", ev.OrderNumber)
	assert.Equal(t, "riverside", ev.Branch)
	assert.Equal(t, "MANAGER", ev.ActorRole)
}

func TestNormalizeBranchFallbackChain(t *testing.T) {
	// branchId is accepted when branch is absent.
	ev, err := Normalize("new-order", json.RawMessage(`{"orderNumber":"ORD-2","branchId":"downtown"}`))
	require.NoError(t, err)
	assert.Equal(t, "downtown", ev.Branch)

	// Inner branch wins over outer.
	ev, err = Normalize("new-order", json.RawMessage(`{
		"branch": "outer",
		"order": {"orderNumber":"ORD-3","branch":"inner"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "inner", ev.Branch)
}

func TestNormalizeTimestampDefaultsToNow(t *testing.T) {
	before := time.Now()
	ev, err := Normalize("new-order", json.RawMessage(`{"orderNumber":"ORD-4"}`))
	require.NoError(t, err)
	assert.False(t, ev.Timestamp.Before(before))

	ev, err = Normalize("new-order", json.RawMessage(`{"orderNumber":"ORD-5","timestamp":"2026-03-01T10:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 2026, ev.Timestamp.Year())
}
