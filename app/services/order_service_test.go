package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sofrapos/sofra/app/models"
	"github.com/sofrapos/sofra/app/repositories"
	"github.com/sofrapos/sofra/internal/hub"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.OrderStatus }{
		{models.StatusPlaced, models.StatusConfirmed},
		{models.StatusPlaced, models.StatusCancelled},
		{models.StatusConfirmed, models.StatusPreparing},
		{models.StatusPreparing, models.StatusReady},
		{models.StatusReady, models.StatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to models.OrderStatus }{
		{models.StatusPlaced, models.StatusReady},
		{models.StatusReady, models.StatusCancelled},
		{models.StatusCompleted, models.StatusPlaced},
		{models.StatusCancelled, models.StatusConfirmed},
		{models.StatusPlaced, models.StatusPlaced},
	}
	for _, tc := range denied {
		assert.False(t, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Branch{}, &models.User{}, &models.Order{}))
	require.NoError(t, db.Create(&models.Branch{Code: "downtown", Name: "Downtown"}).Error)
	return db
}

func newTestService(t *testing.T) (*OrderService, <-chan hub.Frame) {
	t.Helper()
	h := hub.New("test-secret")
	frames, cancel := h.Subscribe()
	t.Cleanup(cancel)
	return NewOrderService(repositories.NewOrderRepository(testDB(t)), h), frames
}

func waitFrame(t *testing.T, frames <-chan hub.Frame) hub.Frame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(time.Second):
		t.Fatal("no hub frame published")
		return hub.Frame{}
	}
}

func TestCreatePublishesNewOrder(t *testing.T) {
	svc, frames := newTestService(t)

	order, err := svc.Create(CreateOrderInput{
		Branch: "downtown", Total: 42.5, ActorID: 1, ActorRole: "STAFF",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaced, order.Status)
	assert.True(t, strings.HasPrefix(order.Number, "ORD-"))
	assert.Equal(t, "downtown", order.Branch.Code)

	f := waitFrame(t, frames)
	assert.Equal(t, hub.EventNewOrder, f.Event)
	assert.Equal(t, "downtown", f.Branch)
	assert.Contains(t, string(f.Payload), order.Number)
}

func TestCreateUnknownBranch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(CreateOrderInput{Branch: "nowhere"})
	assert.ErrorIs(t, err, ErrUnknownBranch)

	_, err = svc.Create(CreateOrderInput{})
	assert.ErrorIs(t, err, ErrUnknownBranch)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	svc, frames := newTestService(t)

	order, err := svc.Create(CreateOrderInput{Branch: "downtown", ActorRole: "STAFF"})
	require.NoError(t, err)
	waitFrame(t, frames) // drain the new-order frame

	updated, err := svc.UpdateStatus(order.ID, models.StatusConfirmed, "MANAGER")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	f := waitFrame(t, frames)
	assert.Equal(t, hub.EventOrderUpdated, f.Event)
	assert.Contains(t, string(f.Payload), `"updatedByRole":"MANAGER"`)

	// Skipping a step is rejected and publishes nothing.
	_, err = svc.UpdateStatus(order.ID, models.StatusCompleted, "MANAGER")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	select {
	case f := <-frames:
		t.Fatalf("unexpected frame %q after rejected transition", f.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.UpdateStatus(999, models.StatusConfirmed, "MANAGER")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListScopedByBranch(t *testing.T) {
	svc, frames := newTestService(t)
	_, err := svc.Create(CreateOrderInput{Branch: "downtown"})
	require.NoError(t, err)
	waitFrame(t, frames)

	orders, err := svc.List("downtown", 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	all, err := svc.List("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.List("nowhere", 0)
	assert.ErrorIs(t, err, ErrUnknownBranch)
}
