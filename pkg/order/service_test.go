package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/expresskart/marketplace/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	insertFn         func(ctx context.Context, o *models.Order) error
	findByIDFn       func(ctx context.Context, id string) (*models.Order, error)
	listByCustomerFn func(ctx context.Context, customerID string) ([]models.Order, error)
	listByVendorFn   func(ctx context.Context, vendorID string) ([]models.Order, error)
	listAllFn        func(ctx context.Context) ([]models.Order, error)
	updateStatusFn   func(ctx context.Context, id string, from, to models.Status, at time.Time) error
}

func (m *mockStore) Insert(ctx context.Context, o *models.Order) error {
	return m.insertFn(ctx, o)
}
func (m *mockStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockStore) ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return m.listByCustomerFn(ctx, customerID)
}
func (m *mockStore) ListByVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	return m.listByVendorFn(ctx, vendorID)
}
func (m *mockStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return m.listAllFn(ctx)
}
func (m *mockStore) UpdateStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error {
	return m.updateStatusFn(ctx, id, from, to, at)
}

type mockCatalog struct {
	products map[string]*models.Product
}

func (m *mockCatalog) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

type mockNumbers struct{ next string }

func (m *mockNumbers) NextOrderNumber(ctx context.Context) (string, error) {
	return m.next, nil
}

func testCatalog() *mockCatalog {
	return &mockCatalog{products: map[string]*models.Product{
		"prod-1": {ID: "prod-1", VendorID: "vend-1", Name: "Masala Box", Price: 250, Active: true},
		"prod-2": {ID: "prod-2", VendorID: "vend-1", Name: "Copper Bottle", Price: 125, Active: true},
		"prod-3": {ID: "prod-3", VendorID: "vend-2", Name: "Jute Bag", Price: 80, Active: true},
		"prod-4": {ID: "prod-4", VendorID: "vend-1", Name: "Retired Item", Price: 60, Active: false},
	}}
}

func newTestService(store Store) *Service {
	return NewService(store, testCatalog(), &mockNumbers{next: "ORD-1001"}, nil, nil, nil, nil)
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:          "ord-1",
		OrderNumber: "ORD-1001",
		CustomerID:  "cust-1",
		VendorID:    "vend-1",
		Items: []models.OrderItem{
			{ProductID: "prod-1", ProductName: "Masala Box", UnitPrice: 250, Quantity: 2, Total: 500},
		},
		Subtotal: 500,
		Shipping: 50,
		Discount: 0,
		Total:    550,
		Status:   models.StatusPending,
	}
}

func TestCreateComputesTotals(t *testing.T) {
	var inserted *models.Order
	store := &mockStore{
		insertFn: func(ctx context.Context, o *models.Order) error {
			inserted = o
			return nil
		},
	}
	svc := newTestService(store)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "cust-1",
		Items: []CreateItem{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		},
		Shipping: 50,
		Discount: 25,
	})
	require.NoError(t, err)
	require.NotNil(t, inserted)

	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, "ORD-1001", o.OrderNumber)
	assert.Equal(t, "vend-1", o.VendorID)
	assert.Equal(t, 625.0, o.Subtotal)
	assert.Equal(t, o.Subtotal+o.Shipping-o.Discount, o.Total)
	for _, item := range o.Items {
		assert.Equal(t, item.UnitPrice*float64(item.Quantity), item.Total)
	}
}

func TestCreateRejectsMixedVendors(t *testing.T) {
	svc := newTestService(&mockStore{})
	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "cust-1",
		Items: []CreateItem{
			{ProductID: "prod-1", Quantity: 1},
			{ProductID: "prod-3", Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := newTestService(&mockStore{})
	ctx := context.Background()

	cases := []CreateRequest{
		{Items: []CreateItem{{ProductID: "prod-1", Quantity: 1}}},                                      // no customer
		{CustomerID: "cust-1"},                                                                        // no items
		{CustomerID: "cust-1", Items: []CreateItem{{ProductID: "prod-1", Quantity: 0}}},               // zero quantity
		{CustomerID: "cust-1", Items: []CreateItem{{ProductID: "missing", Quantity: 1}}},              // unknown product
		{CustomerID: "cust-1", Items: []CreateItem{{ProductID: "prod-4", Quantity: 1}}},               // inactive product
		{CustomerID: "cust-1", Items: []CreateItem{{ProductID: "prod-1", Quantity: 1}}, Discount: -1}, // negative discount
		{CustomerID: "cust-1", Items: []CreateItem{{ProductID: "prod-2", Quantity: 1}}, Discount: 500},
	}
	for i, req := range cases {
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
}

func TestTransitionHappyPath(t *testing.T) {
	o := pendingOrder()
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			cp := *o
			return &cp, nil
		},
		updateStatusFn: func(ctx context.Context, id string, from, to models.Status, at time.Time) error {
			assert.Equal(t, o.ID, id)
			assert.Equal(t, o.Status, from)
			o.Status = to
			return nil
		},
	}
	svc := newTestService(store)
	vendor := models.Actor{ID: "vend-1", Role: models.RoleVendor}

	updated, err := svc.Transition(context.Background(), "ord-1", "confirmed", vendor)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	// money fields untouched
	assert.Equal(t, 550.0, updated.Total)
	assert.Equal(t, 500.0, updated.Subtotal)
	assert.Equal(t, 50.0, updated.Shipping)
}

func TestTransitionFullLifecycle(t *testing.T) {
	o := pendingOrder()
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			cp := *o
			return &cp, nil
		},
		updateStatusFn: func(ctx context.Context, id string, from, to models.Status, at time.Time) error {
			if o.Status != from {
				return ErrStatusConflict
			}
			o.Status = to
			return nil
		},
	}
	svc := newTestService(store)
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	ctx := context.Background()

	for _, next := range []string{"confirmed", "processing", "shipped", "delivered"} {
		updated, err := svc.Transition(ctx, "ord-1", next, admin)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, models.Status(next), updated.Status)
	}

	// delivered is terminal
	_, err := svc.Transition(ctx, "ord-1", "shipped", admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Transition(ctx, "ord-1", "cancelled", admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionRejectsInvalidMoves(t *testing.T) {
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			return pendingOrder(), nil
		},
	}
	svc := newTestService(store)
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	ctx := context.Background()

	// backwards, skipping ahead, and same-status
	for _, target := range []string{"pending", "shipped", "delivered", "processing"} {
		_, err := svc.Transition(ctx, "ord-1", target, admin)
		assert.ErrorIs(t, err, ErrInvalidTransition, "target=%s", target)
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&mockStore{})
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Transition(context.Background(), "ord-1", "misplaced", admin)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionForbiddenForCustomers(t *testing.T) {
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			return pendingOrder(), nil
		},
	}
	svc := newTestService(store)

	// even the owning customer may not write status directly
	owner := models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	_, err := svc.Transition(context.Background(), "ord-1", "confirmed", owner)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTransitionForbiddenForOtherVendor(t *testing.T) {
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			return pendingOrder(), nil
		},
	}
	svc := newTestService(store)

	stranger := models.Actor{ID: "vend-2", Role: models.RoleVendor}
	_, err := svc.Transition(context.Background(), "ord-1", "confirmed", stranger)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTransitionNotFound(t *testing.T) {
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			return nil, ErrNotFound
		},
	}
	svc := newTestService(store)
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Transition(context.Background(), "nope", "confirmed", admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	o := pendingOrder()
	var mu sync.Mutex
	// both callers must observe pending before either write commits
	var reads sync.WaitGroup
	reads.Add(2)
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			mu.Lock()
			cp := *o
			mu.Unlock()
			reads.Done()
			reads.Wait()
			return &cp, nil
		},
		updateStatusFn: func(ctx context.Context, id string, from, to models.Status, at time.Time) error {
			mu.Lock()
			defer mu.Unlock()
			if o.Status != from {
				return ErrStatusConflict
			}
			o.Status = to
			return nil
		},
	}
	svc := newTestService(store)
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	targets := []string{"confirmed", "cancelled"}
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), "ord-1", targets[i], admin)
		}(i)
	}
	wg.Wait()

	var ok, conflicted int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
			conflicted++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicted)
}

func TestRequestCancellation(t *testing.T) {
	o := pendingOrder()
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			cp := *o
			return &cp, nil
		},
		updateStatusFn: func(ctx context.Context, id string, from, to models.Status, at time.Time) error {
			if o.Status != from {
				return ErrStatusConflict
			}
			o.Status = to
			return nil
		},
	}
	svc := newTestService(store)
	ctx := context.Background()
	owner := models.Actor{ID: "cust-1", Role: models.RoleCustomer}

	updated, err := svc.RequestCancellation(ctx, "ord-1", owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestRequestCancellationRestrictions(t *testing.T) {
	o := pendingOrder()
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			cp := *o
			return &cp, nil
		},
	}
	svc := newTestService(store)
	ctx := context.Background()

	// not the owner
	_, err := svc.RequestCancellation(ctx, "ord-1", models.Actor{ID: "cust-2", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, ErrForbidden)

	// wrong role, even the owning vendor
	_, err = svc.RequestCancellation(ctx, "ord-1", models.Actor{ID: "vend-1", Role: models.RoleVendor})
	assert.ErrorIs(t, err, ErrForbidden)

	// too late once the order is past confirmed
	o.Status = models.StatusShipped
	_, err = svc.RequestCancellation(ctx, "ord-1", models.Actor{ID: "cust-1", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetAppliesOwnershipRule(t *testing.T) {
	store := &mockStore{
		findByIDFn: func(ctx context.Context, id string) (*models.Order, error) {
			return pendingOrder(), nil
		},
	}
	svc := newTestService(store)
	ctx := context.Background()

	cases := []struct {
		actor   models.Actor
		allowed bool
	}{
		{models.Actor{ID: "cust-1", Role: models.RoleCustomer}, true},
		{models.Actor{ID: "cust-2", Role: models.RoleCustomer}, false},
		{models.Actor{ID: "vend-1", Role: models.RoleVendor}, true},
		{models.Actor{ID: "vend-2", Role: models.RoleVendor}, false},
		{models.Actor{ID: "admin-1", Role: models.RoleAdmin}, true},
	}
	for _, tc := range cases {
		o, err := svc.Get(ctx, "ord-1", tc.actor)
		if tc.allowed {
			assert.NoError(t, err, "actor=%s/%s", tc.actor.Role, tc.actor.ID)
			assert.NotNil(t, o)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "actor=%s/%s", tc.actor.Role, tc.actor.ID)
		}
	}
}

func TestListAllRequiresAdmin(t *testing.T) {
	store := &mockStore{
		listAllFn: func(ctx context.Context) ([]models.Order, error) {
			return []models.Order{*pendingOrder()}, nil
		},
	}
	svc := newTestService(store)
	ctx := context.Background()

	orders, err := svc.ListAll(ctx, models.Actor{ID: "admin-1", Role: models.RoleAdmin})
	assert.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = svc.ListAll(ctx, models.Actor{ID: "vend-1", Role: models.RoleVendor})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListAll(ctx, models.Actor{ID: "cust-1", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestScopedListsPassThrough(t *testing.T) {
	store := &mockStore{
		listByCustomerFn: func(ctx context.Context, customerID string) ([]models.Order, error) {
			assert.Equal(t, "cust-1", customerID)
			return []models.Order{*pendingOrder()}, nil
		},
		listByVendorFn: func(ctx context.Context, vendorID string) ([]models.Order, error) {
			assert.Equal(t, "vend-2", vendorID)
			return nil, nil
		},
	}
	svc := newTestService(store)
	ctx := context.Background()

	orders, err := svc.ListForCustomer(ctx, "cust-1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)

	// a vendor with no items in any order sees nothing
	orders, err = svc.ListForVendor(ctx, "vend-2")
	assert.NoError(t, err)
	assert.Empty(t, orders)
}
