package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expresskart/marketplace/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists orders. FindByID returns ErrNotFound for unknown ids.
// UpdateStatus must be a single conditional write: set the status to `to`
// only where the current status still equals `from`, returning
// ErrStatusConflict when the condition no longer holds and ErrNotFound when
// the order is gone. Status updates never touch monetary or address fields.
type Store interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error
}

// Catalog resolves products at checkout.
type Catalog interface {
	FindProduct(ctx context.Context, id string) (*models.Product, error)
}

// NumberSource issues unique, human-readable order numbers.
type NumberSource interface {
	NextOrderNumber(ctx context.Context) (string, error)
}

// Cache keeps a read-side order summary. Best-effort only.
type Cache interface {
	CacheOrder(ctx context.Context, o *models.Order) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

// StatusChange is published after every committed transition.
type StatusChange struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	CustomerID  string        `json:"customer_id"`
	VendorID    string        `json:"vendor_id"`
	From        models.Status `json:"from"`
	To          models.Status `json:"to"`
	ActorID     string        `json:"actor_id"`
	ActorRole   models.Role   `json:"actor_role"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// Publisher fans status changes out to interested consumers. Best-effort.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change StatusChange) error
}

// Auditor records order history entries. Best-effort.
type Auditor interface {
	RecordCreation(ctx context.Context, o *models.Order) error
	RecordTransition(ctx context.Context, change StatusChange) error
}

// Service implements the order lifecycle: checkout, role-scoped reads and
// the status state machine. Authorization failures and state-machine
// failures are distinct error kinds so callers can tell "you may not" from
// "this transition does not exist".
type Service struct {
	store   Store
	catalog Catalog
	numbers NumberSource
	cache   Cache
	events  Publisher
	audit   Auditor
	logger  *zap.Logger
}

// NewService wires the order service. cache, events and audit may be nil;
// they are best-effort hooks and never fail an operation.
func NewService(store Store, catalog Catalog, numbers NumberSource, cache Cache, events Publisher, audit Auditor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		catalog: catalog,
		numbers: numbers,
		cache:   cache,
		events:  events,
		audit:   audit,
		logger:  logger,
	}
}

// CreateItem is one requested line at checkout.
type CreateItem struct {
	ProductID string
	Quantity  int32
}

// CreateRequest is the checkout payload. Address and customer contact data
// are snapshotted into the order as-is.
type CreateRequest struct {
	CustomerID    string
	Customer      models.CustomerSnapshot
	Address       models.Address
	PaymentMethod string
	Items         []CreateItem
	Shipping      float64
	Discount      float64
}

// Create validates the request against the catalog, snapshots prices and
// inserts a new order in status pending. All items must belong to the same
// vendor: an order is scoped to exactly one vendor.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	if req.CustomerID == "" {
		return nil, fmt.Errorf("%w: missing customer id", ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}
	if req.Shipping < 0 || req.Discount < 0 {
		return nil, fmt.Errorf("%w: negative shipping or discount", ErrValidation)
	}

	var (
		vendorID string
		items    = make([]models.OrderItem, 0, len(req.Items))
		subtotal float64
	)
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", ErrValidation, it.ProductID)
		}
		product, err := s.catalog.FindProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown product %s", ErrValidation, it.ProductID)
			}
			return nil, fmt.Errorf("lookup product %s: %w", it.ProductID, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: product %s is not for sale", ErrValidation, it.ProductID)
		}
		if vendorID == "" {
			vendorID = product.VendorID
		} else if product.VendorID != vendorID {
			return nil, fmt.Errorf("%w: all items must belong to a single vendor", ErrValidation)
		}

		lineTotal := product.Price * float64(it.Quantity)
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    it.Quantity,
			Total:       lineTotal,
		})
		subtotal += lineTotal
	}

	total := subtotal + req.Shipping - req.Discount
	if total < 0 {
		return nil, fmt.Errorf("%w: discount exceeds order value", ErrValidation)
	}

	number, err := s.numbers.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue order number: %w", err)
	}

	now := time.Now().UTC()
	o := &models.Order{
		ID:            uuid.NewString(),
		OrderNumber:   number,
		CustomerID:    req.CustomerID,
		VendorID:      vendorID,
		Items:         items,
		Subtotal:      subtotal,
		Shipping:      req.Shipping,
		Discount:      req.Discount,
		Total:         total,
		Address:       req.Address,
		Customer:      req.Customer,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: "unpaid",
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("customer_id", o.CustomerID),
		zap.String("vendor_id", o.VendorID),
		zap.Float64("total", o.Total))

	if s.cache != nil {
		if err := s.cache.CacheOrder(ctx, o); err != nil {
			s.logger.Warn("failed to cache order", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if s.audit != nil {
		go func(o models.Order) {
			if err := s.audit.RecordCreation(context.Background(), &o); err != nil {
				s.logger.Warn("failed to audit order creation", zap.String("order_id", o.ID), zap.Error(err))
			}
		}(*o)
	}

	return o, nil
}

// ListForCustomer returns the customer's own orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.store.ListByCustomer(ctx, customerID)
}

// ListForVendor returns orders scoped to the vendor, newest first.
func (s *Service) ListForVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	return s.store.ListByVendor(ctx, vendorID)
}

// ListAll returns every order, newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: listing all orders requires admin", ErrForbidden)
	}
	return s.store.ListAll(ctx)
}

// Get returns a single order if the actor is the owning customer, the
// owning vendor or an admin. The ownership rule is exactly the one the list
// operations apply.
func (s *Service) Get(ctx context.Context, orderID string, actor models.Actor) (*models.Order, error) {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(o, actor); err != nil {
		return nil, err
	}
	return o, nil
}

func authorizeView(o *models.Order, actor models.Actor) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCustomer:
		if o.OwnedByCustomer(actor.ID) {
			return nil
		}
	case models.RoleVendor:
		if o.OwnedByVendor(actor.ID) {
			return nil
		}
	}
	return fmt.Errorf("%w: order %s", ErrForbidden, o.ID)
}

// Transition moves an order to rawStatus on behalf of actor. Customers can
// never set status through this path; vendors only on their own orders.
// The write is a conditional update against the status the validity check
// saw, so concurrent writers resolve to exactly one winner.
func (s *Service) Transition(ctx context.Context, orderID, rawStatus string, actor models.Actor) (*models.Order, error) {
	requested, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleVendor:
		if !o.OwnedByVendor(actor.ID) {
			return nil, fmt.Errorf("%w: order %s belongs to another vendor", ErrForbidden, o.ID)
		}
	default:
		return nil, fmt.Errorf("%w: role %s may not change order status", ErrForbidden, actor.Role)
	}

	if err := checkTransition(o.Status, requested); err != nil {
		return nil, err
	}

	return s.commitTransition(ctx, o, requested, actor)
}

// RequestCancellation is the customer-initiated cancel path, deliberately
// separate from Transition: only the owning customer may call it, and only
// while the order is still pending or confirmed.
func (s *Service) RequestCancellation(ctx context.Context, orderID string, actor models.Actor) (*models.Order, error) {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleCustomer || !o.OwnedByCustomer(actor.ID) {
		return nil, fmt.Errorf("%w: only the owning customer may request cancellation", ErrForbidden)
	}
	if o.Status != models.StatusPending && o.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: order %s can no longer be cancelled by the customer (status %s)",
			ErrInvalidTransition, o.ID, o.Status)
	}

	return s.commitTransition(ctx, o, models.StatusCancelled, actor)
}

func checkTransition(current, requested models.Status) error {
	if current.Terminal() {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current)
	}
	if requested == current {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current)
	}
	if !current.CanTransitionTo(requested) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
	}
	return nil
}

func (s *Service) commitTransition(ctx context.Context, o *models.Order, to models.Status, actor models.Actor) (*models.Order, error) {
	from := o.Status
	now := time.Now().UTC()

	if err := s.store.UpdateStatus(ctx, o.ID, from, to, now); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("%w: order %s was updated concurrently", ErrInvalidTransition, o.ID)
		}
		return nil, err
	}

	o.Status = to
	o.UpdatedAt = now

	s.logger.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)))

	change := StatusChange{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		VendorID:    o.VendorID,
		From:        from,
		To:          to,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		OccurredAt:  now,
	}

	if s.cache != nil {
		if err := s.cache.InvalidateOrder(ctx, o.ID); err != nil {
			s.logger.Warn("failed to invalidate order cache", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.PublishStatusChange(ctx, change); err != nil {
			s.logger.Warn("failed to publish status change", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if s.audit != nil {
		go func() {
			if err := s.audit.RecordTransition(context.Background(), change); err != nil {
				s.logger.Warn("failed to audit status change", zap.String("order_id", change.OrderID), zap.Error(err))
			}
		}()
	}

	return o, nil
}
