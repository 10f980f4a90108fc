package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expresskart/marketplace/pkg/config"
	"github.com/expresskart/marketplace/pkg/models"
	"github.com/expresskart/marketplace/pkg/order"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderStore persists orders in MongoDB. It implements order.Store; the
// status write is a single conditional UpdateOne so two concurrent
// transitions on one order resolve to exactly one winner.
type OrderStore struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewOrderStore(cfg *config.MongoDBConfig) (*OrderStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &OrderStore{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (s *OrderStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *OrderStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *OrderStore) orders() *mongo.Collection {
	return s.database.Collection(s.config.OrdersCollection)
}

func (s *OrderStore) Insert(ctx context.Context, o *models.Order) error {
	_, err := s.orders().InsertOne(ctx, o)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return &o, nil
}

func (s *OrderStore) ListByCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.list(ctx, bson.M{"customer_id": customerID})
}

func (s *OrderStore) ListByVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	return s.list(ctx, bson.M{"vendor_id": vendorID})
}

func (s *OrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, bson.M{})
}

func (s *OrderStore) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.orders().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus sets the status to `to` only while the current status still
// equals `from`. A zero match with the order still present means another
// writer got there first.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error {
	res, err := s.orders().UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("update order %s status: %w", id, err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
		return order.ErrStatusConflict
	}
	return nil
}

// TransitionRecord is one entry in the order history collection.
type TransitionRecord struct {
	ID          string    `bson:"_id,omitempty"`
	OrderID     string    `bson:"order_id"`
	OrderNumber string    `bson:"order_number"`
	Action      string    `bson:"action"`
	From        string    `bson:"from,omitempty"`
	To          string    `bson:"to"`
	ActorID     string    `bson:"actor_id,omitempty"`
	ActorRole   string    `bson:"actor_role,omitempty"`
	Data        bson.M    `bson:"data,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (s *OrderStore) history() *mongo.Collection {
	return s.database.Collection(s.config.HistoryCollection)
}

// RecordCreation implements order.Auditor.
func (s *OrderStore) RecordCreation(ctx context.Context, o *models.Order) error {
	_, err := s.history().InsertOne(ctx, &TransitionRecord{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Action:      "create",
		To:          string(o.Status),
		Data: bson.M{
			"customer_id": o.CustomerID,
			"vendor_id":   o.VendorID,
			"total":       o.Total,
		},
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// RecordTransition implements order.Auditor.
func (s *OrderStore) RecordTransition(ctx context.Context, change order.StatusChange) error {
	_, err := s.history().InsertOne(ctx, &TransitionRecord{
		OrderID:     change.OrderID,
		OrderNumber: change.OrderNumber,
		Action:      "transition",
		From:        string(change.From),
		To:          string(change.To),
		ActorID:     change.ActorID,
		ActorRole:   string(change.ActorRole),
		CreatedAt:   change.OccurredAt,
	})
	return err
}

// OrderHistory returns the most recent history entries for one order,
// newest first.
func (s *OrderStore) OrderHistory(ctx context.Context, orderID string, limit int64) ([]*TransitionRecord, error) {
	filter := bson.M{"order_id": orderID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := s.history().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*TransitionRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}
