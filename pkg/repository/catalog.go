package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/expresskart/marketplace/pkg/config"
	"github.com/expresskart/marketplace/pkg/models"
	"github.com/expresskart/marketplace/pkg/order"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// CatalogRepository reads the product/vendor catalog from MySQL. The order
// service uses it to resolve vendor ownership and to snapshot prices at
// checkout.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(cfg *config.MySQLConfig) (*CatalogRepository, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if err := db.AutoMigrate(&models.Vendor{}, &models.Product{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	return &CatalogRepository{db: db}, nil
}

// FindProduct implements order.Catalog.
func (r *CatalogRepository) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return &product, nil
}

// FindVendor looks a vendor up by id.
func (r *CatalogRepository) FindVendor(ctx context.Context, id string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find vendor %s: %w", id, err)
	}
	return &vendor, nil
}

// ListProductsByVendor returns a vendor's catalog entries.
func (r *CatalogRepository) ListProductsByVendor(ctx context.Context, vendorID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products for vendor %s: %w", vendorID, err)
	}
	return products, nil
}
