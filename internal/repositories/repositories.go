package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/grocer/services/assistant/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CatalogRepository provides read access to the product catalog
type CatalogRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB, readOnlyDB *gorm.DB) *CatalogRepository {
	return &CatalogRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// SearchByNames returns catalog entries whose name contains any of the
// given names, case-insensitively. Candidates only; the resolver decides
// which candidate, if any, actually matches a request line.
func (r *CatalogRepository) SearchByNames(ctx context.Context, names []string) ([]models.Product, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query := r.readOnlyDB.WithContext(ctx)
	cond := r.readOnlyDB.Where("name ILIKE ?", "%"+strings.TrimSpace(names[0])+"%")
	for _, name := range names[1:] {
		cond = cond.Or("name ILIKE ?", "%"+strings.TrimSpace(name)+"%")
	}

	var products []models.Product
	err := query.Where(cond).Order("category, name").Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search catalog by names")
	}
	return products, nil
}

// ListByCategory returns all catalog entries in a category.
func (r *CatalogRepository) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var products []models.Product
	err := r.readOnlyDB.WithContext(ctx).
		Where("category = ?", category).
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list catalog category")
	}
	return products, nil
}

// List returns the full catalog, optionally filtered by category.
func (r *CatalogRepository) List(ctx context.Context, category string) ([]models.Product, error) {
	query := r.readOnlyDB.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var products []models.Product
	err := query.Order("category, name").Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list catalog")
	}
	return products, nil
}

// OrderRepository provides access to order data
type OrderRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create persists a new order and its items in one transaction. The
// primary-key constraint on order_id backs order-id uniqueness.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to create order")
	}
	return nil
}

// GetByID gets an order with its items by order id.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get order by id")
	}
	return &order, nil
}

// UpdateStatus moves an order to a new lifecycle status. The transition
// is validated against the current status inside the transaction so a
// concurrent update cannot slip an illegal move through.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, next models.OrderStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "failed to load order for status update")
		}

		if !order.Status.CanTransitionTo(next) {
			return errors.Errorf("invalid status transition %s -> %s", order.Status, next)
		}

		result := tx.Model(&models.Order{}).
			Where("order_id = ?", orderID).
			Update("status", next)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to update order status")
		}
		if result.RowsAffected == 0 {
			return errors.New("no order updated")
		}
		return nil
	})
}

// GetUnindexed returns orders not yet indexed in Elasticsearch.
func (r *OrderRepository) GetUnindexed(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Where("indexed = ?", false).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unindexed orders")
	}
	return orders, nil
}

// MarkIndexed marks an order as indexed in Elasticsearch.
func (r *OrderRepository) MarkIndexed(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Update("indexed", true)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to mark order as indexed")
	}

	if result.RowsAffected == 0 {
		return errors.New("no order updated")
	}

	return nil
}

// CustomerRepository provides access to customer data
type CustomerRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB, readOnlyDB *gorm.DB) *CustomerRepository {
	return &CustomerRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetPostcode returns a customer's postcode, or ErrNotFound when the
// customer is unknown.
func (r *CustomerRepository) GetPostcode(ctx context.Context, customerID string) (string, error) {
	var customer models.Customer
	err := r.readOnlyDB.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "failed to get customer postcode")
	}
	return customer.Postcode, nil
}

// DeliverySlotRepository provides access to delivery slot data
type DeliverySlotRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewDeliverySlotRepository creates a new delivery slot repository
func NewDeliverySlotRepository(db *gorm.DB, readOnlyDB *gorm.DB) *DeliverySlotRepository {
	return &DeliverySlotRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// EarliestAvailable returns the available slot covering the postcode with
// the smallest (date, start_time) inside the window, or nil when none
// exists. Postcode coverage is a comma-separated list, so the coverage
// check happens after the windowed query.
func (r *DeliverySlotRepository) EarliestAvailable(ctx context.Context, postcode string, from, to time.Time) (*models.DeliverySlot, error) {
	var slots []models.DeliverySlot
	err := r.readOnlyDB.WithContext(ctx).
		Where("slot_status = ? AND is_active = ? AND slot_date BETWEEN ? AND ?",
			models.SlotAvailable, true, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("slot_date, start_time").
		Find(&slots).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query delivery slots")
	}

	for i := range slots {
		if slots[i].CoversPostcode(postcode) {
			return &slots[i], nil
		}
	}
	return nil, nil
}
