package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateOrderWithItems writes the order and every item in one transaction.
func (r *GormRepo) CreateOrderWithItems(ctx context.Context, order *models.Order) error {
	items := order.Items
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) SetPaymentSessionID(ctx context.Context, id uint, sessionID string) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("payment_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkOrderPaid flips paid to true. changed is false when the order was
// already paid.
func (r *GormRepo) MarkOrderPaid(ctx context.Context, id uint) (order *models.Order, changed bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, id).Error; err != nil {
			return err
		}
		order = &o
		if o.Paid {
			return nil
		}
		res := tx.Model(&models.Order{}).Where("id = ? AND paid = ?", id, false).Update("paid", true)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		o.Paid = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, changed, nil
}

// DeleteOrder removes an order and its items. Used to undo a checkout whose
// payment session could not be opened.
func (r *GormRepo) DeleteOrder(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
