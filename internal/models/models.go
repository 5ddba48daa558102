package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"         json:"id"`
	Name        string          `gorm:"size:200;not null"                json:"name"`
	Description string          `gorm:"type:text;not null;default:''"    json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"      json:"price"`
	Image       string          `gorm:"size:255;not null;default:''"     json:"image,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;<-:create;index"   json:"created_at"`
}

type Order struct {
	ID               uint        `gorm:"primaryKey;autoIncrement"              json:"id"`
	FirstName        string      `gorm:"size:50;not null"                      json:"first_name"`
	LastName         string      `gorm:"size:50;not null"                      json:"last_name"`
	Email            string      `gorm:"size:254;not null"                     json:"email"`
	Address          string      `gorm:"size:250;not null;default:''"          json:"address"`
	PostalCode       string      `gorm:"size:20;not null;default:''"           json:"postal_code"`
	City             string      `gorm:"size:100;not null;default:''"          json:"city"`
	Paid             bool        `gorm:"not null;default:false;index"          json:"paid"`
	Created          time.Time   `gorm:"autoCreateTime;<-:create;index"        json:"created"`
	UserID           *uuid.UUID  `gorm:"type:uuid;index"                       json:"user_id,omitempty"`
	SessionKey       string      `gorm:"size:64;not null;default:'';index"     json:"-"`
	PaymentSessionID string      `gorm:"size:255;not null;default:'';index"    json:"payment_session_id,omitempty"`
	Items            []OrderItem `gorm:"constraint:OnDelete:CASCADE"           json:"items,omitempty"`
}

// Total sums the snapshotted line totals.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	OrderID   uint            `gorm:"not null;index"                    json:"order_id"`
	ProductID uint            `gorm:"not null;index"                    json:"product_id"`
	Name      string          `gorm:"size:200;not null"                 json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null"       json:"price"`
	Quantity  uint            `gorm:"not null;check:quantity > 0"       json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"              json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"size:254;not null;default:''"      json:"email"`
	PasswordHash string    `gorm:"not null"                          json:"-"`
	Role         string    `gorm:"size:20;not null;default:'user'"   json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime"                    json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt int64     `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

// Session is the database row behind a visitor session.
type Session struct {
	Key       string    `gorm:"column:session_key;primaryKey;size:64"`
	Data      string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func All() []any {
	return []any{&Product{}, &Order{}, &OrderItem{}, &User{}, &RefreshToken{}, &Session{}}
}
