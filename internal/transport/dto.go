package transport

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

type RegisterRequest struct {
	Username  string `json:"username"  form:"username"`
	Email     string `json:"email"     form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	IsAdmin      bool
}

type UpdateCartRequest struct {
	Action   string   `json:"action"   form:"action"`
	Quantity Quantity `json:"quantity" form:"quantity"`
}

// Quantity keeps the quantity field as sent so the cart can reject what is
// not an integer. Set is false when the field is absent.
type Quantity struct {
	Raw string
	Set bool
}

// Value is the text handed to the cart. An absent field means 1.
func (q Quantity) Value() string {
	if !q.Set {
		return "1"
	}
	return q.Raw
}

func (q *Quantity) UnmarshalParam(param string) error {
	q.Raw, q.Set = param, true
	return nil
}

// UnmarshalJSON accepts a number or a string. Any other JSON value is kept
// verbatim and fails integer parsing later.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		q.Raw, q.Set = s, true
		return nil
	}
	q.Raw, q.Set = string(b), true
	return nil
}

type CartLineResponse struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Count int                `json:"count"`
}

type CheckoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}
