package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrRejected         = errors.New("payment provider rejected the request")
	ErrTransient        = errors.New("payment provider unavailable")
)

const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventAsyncPaymentSucceded = "checkout.session.async_payment_succeeded"
)

type LineItem struct {
	Name       string
	UnitAmount int64 // minor units
	Quantity   int64
}

type SessionRequest struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	OrderID    string
}

type Session struct {
	ID  string
	URL string
}

// Event is the subset of a provider webhook event the shop reacts to.
type Event struct {
	ID        string
	Type      string
	SessionID string
	OrderID   string
	Paid      bool
}

// Gateway is the hosted-checkout collaborator.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
