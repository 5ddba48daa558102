package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Skotchmaster/storefront/internal/domain"
)

var ErrNotFound = errors.New("session not found")

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Store persists encoded session payloads by key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type payload struct {
	Cart     *domain.Cart `json:"cart"`
	Messages []Message    `json:"messages,omitempty"`
	Orders   []uint       `json:"orders,omitempty"`
	SavedAt  int64        `json:"saved_at,omitempty"`
}

// Session is the per-visitor state. It is written back only when Dirty.
type Session struct {
	Key string

	data    payload
	dirty   bool
	isNew   bool
	deleted bool
}

func New(key string) *Session {
	return &Session{
		Key:   key,
		data:  payload{Cart: domain.NewCart()},
		isNew: true,
	}
}

func decode(key string, raw []byte) (*Session, error) {
	s := &Session{Key: key}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.data.Cart == nil {
		s.data.Cart = domain.NewCart()
	}
	return s, nil
}

func (s *Session) encode() ([]byte, error) {
	return json.Marshal(s.data)
}

func (s *Session) Cart() *domain.Cart { return s.data.Cart }

func (s *Session) savedAt() time.Time {
	if s.data.SavedAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.data.SavedAt, 0)
}

func (s *Session) IsNew() bool { return s.isNew }

func (s *Session) AddMessage(level, text string) {
	s.data.Messages = append(s.data.Messages, Message{Level: level, Text: text})
	s.dirty = true
}

// PopMessages returns queued notices and removes them from the session.
func (s *Session) PopMessages() []Message {
	if len(s.data.Messages) == 0 {
		return nil
	}
	out := s.data.Messages
	s.data.Messages = nil
	s.dirty = true
	return out
}

func (s *Session) RememberOrder(id uint) {
	if slices.Contains(s.data.Orders, id) {
		return
	}
	s.data.Orders = append(s.data.Orders, id)
	s.dirty = true
}

// Orders lists the orders placed from this session, oldest first.
func (s *Session) Orders() []uint {
	return slices.Clone(s.data.Orders)
}

func (s *Session) OwnsOrder(id uint) bool {
	return slices.Contains(s.data.Orders, id)
}

func (s *Session) Dirty() bool {
	return s.dirty || s.data.Cart.Dirty()
}

func (s *Session) markClean() {
	s.dirty = false
	s.isNew = false
	s.data.Cart.MarkClean()
}
