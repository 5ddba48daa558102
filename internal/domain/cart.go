package domain

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
)

const (
	ActionUpdate = "update"
	ActionRemove = "remove"
)

var ErrInvalidQuantity = errors.New("quantity is not an integer")

// UpdateResult tells the caller which notice to show after Update.
type UpdateResult int

const (
	UpdateNoop UpdateResult = iota
	UpdateRemoved
	UpdateSet
)

type CartLine struct {
	Quantity int `json:"quantity"`
}

type CartEntry struct {
	ProductID uint
	Quantity  int
}

// Cart maps product ids to quantities. Quantities are always >= 1; an entry
// that would drop below that is deleted instead.
type Cart struct {
	items map[string]CartLine
	dirty bool
}

func NewCart() *Cart {
	return &Cart{items: map[string]CartLine{}}
}

func key(productID uint) string {
	return strconv.FormatUint(uint64(productID), 10)
}

// Add increments the quantity of productID, inserting it with 1 if absent.
func (c *Cart) Add(productID uint) int {
	if c.items == nil {
		c.items = map[string]CartLine{}
	}
	k := key(productID)
	line := c.items[k]
	line.Quantity++
	c.items[k] = line
	c.dirty = true
	return line.Quantity
}

func (c *Cart) Remove(productID uint) bool {
	k := key(productID)
	if _, ok := c.items[k]; !ok {
		return false
	}
	delete(c.items, k)
	c.dirty = true
	return true
}

// Update applies a form action to an entry already in the cart. Entries not
// in the cart are left alone whatever the action. An empty rawQuantity is
// not an integer; callers substitute 1 when the field was not sent at all.
func (c *Cart) Update(productID uint, action, rawQuantity string) (UpdateResult, error) {
	k := key(productID)
	if _, ok := c.items[k]; !ok {
		return UpdateNoop, nil
	}

	switch action {
	case ActionRemove:
		c.Remove(productID)
		return UpdateRemoved, nil
	case ActionUpdate:
		q, err := strconv.Atoi(strings.TrimSpace(rawQuantity))
		if err != nil {
			return UpdateNoop, ErrInvalidQuantity
		}
		if q < 1 {
			c.Remove(productID)
			return UpdateRemoved, nil
		}
		c.items[k] = CartLine{Quantity: q}
		c.dirty = true
		return UpdateSet, nil
	default:
		return UpdateNoop, nil
	}
}

func (c *Cart) Quantity(productID uint) int {
	return c.items[key(productID)].Quantity
}

func (c *Cart) Has(productID uint) bool {
	_, ok := c.items[key(productID)]
	return ok
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) Empty() bool { return len(c.items) == 0 }

// Count is the total number of units across all entries.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.items {
		n += l.Quantity
	}
	return n
}

// Entries returns the cart content ordered by product id.
func (c *Cart) Entries() []CartEntry {
	out := make([]CartEntry, 0, len(c.items))
	for k, l := range c.items {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, CartEntry{ProductID: uint(id), Quantity: l.Quantity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (c *Cart) ProductIDs() []uint {
	entries := c.Entries()
	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	return ids
}

func (c *Cart) Clear() {
	if len(c.items) == 0 {
		return
	}
	c.items = map[string]CartLine{}
	c.dirty = true
}

func (c *Cart) Dirty() bool { return c.dirty }

func (c *Cart) MarkClean() { c.dirty = false }

func (c *Cart) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.items)
}

// UnmarshalJSON drops entries with a malformed id or a quantity below 1.
func (c *Cart) UnmarshalJSON(b []byte) error {
	raw := map[string]CartLine{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.items = make(map[string]CartLine, len(raw))
	for k, l := range raw {
		if _, err := strconv.ParseUint(k, 10, 64); err != nil || l.Quantity < 1 {
			continue
		}
		c.items[k] = l
	}
	c.dirty = false
	return nil
}
