package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type OrderRow struct {
	ID        uint            `db:"id"         json:"id"`
	FirstName string          `db:"first_name" json:"first_name"`
	LastName  string          `db:"last_name"  json:"last_name"`
	Email     string          `db:"email"      json:"email"`
	Paid      bool            `db:"paid"       json:"paid"`
	Created   time.Time       `db:"created"    json:"created"`
	ItemCount int64           `db:"item_count" json:"item_count"`
	Total     decimal.Decimal `db:"total"      json:"total"`
}

type Filter struct {
	Paid   *bool
	Limit  int
	Offset int
}

// Store runs read-only reporting queries next to the ORM.
type Store struct {
	db *sqlx.DB
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect report db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

const listOrdersQuery = `
SELECT o.id, o.first_name, o.last_name, o.email, o.paid, o.created,
       COALESCE(a.item_count, 0) AS item_count,
       COALESCE(a.total, 0) AS total
FROM orders o
LEFT JOIN (
    SELECT order_id, COUNT(*) AS item_count, SUM(price * quantity) AS total
    FROM order_items
    GROUP BY order_id
) a ON a.order_id = o.id`

// ListOrders returns one page of orders, newest first, with the total
// number of orders matching the filter.
func (s *Store) ListOrders(ctx context.Context, f Filter) ([]OrderRow, int64, error) {
	where := ""
	var args []any
	if f.Paid != nil {
		where = " WHERE o.paid = ?"
		args = append(args, *f.Paid)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM orders o"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	q := listOrdersQuery + where + " ORDER BY o.created DESC, o.id DESC LIMIT ? OFFSET ?"
	rows := []OrderRow{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return rows, total, nil
}
