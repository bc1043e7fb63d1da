package store

import (
	"database/sql"
	"time"
)

// UpsertProduct caches a marketplace listing.
func (db *DB) UpsertProduct(p *Product) error {
	_, err := db.Exec(`
		INSERT INTO products (product_id, name, price, category, description, mine, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			category = excluded.category,
			description = excluded.description,
			mine = excluded.mine`,
		p.ProductID, p.Name, p.Price, p.Category, p.Description, p.Mine, p.CreatedAt)
	return err
}

// GetProduct returns a listing by id, or nil if unknown.
func (db *DB) GetProduct(productID string) (*Product, error) {
	var p Product
	err := db.QueryRow(`
		SELECT product_id, name, price, category, description, mine, created_at
		FROM products WHERE product_id = ?`, productID).
		Scan(&p.ProductID, &p.Name, &p.Price, &p.Category, &p.Description, &p.Mine, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns listings, newest first. mineOnly restricts to this
// profile's own listings.
func (db *DB) ListProducts(mineOnly bool, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT product_id, name, price, category, description, mine, created_at FROM products`
	args := []any{}
	if mineOnly {
		q += ` WHERE mine = 1`
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Price, &p.Category, &p.Description, &p.Mine, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// RecordOrder inserts an order row.
func (db *DB) RecordOrder(o *Order) error {
	if o.CreatedAt == 0 {
		o.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO orders (order_id, product_id, quantity, total, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO NOTHING`,
		o.OrderID, o.ProductID, o.Quantity, o.Total, o.Status, o.CreatedAt)
	return err
}

// ListOrders returns orders, newest first.
func (db *DB) ListOrders() ([]Order, error) {
	rows, err := db.Query(`
		SELECT order_id, product_id, quantity, total, status, created_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.OrderID, &o.ProductID, &o.Quantity, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// RecordPayment inserts a payment row.
func (db *DB) RecordPayment(p *Payment) error {
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO payments (payment_id, order_id, amount, method, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(payment_id) DO NOTHING`,
		p.PaymentID, p.OrderID, p.Amount, p.Method, p.Status, p.CreatedAt)
	return err
}

// ListPayments returns payments, newest first.
func (db *DB) ListPayments() ([]Payment, error) {
	rows, err := db.Query(`
		SELECT payment_id, order_id, amount, method, status, created_at
		FROM payments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.PaymentID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
