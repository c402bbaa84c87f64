package postgres

import (
	"context"
	"database/sql"

	cartDomain "storefront/internal/domain/cart"
)

// CartRepo 提供購物車的 Postgres 存取。購物車以整車覆寫方式儲存。
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo 建立 CartRepo。
func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

// GetCart 載入使用者購物車；無任何品項時回傳空車。
func (r *CartRepo) GetCart(ctx context.Context, userID string) (cartDomain.Cart, error) {
	const q = `
SELECT product_id, name, unit_price, quantity, added_at
FROM cart_items WHERE user_id = $1 ORDER BY added_at;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return cartDomain.Cart{}, err
	}
	defer rows.Close()

	cart := cartDomain.Cart{UserID: userID}
	for rows.Next() {
		var item cartDomain.Item
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.AddedAt); err != nil {
			return cartDomain.Cart{}, err
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

// SaveCart 覆寫使用者購物車內容。
func (r *CartRepo) SaveCart(ctx context.Context, c cartDomain.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1;`, c.UserID); err != nil {
		return err
	}
	const insert = `
INSERT INTO cart_items (user_id, product_id, name, unit_price, quantity, added_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	for _, item := range c.Items {
		if _, err := tx.ExecContext(ctx, insert,
			c.UserID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.AddedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
