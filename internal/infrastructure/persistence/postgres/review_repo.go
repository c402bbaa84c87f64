package postgres

import (
	"context"
	"database/sql"
	"errors"

	reviewDomain "storefront/internal/domain/review"
)

// ReviewRepo 提供商品評論的 Postgres 存取。
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo 建立 ReviewRepo。
func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

const reviewColumns = `id, product_id, user_id, user_name, rating, comment, created_at, updated_at`

// ListByProduct 取得商品的全部評論，新的在前。
func (r *ReviewRepo) ListByProduct(ctx context.Context, productID string) ([]reviewDomain.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC;`
	rows, err := r.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []reviewDomain.Review
	for rows.Next() {
		var rev reviewDomain.Review
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.UserName,
			&rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// FindByProductAndUser 查詢使用者是否已評論過商品。
func (r *ReviewRepo) FindByProductAndUser(ctx context.Context, productID, userID string) (reviewDomain.Review, bool, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 AND user_id = $2 LIMIT 1;`
	var rev reviewDomain.Review
	err := r.db.QueryRowContext(ctx, q, productID, userID).Scan(&rev.ID, &rev.ProductID, &rev.UserID,
		&rev.UserName, &rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reviewDomain.Review{}, false, nil
	}
	if err != nil {
		return reviewDomain.Review{}, false, err
	}
	return rev, true, nil
}

// SaveReview 寫入評論。
func (r *ReviewRepo) SaveReview(ctx context.Context, rev reviewDomain.Review) error {
	const q = `
INSERT INTO reviews (id, product_id, user_id, user_name, rating, comment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.db.ExecContext(ctx, q,
		rev.ID, rev.ProductID, rev.UserID, rev.UserName, rev.Rating, rev.Comment,
		rev.CreatedAt, rev.UpdatedAt)
	return err
}

// DeleteReview 刪除評論。
func (r *ReviewRepo) DeleteReview(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1;`, id)
	return err
}

// CountAll 回傳評論總數（儀表板用）。
func (r *ReviewRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
