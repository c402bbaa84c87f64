package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	catalogApp "storefront/internal/application/catalog"
	catalogDomain "storefront/internal/domain/catalog"
)

// CatalogRepo 提供商品與分類的 Postgres 存取。
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo 建立 CatalogRepo。
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

const productColumns = `id, name, description, category_id, price, stock, image_url, rating, review_count, created_at, updated_at`

// 排序欄位白名單，避免把使用者輸入直接拼進 ORDER BY。
var sortColumns = map[catalogApp.SortField]string{
	catalogApp.SortName:      "name",
	catalogApp.SortPrice:     "price",
	catalogApp.SortRating:    "rating",
	catalogApp.SortCreatedAt: "created_at",
}

// FindProducts 依層疊條件查詢商品，回傳該頁結果與總筆數。
func (r *CatalogRepo) FindProducts(ctx context.Context, filter catalogDomain.Filter, sort catalogApp.SortOption, p catalogApp.Pagination) ([]catalogDomain.Product, int, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		ph := arg("%" + strings.ToLower(q) + "%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(description) LIKE %s)", ph, ph))
	}
	if filter.CategoryID != "" {
		conds = append(conds, "category_id = "+arg(filter.CategoryID))
	}
	if filter.PriceMin > 0 {
		conds = append(conds, "price >= "+arg(filter.PriceMin))
	}
	if filter.PriceMax > 0 {
		conds = append(conds, "price <= "+arg(filter.PriceMax))
	}
	if filter.RatingMin > 0 {
		conds = append(conds, "rating >= "+arg(filter.RatingMin))
	}
	if filter.OnlyInStock {
		conds = append(conds, "stock > 0")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where+";", args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s %s OFFSET %s LIMIT %s;",
		productColumns, where, column, direction, arg(p.Offset), arg(p.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []catalogDomain.Product
	for rows.Next() {
		var prod catalogDomain.Product
		if err := rows.Scan(&prod.ID, &prod.Name, &prod.Description, &prod.CategoryID,
			&prod.Price, &prod.Stock, &prod.ImageURL, &prod.Rating, &prod.ReviewCount,
			&prod.CreatedAt, &prod.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetProduct 依 ID 取得商品。
func (r *CatalogRepo) GetProduct(ctx context.Context, id string) (catalogDomain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1;`
	var p catalogDomain.Product
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID,
		&p.Price, &p.Stock, &p.ImageURL, &p.Rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return catalogDomain.Product{}, err
	}
	return p, nil
}

// SaveProduct 寫入或更新商品。
func (r *CatalogRepo) SaveProduct(ctx context.Context, p catalogDomain.Product) error {
	const q = `
INSERT INTO products (id, name, description, category_id, price, stock, image_url, rating, review_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id)
DO UPDATE SET name = EXCLUDED.name,
              description = EXCLUDED.description,
              category_id = EXCLUDED.category_id,
              price = EXCLUDED.price,
              stock = EXCLUDED.stock,
              image_url = EXCLUDED.image_url,
              updated_at = EXCLUDED.updated_at;
`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Description, p.CategoryID, p.Price, p.Stock, p.ImageURL,
		p.Rating, p.ReviewCount, p.CreatedAt, p.UpdatedAt)
	return err
}

// DeleteProduct 刪除商品。
func (r *CatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1;`, id)
	return err
}

// UpdateProductRating 由 review 模組回寫平均分。
func (r *CatalogRepo) UpdateProductRating(ctx context.Context, productID string, rating float64, count int) error {
	const q = `UPDATE products SET rating = $2, review_count = $3, updated_at = NOW() WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, productID, rating, count)
	return err
}

// ListCategories 取得全部分類。
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]catalogDomain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug, created_at FROM categories ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []catalogDomain.Category
	for rows.Next() {
		var c catalogDomain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory 依 ID 取得分類。
func (r *CatalogRepo) GetCategory(ctx context.Context, id string) (catalogDomain.Category, error) {
	var c catalogDomain.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name, slug, created_at FROM categories WHERE id = $1 LIMIT 1;`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		return catalogDomain.Category{}, err
	}
	return c, nil
}

// SaveCategory 寫入或更新分類。
func (r *CatalogRepo) SaveCategory(ctx context.Context, c catalogDomain.Category) error {
	const q = `
INSERT INTO categories (id, name, slug, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id)
DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug;
`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.Name, c.Slug, c.CreatedAt)
	return err
}

// DeleteCategory 刪除分類。
func (r *CatalogRepo) DeleteCategory(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1;`, id)
	return err
}
