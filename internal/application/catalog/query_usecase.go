package catalog

import (
	"context"
	"fmt"

	domain "storefront/internal/domain/catalog"
)

// CatalogRepository 定義商品/分類查詢與寫入介面，具體儲存層自行實作。
type CatalogRepository interface {
	FindProducts(ctx context.Context, filter domain.Filter, sort SortOption, pagination Pagination) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	SaveProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	SaveCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// UpdateProductRating 由 review 模組回寫平均分。
	UpdateProductRating(ctx context.Context, productID string, rating float64, count int) error
}

// SortField 定義商品列表排序欄位。
type SortField string

const (
	SortName      SortField = "name"
	SortPrice     SortField = "price"
	SortRating    SortField = "rating"
	SortCreatedAt SortField = "created_at"
)

// SortOption 指定排序欄位與方向。
type SortOption struct {
	Field SortField
	Desc  bool
}

// Pagination 控制分頁。
type Pagination struct {
	Offset int
	Limit  int
}

const (
	defaultLimit = 24
	maxLimit     = 100
)

// SearchInput 對應「層疊式搜尋」：所有條件同時生效。
type SearchInput struct {
	Filter     domain.Filter
	Sort       SortOption
	Pagination Pagination
}

// SearchOutput 返回結果與筆數資訊。
type SearchOutput struct {
	Products []domain.Product
	Total    int
	HasMore  bool
}

// QueryUseCase 聚合商品瀏覽與搜尋行為。
type QueryUseCase struct {
	repo CatalogRepository
}

func NewQueryUseCase(repo CatalogRepository) *QueryUseCase {
	return &QueryUseCase{repo: repo}
}

// Search 依過濾條件查詢商品，提供分頁與排序。
func (u *QueryUseCase) Search(ctx context.Context, input SearchInput) (SearchOutput, error) {
	var out SearchOutput

	p := input.Pagination
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	sort := input.Sort
	if sort.Field == "" {
		sort.Field = SortCreatedAt
		sort.Desc = true
	}

	products, total, err := u.repo.FindProducts(ctx, input.Filter, sort, p)
	if err != nil {
		return out, fmt.Errorf("find products: %w", err)
	}
	out.Products = products
	out.Total = total
	out.HasMore = p.Offset+len(products) < total
	return out, nil
}

// Detail 取得單一商品。
func (u *QueryUseCase) Detail(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, fmt.Errorf("product id required")
	}
	return u.repo.GetProduct(ctx, id)
}

// Categories 取得全部分類（搜尋側欄用）。
func (u *QueryUseCase) Categories(ctx context.Context) ([]domain.Category, error) {
	return u.repo.ListCategories(ctx)
}
