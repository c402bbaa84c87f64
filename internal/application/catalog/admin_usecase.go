package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "storefront/internal/domain/catalog"
)

// ErrCategoryInUse 分類下仍有商品時不可刪除。
var ErrCategoryInUse = errors.New("category still has products")

// AdminUseCase 提供後台商品/分類維護。
type AdminUseCase struct {
	repo CatalogRepository
	now  func() time.Time
}

func NewAdminUseCase(repo CatalogRepository) *AdminUseCase {
	return &AdminUseCase{repo: repo, now: time.Now}
}

// ProductInput 建立/更新商品的欄位。
type ProductInput struct {
	Name        string
	Description string
	CategoryID  string
	Price       float64
	Stock       int
	ImageURL    string
}

// CreateProduct 建立商品。
func (u *AdminUseCase) CreateProduct(ctx context.Context, input ProductInput) (domain.Product, error) {
	now := u.now()
	p := domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if _, err := u.repo.GetCategory(ctx, p.CategoryID); err != nil {
		return domain.Product{}, fmt.Errorf("category lookup: %w", err)
	}
	if err := u.repo.SaveProduct(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	log.Printf("[Catalog] product created id=%s name=%q", p.ID, p.Name)
	return p, nil
}

// UpdateProduct 更新商品；保留評分統計欄位。
func (u *AdminUseCase) UpdateProduct(ctx context.Context, id string, input ProductInput) (domain.Product, error) {
	existing, err := u.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = input.Description
	existing.CategoryID = input.CategoryID
	existing.Price = input.Price
	existing.Stock = input.Stock
	existing.ImageURL = input.ImageURL
	existing.UpdatedAt = u.now()

	if err := existing.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := u.repo.SaveProduct(ctx, existing); err != nil {
		return domain.Product{}, fmt.Errorf("save product: %w", err)
	}
	return existing, nil
}

// DeleteProduct 刪除商品。
func (u *AdminUseCase) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("product id required")
	}
	if err := u.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	log.Printf("[Catalog] product deleted id=%s", id)
	return nil
}

// CategoryInput 建立/更新分類的欄位。
type CategoryInput struct {
	Name string
	Slug string
}

// CreateCategory 建立分類；slug 未給時由名稱推導。
func (u *AdminUseCase) CreateCategory(ctx context.Context, input CategoryInput) (domain.Category, error) {
	c := domain.Category{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Slug:      slugify(input.Slug, input.Name),
		CreatedAt: u.now(),
	}
	if err := c.Validate(); err != nil {
		return domain.Category{}, err
	}
	if err := u.repo.SaveCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

// UpdateCategory 更新分類。
func (u *AdminUseCase) UpdateCategory(ctx context.Context, id string, input CategoryInput) (domain.Category, error) {
	existing, err := u.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	existing.Name = strings.TrimSpace(input.Name)
	existing.Slug = slugify(input.Slug, input.Name)
	if err := existing.Validate(); err != nil {
		return domain.Category{}, err
	}
	if err := u.repo.SaveCategory(ctx, existing); err != nil {
		return domain.Category{}, fmt.Errorf("save category: %w", err)
	}
	return existing, nil
}

// DeleteCategory 刪除分類；分類下仍有商品時拒絕。
func (u *AdminUseCase) DeleteCategory(ctx context.Context, id string) error {
	products, _, err := u.repo.FindProducts(ctx, domain.Filter{CategoryID: id}, SortOption{Field: SortCreatedAt}, Pagination{Limit: 1})
	if err != nil {
		return fmt.Errorf("check category products: %w", err)
	}
	if len(products) > 0 {
		return ErrCategoryInUse
	}
	return u.repo.DeleteCategory(ctx, id)
}

func slugify(slug, fallback string) string {
	s := strings.TrimSpace(strings.ToLower(slug))
	if s == "" {
		s = strings.TrimSpace(strings.ToLower(fallback))
	}
	return strings.ReplaceAll(s, " ", "-")
}
