package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	catalogApp "storefront/internal/application/catalog"
	reviewApp "storefront/internal/application/review"
	catalogDomain "storefront/internal/domain/catalog"
	domain "storefront/internal/domain/reports"
)

// UserCounter 提供使用者總數（由 auth 儲存層實作）。
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// SessionStatsProvider 回報目前會話狀態分佈（由 session manager 實作）。
type SessionStatsProvider interface {
	Stats() domain.SessionStats
}

const (
	lowStockThreshold = 5
	topRatedCount     = 5
	overviewPageSize  = 500
)

// UseCase 聚合後台儀表板所需的數據。
type UseCase struct {
	catalog  catalogApp.CatalogRepository
	reviews  reviewApp.ReviewRepository
	users    UserCounter
	sessions SessionStatsProvider
	now      func() time.Time
}

func NewUseCase(catalog catalogApp.CatalogRepository, reviews reviewApp.ReviewRepository, users UserCounter, sessions SessionStatsProvider) *UseCase {
	return &UseCase{
		catalog:  catalog,
		reviews:  reviews,
		users:    users,
		sessions: sessions,
		now:      time.Now,
	}
}

// Overview 產生商店總覽：商品/分類/使用者/評論統計與排行榜。
func (u *UseCase) Overview(ctx context.Context) (domain.StoreOverview, error) {
	out := domain.StoreOverview{GeneratedAt: u.now()}

	products, err := u.allProducts(ctx)
	if err != nil {
		return out, fmt.Errorf("load products: %w", err)
	}
	categories, err := u.catalog.ListCategories(ctx)
	if err != nil {
		return out, fmt.Errorf("load categories: %w", err)
	}
	userCount, err := u.users.CountUsers(ctx)
	if err != nil {
		return out, fmt.Errorf("count users: %w", err)
	}
	reviewCount, err := u.reviews.CountAll(ctx)
	if err != nil {
		return out, fmt.Errorf("count reviews: %w", err)
	}

	out.TotalProducts = len(products)
	out.TotalCategories = len(categories)
	out.TotalUsers = userCount
	out.TotalReviews = reviewCount
	out.Categories = categoryStats(categories, products)
	out.TopRated = topRated(products)

	var ratingSum float64
	var rated int
	for _, p := range products {
		if p.Stock < lowStockThreshold {
			out.LowStockCount++
		}
		if p.ReviewCount > 0 {
			ratingSum += p.Rating
			rated++
		}
	}
	if rated > 0 {
		out.AverageRating = ratingSum / float64(rated)
	}
	return out, nil
}

// SessionStats 回傳目前會話分佈。
func (u *UseCase) SessionStats() domain.SessionStats {
	if u.sessions == nil {
		return domain.SessionStats{}
	}
	return u.sessions.Stats()
}

func (u *UseCase) allProducts(ctx context.Context) ([]catalogDomain.Product, error) {
	var all []catalogDomain.Product
	offset := 0
	for {
		page, total, err := u.catalog.FindProducts(ctx, catalogDomain.Filter{},
			catalogApp.SortOption{Field: catalogApp.SortCreatedAt},
			catalogApp.Pagination{Offset: offset, Limit: overviewPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			return all, nil
		}
	}
}

func categoryStats(categories []catalogDomain.Category, products []catalogDomain.Product) []domain.CategoryStat {
	byID := make(map[string]*domain.CategoryStat, len(categories))
	priceSum := make(map[string]float64, len(categories))
	out := make([]domain.CategoryStat, 0, len(categories))

	for _, c := range categories {
		out = append(out, domain.CategoryStat{CategoryID: c.ID, Name: c.Name})
	}
	for i := range out {
		byID[out[i].CategoryID] = &out[i]
	}
	for _, p := range products {
		stat, ok := byID[p.CategoryID]
		if !ok {
			continue
		}
		stat.ProductCount++
		priceSum[p.CategoryID] += p.Price
	}
	for i := range out {
		if out[i].ProductCount > 0 {
			out[i].AveragePrice = priceSum[out[i].CategoryID] / float64(out[i].ProductCount)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductCount > out[j].ProductCount })
	return out
}

func topRated(products []catalogDomain.Product) []domain.ProductBrief {
	rated := make([]catalogDomain.Product, 0, len(products))
	for _, p := range products {
		if p.ReviewCount > 0 {
			rated = append(rated, p)
		}
	}
	sort.Slice(rated, func(i, j int) bool {
		if rated[i].Rating != rated[j].Rating {
			return rated[i].Rating > rated[j].Rating
		}
		return rated[i].ReviewCount > rated[j].ReviewCount
	})
	if len(rated) > topRatedCount {
		rated = rated[:topRatedCount]
	}
	out := make([]domain.ProductBrief, 0, len(rated))
	for _, p := range rated {
		out = append(out, domain.ProductBrief{
			ProductID:   p.ID,
			Name:        p.Name,
			Rating:      p.Rating,
			ReviewCount: p.ReviewCount,
		})
	}
	return out
}
