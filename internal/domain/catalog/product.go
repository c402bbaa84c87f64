package catalog

import (
	"errors"
	"strings"
	"time"
)

// Category 商品分類。
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Validate 基本欄位檢查。
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("category name is required")
	}
	if strings.TrimSpace(c.Slug) == "" {
		return errors.New("category slug is required")
	}
	return nil
}

// Product 商品主檔。
type Product struct {
	ID          string
	Name        string
	Description string
	CategoryID  string
	Price       float64 // 單位：最小貨幣單位以 float 儲存，與原系統一致
	Stock       int
	ImageURL    string
	Rating      float64 // 評論平均分，由 review 模組回寫
	ReviewCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate 寫入前的欄位檢查。
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if p.CategoryID == "" {
		return errors.New("category is required")
	}
	if p.Price < 0 {
		return errors.New("price must not be negative")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

// InStock 是否可加入購物車。
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Filter 為層疊式搜尋條件；零值欄位代表不過濾。
type Filter struct {
	Query      string  // 名稱/描述全文比對（大小寫不敏感）
	CategoryID string
	PriceMin   float64
	PriceMax   float64 // 0 表示無上限
	RatingMin  float64
	OnlyInStock bool
}

// Matches 檢查商品是否符合全部已啟用的條件。
func (f Filter) Matches(p Product) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if p.Price < f.PriceMin {
		return false
	}
	if f.PriceMax > 0 && p.Price > f.PriceMax {
		return false
	}
	if f.RatingMin > 0 && p.Rating < f.RatingMin {
		return false
	}
	if f.OnlyInStock && !p.InStock() {
		return false
	}
	if q := strings.TrimSpace(strings.ToLower(f.Query)); q != "" {
		name := strings.ToLower(p.Name)
		desc := strings.ToLower(p.Description)
		if !strings.Contains(name, q) && !strings.Contains(desc, q) {
			return false
		}
	}
	return true
}
