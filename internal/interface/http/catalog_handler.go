package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	catalogApp "storefront/internal/application/catalog"
	catalogDomain "storefront/internal/domain/catalog"
)

type productPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  string  `json:"category_id"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url,omitempty"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	CreatedAt   string  `json:"created_at"`
}

func toProductPayload(p catalogDomain.Product) productPayload {
	return productPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func toProductPayloads(products []catalogDomain.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, toProductPayload(p))
	}
	return out
}

// handleProductSearch 層疊式搜尋：關鍵字、分類、價格帶、評分與
// 庫存條件同時生效，可再疊加排序與分頁。
func (s *Server) handleProductSearch(c *gin.Context) {
	input := catalogApp.SearchInput{
		Filter: catalogDomain.Filter{
			Query:       c.Query("q"),
			CategoryID:  c.Query("category"),
			PriceMin:    parseFloatDefault(c.Query("price_min"), 0),
			PriceMax:    parseFloatDefault(c.Query("price_max"), 0),
			RatingMin:   parseFloatDefault(c.Query("rating_min"), 0),
			OnlyInStock: parseBoolDefault(c.Query("in_stock"), false),
		},
		Sort: catalogApp.SortOption{
			Field: catalogApp.SortField(c.Query("sort")),
			Desc:  parseBoolDefault(c.Query("desc"), false),
		},
		Pagination: catalogApp.Pagination{
			Offset: parseIntDefault(c.Query("offset"), 0),
			Limit:  parseIntDefault(c.Query("limit"), 0),
		},
	}

	out, err := s.queryUC.Search(c.Request.Context(), input)
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": toProductPayloads(out.Products),
		"total":    out.Total,
		"has_more": out.HasMore,
	})
}

func (s *Server) handleProductDetail(c *gin.Context) {
	product, err := s.queryUC.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(c, http.StatusNotFound, errCodeNotFound, "product not found")
			return
		}
		respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": toProductPayload(product)})
}

func (s *Server) handleCategoryList(c *gin.Context) {
	categories, err := s.queryUC.Categories(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "list categories failed")
		return
	}

	out := make([]gin.H, 0, len(categories))
	for _, cat := range categories {
		out = append(out, gin.H{"id": cat.ID, "name": cat.Name, "slug": cat.Slug})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": out})
}
