package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	catalogApp "storefront/internal/application/catalog"
)

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  string  `json:"category_id"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url"`
}

func (r productRequest) toInput() catalogApp.ProductInput {
	return catalogApp.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Price:       r.Price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
	}
}

func (s *Server) handleAdminProductCreate(c *gin.Context) {
	var body productRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	product, err := s.adminUC.CreateProduct(c.Request.Context(), body.toInput())
	if err != nil {
		if isNotFound(err) {
			respondError(c, http.StatusBadRequest, errCodeBadRequest, "unknown category")
			return
		}
		respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": toProductPayload(product)})
}

func (s *Server) handleAdminProductUpdate(c *gin.Context) {
	var body productRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	product, err := s.adminUC.UpdateProduct(c.Request.Context(), c.Param("id"), body.toInput())
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

func (s *Server) handleAdminProductDelete(c *gin.Context) {
	if err := s.adminUC.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		if isNotFound(err) {
			respondError(c, http.StatusNotFound, errCodeNotFound, "product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, errCodeInternal, "delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) handleAdminCategoryCreate(c *gin.Context) {
	var body categoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	category, err := s.adminUC.CreateCategory(c.Request.Context(), catalogApp.CategoryInput{Name: body.Name, Slug: body.Slug})
	if err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "category": gin.H{
		"id": category.ID, "name": category.Name, "slug": category.Slug,
	}})
}

func (s *Server) handleAdminCategoryUpdate(c *gin.Context) {
	var body categoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	category, err := s.adminUC.UpdateCategory(c.Request.Context(), c.Param("id"), catalogApp.CategoryInput{Name: body.Name, Slug: body.Slug})
	if err != nil {
		if isNotFound(err) {
			respondError(c, http.StatusNotFound, errCodeNotFound, "category not found")
			return
		}
		respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "category": gin.H{
		"id": category.ID, "name": category.Name, "slug": category.Slug,
	}})
}

func (s *Server) handleAdminCategoryDelete(c *gin.Context) {
	if err := s.adminUC.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, catalogApp.ErrCategoryInUse) {
			respondError(c, http.StatusConflict, errCodeConflict, "category still has products")
			return
		}
		if isNotFound(err) {
			respondError(c, http.StatusNotFound, errCodeNotFound, "category not found")
			return
		}
		respondError(c, http.StatusInternalServerError, errCodeInternal, "delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleAdminReviewDelete 後台刪除不當評論，需附 product_id 以重算平均分。
func (s *Server) handleAdminReviewDelete(c *gin.Context) {
	productID := c.Query("product_id")
	if productID == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "product_id required")
		return
	}
	if err := s.reviewUC.Delete(c.Request.Context(), c.Param("id"), productID); err != nil {
		if isNotFound(err) {
			respondError(c, http.StatusNotFound, errCodeNotFound, "review not found")
			return
		}
		respondError(c, http.StatusInternalServerError, errCodeInternal, "delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDashboard(c *gin.Context) {
	overview, err := s.reportsUC.Overview(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "build overview failed")
		return
	}

	categories := make([]gin.H, 0, len(overview.Categories))
	for _, cs := range overview.Categories {
		categories = append(categories, gin.H{
			"category_id":   cs.CategoryID,
			"name":          cs.Name,
			"product_count": cs.ProductCount,
			"average_price": cs.AveragePrice,
		})
	}
	topRated := make([]gin.H, 0, len(overview.TopRated))
	for _, p := range overview.TopRated {
		topRated = append(topRated, gin.H{
			"product_id":   p.ProductID,
			"name":         p.Name,
			"rating":       p.Rating,
			"review_count": p.ReviewCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"overview": gin.H{
			"generated_at":     overview.GeneratedAt.Format(time.RFC3339),
			"total_products":   overview.TotalProducts,
			"total_categories": overview.TotalCategories,
			"total_users":      overview.TotalUsers,
			"total_reviews":    overview.TotalReviews,
			"average_rating":   overview.AverageRating,
			"low_stock_count":  overview.LowStockCount,
			"categories":       categories,
			"top_rated":        topRated,
		},
	})
}

func (s *Server) handleDashboardSessions(c *gin.Context) {
	stats := s.reportsUC.SessionStats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"sessions": gin.H{
			"active":  stats.Active,
			"warning": stats.Warning,
			"expired": stats.Expired,
		},
	})
}
