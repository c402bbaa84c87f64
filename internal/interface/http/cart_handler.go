package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cartApp "storefront/internal/application/cart"
	cartDomain "storefront/internal/domain/cart"
)

func cartResponse(cart cartDomain.Cart) gin.H {
	items := make([]gin.H, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, gin.H{
			"product_id": it.ProductID,
			"name":       it.Name,
			"unit_price": it.UnitPrice,
			"quantity":   it.Quantity,
			"line_total": it.LineTotal(),
			"added_at":   it.AddedAt.Format(time.RFC3339),
		})
	}
	return gin.H{
		"user_id": cart.UserID,
		"items":   items,
		"total":   cart.Total(),
	}
}

func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cartApp.ErrOutOfStock):
		respondError(c, http.StatusConflict, errCodeConflict, "insufficient stock")
	case errors.Is(err, cartDomain.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "quantity must be positive")
	case errors.Is(err, cartDomain.ErrItemNotFound):
		respondError(c, http.StatusNotFound, errCodeNotFound, "cart item not found")
	case isNotFound(err):
		respondError(c, http.StatusNotFound, errCodeNotFound, "product not found")
	default:
		respondError(c, http.StatusInternalServerError, errCodeInternal, "cart operation failed")
	}
}

func (s *Server) handleCartGet(c *gin.Context) {
	cart, err := s.cartUC.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "load cart failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cartResponse(cart)})
}

func (s *Server) handleCartAdd(c *gin.Context) {
	var body struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ProductID == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "product_id and quantity required")
		return
	}

	cart, err := s.cartUC.Add(c.Request.Context(), currentUserID(c), body.ProductID, body.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cartResponse(cart)})
}

func (s *Server) handleCartUpdate(c *gin.Context) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	cart, err := s.cartUC.SetQuantity(c.Request.Context(), currentUserID(c), c.Param("productID"), body.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cartResponse(cart)})
}

func (s *Server) handleCartRemove(c *gin.Context) {
	cart, err := s.cartUC.Remove(c.Request.Context(), currentUserID(c), c.Param("productID"))
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": cartResponse(cart)})
}

func (s *Server) handleCartClear(c *gin.Context) {
	if err := s.cartUC.Clear(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "clear cart failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
