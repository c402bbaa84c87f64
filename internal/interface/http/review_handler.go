package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	reviewApp "storefront/internal/application/review"
	reviewDomain "storefront/internal/domain/review"
)

func reviewPayload(r reviewDomain.Review) gin.H {
	return gin.H{
		"id":         r.ID,
		"product_id": r.ProductID,
		"user_id":    r.UserID,
		"user_name":  r.UserName,
		"rating":     r.Rating,
		"comment":    r.Comment,
		"created_at": r.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleReviewList(c *gin.Context) {
	reviews, err := s.reviewUC.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "list reviews failed")
		return
	}

	out := make([]gin.H, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, reviewPayload(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": out})
}

func (s *Server) handleReviewSubmit(c *gin.Context) {
	var body struct {
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
		UserName string `json:"user_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	review, err := s.reviewUC.Submit(c.Request.Context(), reviewApp.SubmitInput{
		ProductID: c.Param("id"),
		UserID:    currentUserID(c),
		UserName:  body.UserName,
		Rating:    body.Rating,
		Comment:   body.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, reviewDomain.ErrDuplicateReview):
			respondError(c, http.StatusConflict, errCodeConflict, "product already reviewed")
		case errors.Is(err, reviewDomain.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, errCodeBadRequest, "rating must be between 1 and 5")
		case isNotFound(err):
			respondError(c, http.StatusNotFound, errCodeNotFound, "product not found")
		default:
			respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "review": reviewPayload(review)})
}
