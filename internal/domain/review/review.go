package review

import (
	"errors"
	"strings"
	"time"
)

// Review 商品評論。每位使用者對同一商品僅能留一則。
type Review struct {
	ID        string
	ProductID string
	UserID    string
	UserName  string
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrInvalidRating 評分必須在 1 到 5 之間。
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrDuplicateReview 同一使用者重複評論同一商品。
	ErrDuplicateReview = errors.New("user already reviewed this product")
)

// Validate 寫入前的欄位檢查。
func (r Review) Validate() error {
	if r.ProductID == "" {
		return errors.New("product id is required")
	}
	if r.UserID == "" {
		return errors.New("user id is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	if strings.TrimSpace(r.Comment) == "" {
		return errors.New("comment is required")
	}
	return nil
}

// AverageRating 計算平均分；無評論回傳 0。
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
