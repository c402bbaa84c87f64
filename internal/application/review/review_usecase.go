package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	catalogApp "storefront/internal/application/catalog"
	domain "storefront/internal/domain/review"
)

// ReviewRepository 儲存/查詢商品評論。
type ReviewRepository interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	FindByProductAndUser(ctx context.Context, productID, userID string) (domain.Review, bool, error)
	SaveReview(ctx context.Context, r domain.Review) error
	DeleteReview(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
}

// UseCase 處理評論發表與商品評分回寫。
type UseCase struct {
	reviews ReviewRepository
	catalog catalogApp.CatalogRepository
	now     func() time.Time
}

func NewUseCase(reviews ReviewRepository, catalog catalogApp.CatalogRepository) *UseCase {
	return &UseCase{reviews: reviews, catalog: catalog, now: time.Now}
}

// SubmitInput 發表評論的欄位。
type SubmitInput struct {
	ProductID string
	UserID    string
	UserName  string
	Rating    int
	Comment   string
}

// Submit 發表評論；同一使用者對同一商品僅能留一則，成功後回寫平均分。
func (u *UseCase) Submit(ctx context.Context, input SubmitInput) (domain.Review, error) {
	if _, err := u.catalog.GetProduct(ctx, input.ProductID); err != nil {
		return domain.Review{}, fmt.Errorf("get product: %w", err)
	}
	_, exists, err := u.reviews.FindByProductAndUser(ctx, input.ProductID, input.UserID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return domain.Review{}, domain.ErrDuplicateReview
	}

	now := u.now()
	r := domain.Review{
		ID:        uuid.NewString(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		UserName:  input.UserName,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return domain.Review{}, err
	}
	if err := u.reviews.SaveReview(ctx, r); err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	if err := u.recalcRating(ctx, input.ProductID); err != nil {
		log.Printf("[Review] rating recalc failed product=%s err=%v", input.ProductID, err)
	}
	return r, nil
}

// List 列出商品的全部評論。
func (u *UseCase) List(ctx context.Context, productID string) ([]domain.Review, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id required")
	}
	return u.reviews.ListByProduct(ctx, productID)
}

// Delete 刪除評論（後台用），並回寫平均分。
func (u *UseCase) Delete(ctx context.Context, id, productID string) error {
	if err := u.reviews.DeleteReview(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if err := u.recalcRating(ctx, productID); err != nil {
		log.Printf("[Review] rating recalc failed product=%s err=%v", productID, err)
	}
	return nil
}

func (u *UseCase) recalcRating(ctx context.Context, productID string) error {
	reviews, err := u.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	avg := domain.AverageRating(reviews)
	return u.catalog.UpdateProductRating(ctx, productID, avg, len(reviews))
}
