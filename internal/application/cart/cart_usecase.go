package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogApp "storefront/internal/application/catalog"
	domain "storefront/internal/domain/cart"
)

// CartRepository 儲存/載入使用者購物車。
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	SaveCart(ctx context.Context, c domain.Cart) error
}

// ErrOutOfStock 商品無庫存或庫存不足。
var ErrOutOfStock = errors.New("insufficient stock")

// UseCase 處理購物車操作；加入品項時以商品主檔的現價為準。
type UseCase struct {
	carts   CartRepository
	catalog catalogApp.CatalogRepository
	now     func() time.Time
}

func NewUseCase(carts CartRepository, catalog catalogApp.CatalogRepository) *UseCase {
	return &UseCase{carts: carts, catalog: catalog, now: time.Now}
}

// Get 取得購物車；不存在時回傳空車。
func (u *UseCase) Get(ctx context.Context, userID string) (domain.Cart, error) {
	c, err := u.carts.GetCart(ctx, userID)
	if err != nil {
		return domain.Cart{UserID: userID}, nil
	}
	return c, nil
}

// Add 加入商品；同商品累加數量，單價以現價覆寫。
func (u *UseCase) Add(ctx context.Context, userID, productID string, qty int) (domain.Cart, error) {
	product, err := u.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get product: %w", err)
	}
	c, _ := u.Get(ctx, userID)

	current := 0
	for _, it := range c.Items {
		if it.ProductID == productID {
			current = it.Quantity
		}
	}
	if qty <= 0 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}
	if current+qty > product.Stock {
		return domain.Cart{}, ErrOutOfStock
	}

	if err := c.Upsert(domain.Item{
		ProductID: productID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  qty,
		AddedAt:   u.now(),
	}); err != nil {
		return domain.Cart{}, err
	}
	c.UpdatedAt = u.now()
	if err := u.carts.SaveCart(ctx, c); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// SetQuantity 調整數量；0 代表移除。
func (u *UseCase) SetQuantity(ctx context.Context, userID, productID string, qty int) (domain.Cart, error) {
	c, _ := u.Get(ctx, userID)
	if qty > 0 {
		product, err := u.catalog.GetProduct(ctx, productID)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("get product: %w", err)
		}
		if qty > product.Stock {
			return domain.Cart{}, ErrOutOfStock
		}
	}
	if err := c.SetQuantity(productID, qty); err != nil {
		return domain.Cart{}, err
	}
	c.UpdatedAt = u.now()
	if err := u.carts.SaveCart(ctx, c); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Remove 移除品項。
func (u *UseCase) Remove(ctx context.Context, userID, productID string) (domain.Cart, error) {
	return u.SetQuantity(ctx, userID, productID, 0)
}

// Clear 清空購物車。
func (u *UseCase) Clear(ctx context.Context, userID string) error {
	c, _ := u.Get(ctx, userID)
	c.Clear()
	c.UpdatedAt = u.now()
	if err := u.carts.SaveCart(ctx, c); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
