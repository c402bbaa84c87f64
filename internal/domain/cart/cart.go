package cart

import (
	"errors"
	"time"
)

// Item 購物車單一品項。
type Item struct {
	ProductID string
	Name      string
	UnitPrice float64
	Quantity  int
	AddedAt   time.Time
}

// LineTotal 單品小計。
func (i Item) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Cart 使用者購物車；品項以加入順序排列。
type Cart struct {
	UserID    string
	Items     []Item
	UpdatedAt time.Time
}

// ErrItemNotFound 品項不存在於購物車。
var ErrItemNotFound = errors.New("cart item not found")

// ErrInvalidQuantity 數量必須為正值。
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Upsert 加入品項；已存在時累加數量。
func (c *Cart) Upsert(item Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for idx := range c.Items {
		if c.Items[idx].ProductID == item.ProductID {
			c.Items[idx].Quantity += item.Quantity
			c.Items[idx].UnitPrice = item.UnitPrice
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity 直接指定數量；0 視為移除。
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	for idx := range c.Items {
		if c.Items[idx].ProductID == productID {
			if qty == 0 {
				c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
				return nil
			}
			c.Items[idx].Quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

// Remove 移除品項。
func (c *Cart) Remove(productID string) error {
	return c.SetQuantity(productID, 0)
}

// Clear 清空購物車。
func (c *Cart) Clear() {
	c.Items = nil
}

// Total 全車總額。
func (c *Cart) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.LineTotal()
	}
	return sum
}

// Count 全車件數。
func (c *Cart) Count() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
