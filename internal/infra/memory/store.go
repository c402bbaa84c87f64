package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	catalogApp "storefront/internal/application/catalog"
	authDomain "storefront/internal/domain/auth"
	cartDomain "storefront/internal/domain/cart"
	catalogDomain "storefront/internal/domain/catalog"
	reviewDomain "storefront/internal/domain/review"
	authinfra "storefront/internal/infrastructure/auth"
)

// Store 為無資料庫模式使用的記憶體儲存，開發與測試時取代 Postgres。
type Store struct {
	mu         sync.RWMutex
	users      map[string]authDomain.User
	sessions   map[string]authDomain.Session
	resets     map[string]authDomain.PasswordReset
	products   map[string]catalogDomain.Product
	categories map[string]catalogDomain.Category
	carts      map[string]cartDomain.Cart
	reviews    map[string]reviewDomain.Review
	idSeq      int64
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		users:      make(map[string]authDomain.User),
		sessions:   make(map[string]authDomain.Session),
		resets:     make(map[string]authDomain.PasswordReset),
		products:   make(map[string]catalogDomain.Product),
		categories: make(map[string]catalogDomain.Category),
		carts:      make(map[string]cartDomain.Cart),
		reviews:    make(map[string]reviewDomain.Review),
	}
}

func (s *Store) nextID(prefix string) string {
	s.idSeq++
	return fmt.Sprintf("%s-%d", prefix, s.idSeq)
}

// SeedUsers 建立預設帳號供登入測試。
func (s *Store) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return p
		}
		return h
	}
	s.addUser("admin@example.com", hash("password123"), "Admin", authDomain.RoleAdmin)
	s.addUser("customer@example.com", hash("password123"), "Customer", authDomain.RoleCustomer)
}

func (s *Store) addUser(email, password, name string, role authDomain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("u")
	s.users[id] = authDomain.User{
		ID:       id,
		Email:    email,
		Name:     name,
		Role:     role,
		Status:   authDomain.StatusActive,
		Provider: authDomain.ProviderLocal,
		Password: password,
	}
}

// SeedCatalog 建立範例分類與商品供瀏覽測試。
func (s *Store) SeedCatalog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()

	categories := []catalogDomain.Category{
		{ID: s.nextID("c"), Name: "Electronics", Slug: "electronics", CreatedAt: now},
		{ID: s.nextID("c"), Name: "Books", Slug: "books", CreatedAt: now},
		{ID: s.nextID("c"), Name: "Home", Slug: "home", CreatedAt: now},
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}

	samples := []struct {
		name     string
		category int
		price    float64
		stock    int
	}{
		{"Wireless Headphones", 0, 129.0, 25},
		{"Mechanical Keyboard", 0, 89.0, 8},
		{"Practical Go", 1, 42.5, 40},
		{"Distributed Systems", 1, 55.0, 0},
		{"Desk Lamp", 2, 25.0, 12},
	}
	for _, p := range samples {
		id := s.nextID("p")
		s.products[id] = catalogDomain.Product{
			ID:         id,
			Name:       p.name,
			CategoryID: categories[p.category].ID,
			Price:      p.price,
			Stock:      p.stock,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
}

// --- UserRepository ---

// FindByEmail 依 email 查詢使用者。
func (s *Store) FindByEmail(_ context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return authDomain.User{}, fmt.Errorf("user not found")
}

// FindByID 依 ID 查詢使用者。
func (s *Store) FindByID(_ context.Context, id string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return authDomain.User{}, fmt.Errorf("user not found")
	}
	return u, nil
}

// FindByProvider 依 OAuth 來源查詢使用者。
func (s *Store) FindByProvider(_ context.Context, provider authDomain.Provider, providerID string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return u, nil
		}
	}
	return authDomain.User{}, fmt.Errorf("user not found")
}

// Create 新增使用者。
func (s *Store) Create(_ context.Context, user authDomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// UpdatePassword 更新密碼雜湊。
func (s *Store) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Password = passwordHash
	s.users[userID] = u
	return nil
}

// CountUsers 回傳使用者總數。
func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// --- SessionStore ---

// SaveSession 儲存 refresh session。
func (s *Store) SaveSession(_ context.Context, sess authDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

// GetSession 依 token 取得 session。
func (s *Store) GetSession(_ context.Context, token string) (authDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return authDomain.Session{}, fmt.Errorf("session not found")
	}
	return sess, nil
}

// RevokeSession 撤銷單一 session。
func (s *Store) RevokeSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	now := time.Now()
	sess.RevokedAt = &now
	s.sessions[token] = sess
	return nil
}

// RevokeUserSessions 撤銷使用者的全部 session。
func (s *Store) RevokeUserSessions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for token, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			s.sessions[token] = sess
		}
	}
	return nil
}

// --- ResetStore ---

// SavePasswordReset 儲存密碼重設 token。
func (s *Store) SavePasswordReset(_ context.Context, reset authDomain.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[reset.Token] = reset
	return nil
}

// GetPasswordReset 依 token 取得重設紀錄。
func (s *Store) GetPasswordReset(_ context.Context, token string) (authDomain.PasswordReset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reset, ok := s.resets[token]
	if !ok {
		return authDomain.PasswordReset{}, fmt.Errorf("reset token not found")
	}
	return reset, nil
}

// MarkPasswordResetUsed 標記重設 token 已使用。
func (s *Store) MarkPasswordResetUsed(_ context.Context, token string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reset, ok := s.resets[token]
	if !ok {
		return fmt.Errorf("reset token not found")
	}
	reset.UsedAt = &usedAt
	s.resets[token] = reset
	return nil
}

// --- CatalogRepository ---

// FindProducts 依層疊條件查詢商品。
func (s *Store) FindProducts(_ context.Context, filter catalogDomain.Filter, sortOpt catalogApp.SortOption, p catalogApp.Pagination) ([]catalogDomain.Product, int, error) {
	s.mu.RLock()
	var matched []catalogDomain.Product
	for _, prod := range s.products {
		if filter.Matches(prod) {
			matched = append(matched, prod)
		}
	}
	s.mu.RUnlock()

	sortProducts(matched, sortOpt)
	total := len(matched)

	if p.Offset >= total {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if p.Limit <= 0 || end > total {
		end = total
	}
	return matched[p.Offset:end], total, nil
}

func sortProducts(products []catalogDomain.Product, opt catalogApp.SortOption) {
	less := func(a, b catalogDomain.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch opt.Field {
	case catalogApp.SortName:
		less = func(a, b catalogDomain.Product) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case catalogApp.SortPrice:
		less = func(a, b catalogDomain.Product) bool { return a.Price < b.Price }
	case catalogApp.SortRating:
		less = func(a, b catalogDomain.Product) bool { return a.Rating < b.Rating }
	}
	sort.SliceStable(products, func(i, j int) bool {
		if opt.Desc {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

// GetProduct 依 ID 取得商品。
func (s *Store) GetProduct(_ context.Context, id string) (catalogDomain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return catalogDomain.Product{}, fmt.Errorf("product not found")
	}
	return p, nil
}

// SaveProduct 寫入或更新商品。
func (s *Store) SaveProduct(_ context.Context, p catalogDomain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

// DeleteProduct 刪除商品。
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

// UpdateProductRating 回寫商品平均分。
func (s *Store) UpdateProductRating(_ context.Context, productID string, rating float64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product not found")
	}
	p.Rating = rating
	p.ReviewCount = count
	s.products[productID] = p
	return nil
}

// ListCategories 取得全部分類，依名稱排序。
func (s *Store) ListCategories(_ context.Context) ([]catalogDomain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var categories []catalogDomain.Category
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// GetCategory 依 ID 取得分類。
func (s *Store) GetCategory(_ context.Context, id string) (catalogDomain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return catalogDomain.Category{}, fmt.Errorf("category not found")
	}
	return c, nil
}

// SaveCategory 寫入或更新分類。
func (s *Store) SaveCategory(_ context.Context, c catalogDomain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

// DeleteCategory 刪除分類。
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.categories, id)
	return nil
}

// --- CartRepository ---

// GetCart 取得使用者購物車。
func (s *Store) GetCart(_ context.Context, userID string) (cartDomain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[userID]
	if !ok {
		return cartDomain.Cart{}, fmt.Errorf("cart not found")
	}
	// 複製品項，避免呼叫端改動內部狀態
	copied := c
	copied.Items = append([]cartDomain.Item(nil), c.Items...)
	return copied, nil
}

// SaveCart 覆寫使用者購物車。
func (s *Store) SaveCart(_ context.Context, c cartDomain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := c
	stored.Items = append([]cartDomain.Item(nil), c.Items...)
	s.carts[c.UserID] = stored
	return nil
}

// --- ReviewRepository ---

// ListByProduct 取得商品評論，新的在前。
func (s *Store) ListByProduct(_ context.Context, productID string) ([]reviewDomain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reviews []reviewDomain.Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

// FindByProductAndUser 查詢使用者對商品的既有評論。
func (s *Store) FindByProductAndUser(_ context.Context, productID, userID string) (reviewDomain.Review, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.ProductID == productID && r.UserID == userID {
			return r, true, nil
		}
	}
	return reviewDomain.Review{}, false, nil
}

// SaveReview 寫入評論。
func (s *Store) SaveReview(_ context.Context, r reviewDomain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.ID] = r
	return nil
}

// DeleteReview 刪除評論。
func (s *Store) DeleteReview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reviews, id)
	return nil
}

// CountAll 回傳評論總數。
func (s *Store) CountAll(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews), nil
}
