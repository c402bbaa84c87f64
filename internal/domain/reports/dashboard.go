package reports

import "time"

// StoreOverview 聚合後台儀表板摘要。
type StoreOverview struct {
	GeneratedAt     time.Time
	TotalProducts   int
	TotalCategories int
	TotalUsers      int
	TotalReviews    int
	AverageRating   float64
	LowStockCount   int // 庫存低於門檻的商品數
	Categories      []CategoryStat
	TopRated        []ProductBrief
}

// CategoryStat 描述單一分類的商品分佈，供長條圖使用。
type CategoryStat struct {
	CategoryID   string
	Name         string
	ProductCount int
	AveragePrice float64
}

// ProductBrief 提供簡短商品資料，供排行榜使用。
type ProductBrief struct {
	ProductID   string
	Name        string
	Rating      float64
	ReviewCount int
}

// SessionStats 會話統計，供儀表板呈現目前活躍/預警/過期分佈。
type SessionStats struct {
	Active  int
	Warning int
	Expired int
}
