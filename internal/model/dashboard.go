package model

// Summary is the dashboard aggregate.
type Summary struct {
	Counts               SummaryCounts `json:"counts"`
	LowStock             []Item        `json:"lowStock"`
	TopReleased          []TopReleased `json:"topReleased"`
	Threshold            int           `json:"threshold"`
	ExpectedOverdueTrend []TrendPoint  `json:"expectedOverdueTrend"`
}

// SummaryCounts holds the headline numbers.
type SummaryCounts struct {
	Items            int `json:"items"`
	OutOfStock       int `json:"outOfStock"`
	LowStock         int `json:"lowStock"`
	Releases         int `json:"releases"`
	PendingApprovals int `json:"pendingApprovals"`
	Returns          int `json:"returns"`
	Overdue          int `json:"overdue"`
}

// TopReleased is an item ranked by released quantity.
type TopReleased struct {
	ItemID      string `json:"itemId"`
	Name        string `json:"name"`
	TotalQty    int    `json:"totalQty"`
	ReleaseRuns int    `json:"releaseCount"`
}

// TrendPoint counts releases expected back on a day and how many are overdue.
type TrendPoint struct {
	Date     string `json:"date"`
	Expected int    `json:"expected"`
	Overdue  int    `json:"overdue"`
}

// Report lists lifecycle activity within a period.
type Report struct {
	Period        string    `json:"period"`
	Releases      []Release `json:"releases"`
	Returns       []Return  `json:"returns"`
	TotalReleased int       `json:"totalReleased"`
	TotalReturned int       `json:"totalReturned"`
}

// InventorySummary is the all-time report behind the reports page.
type InventorySummary struct {
	Summary InventoryTotals `json:"summary"`
	Data    InventoryData   `json:"data"`
}

// InventoryTotals are the headline numbers of an InventorySummary.
type InventoryTotals struct {
	Items         int `json:"items"`
	UnitsInStock  int `json:"unitsInStock"`
	Releases      int `json:"releases"`
	Returns       int `json:"returns"`
	TotalReleased int `json:"totalReleased"`
	TotalReturned int `json:"totalReturned"`
	Outstanding   int `json:"outstanding"`
	Overdue       int `json:"overdue"`
}

// InventoryData carries every release and return.
type InventoryData struct {
	Releases []Release `json:"releases"`
	Returns  []Return  `json:"returns"`
}

// ChartData is per-day activity, one entry per label.
type ChartData struct {
	Labels   []string `json:"labels"`
	Released []int    `json:"released"`
	Returned []int    `json:"returned"`
	Overdue  []int    `json:"overdue"`
}
