package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DashboardStats is the backend's summary of a vendor's business. All
// figures are computed server side.
type DashboardStats struct {
	Stats                  Totals                  `json:"stats"`
	BestSelling            []BestSeller            `json:"best_selling"`
	PriceMismatches        []PriceMismatch         `json:"price_mismatches"`
	RestockRecommendations []RestockRecommendation `json:"restock_recommendations"`
	LowStock               []LowStockItem          `json:"low_stock"`
}

type Totals struct {
	TotalProducts  int64           `json:"total_products"`
	TotalSales     int64           `json:"total_sales"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	LowStockAlerts int64           `json:"low_stock_alerts"`
}

type BestSeller struct {
	ProductName  string          `json:"product__name"`
	TotalQty     int64           `json:"total_qty"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type PriceMismatch struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	MarketPrice decimal.Decimal `json:"market_price"`
	// Deviation is the percentage difference from the market price.
	Deviation decimal.Decimal `json:"deviation"`
	Status    string          `json:"status"`
}

type RestockRecommendation struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	CurrentStock         int64     `json:"current_stock"`
	SuggestedRestock     int64     `json:"suggested_restock"`
	DaysStockLeft        StockDays `json:"days_stock_left"`
	PredictedWeeklySales float64   `json:"predicted_weekly_sales"`
	Confidence           string    `json:"confidence"`
	Status               string    `json:"status"`
}

type LowStockItem struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Stock             int64  `json:"stock"`
	LowStockThreshold int64  `json:"low_stock_threshold"`
	Status            string `json:"status"`
}

// StockDays is how long stock is expected to last. The backend sends a
// number of days, or a string such as "30+" once the estimate is capped.
type StockDays struct {
	Days    int64
	AtLeast bool
}

func (d *StockDays) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = StockDays{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = StockDays{Days: int64(v)}
		return nil
	case string:
		s := strings.TrimSpace(v)
		atLeast := strings.HasSuffix(s, "+")
		days, err := strconv.ParseInt(strings.TrimSuffix(s, "+"), 10, 64)
		if err != nil {
			return errors.Errorf("[StockDays] unrecognised value %q", v)
		}
		*d = StockDays{Days: days, AtLeast: atLeast}
		return nil
	default:
		return errors.Errorf("[StockDays] unrecognised value %s", string(b))
	}
}

func (d StockDays) MarshalJSON() ([]byte, error) {
	if d.AtLeast {
		return json.Marshal(d.String())
	}
	return json.Marshal(d.Days)
}

func (d StockDays) String() string {
	s := strconv.FormatInt(d.Days, 10)
	if d.AtLeast {
		s += "+"
	}
	return s
}

type Dashboard struct {
	client Client
}

func (d *Dashboard) Get(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if err := d.client.Get(ctx, pathDashboard, &out); err != nil {
		return nil, errors.Wrap(err, "[Dashboard.Get] request failed")
	}
	return &out, nil
}
