package fakebackend

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// ProductSeed describes a product inserted with AddProduct.
type ProductSeed struct {
	Name              string
	Category          string
	Price             string
	Stock             int64
	LowStockThreshold int64
	MarketPrice       string
}

// AddProduct stores a product owned by email and returns its id.
func (b *Backend) AddProduct(email string, seed ProductSeed) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.vendors[email]
	if v == nil {
		return 0
	}
	p := &product{
		Vendor:            v.ID,
		Name:              seed.Name,
		Category:          seed.Category,
		Price:             decimal.RequireFromString(seed.Price),
		Stock:             seed.Stock,
		LowStockThreshold: seed.LowStockThreshold,
	}
	if seed.MarketPrice != "" {
		mp := decimal.RequireFromString(seed.MarketPrice)
		p.MarketPrice = &mp
	}
	return b.insertProductLocked(p).ID
}

// AddSale records quantity units of productID sold.
func (b *Backend) AddSale(productID, quantity int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.products[productID]
	if p == nil {
		return 0
	}
	return b.insertSaleLocked(p, quantity).ID
}

func (b *Backend) insertProductLocked(p *product) *product {
	b.nextID++
	now := time.Now().UTC()
	p.ID = b.nextID
	p.CreatedAt, p.UpdatedAt = now, now
	b.products[p.ID] = p
	return p
}

func (b *Backend) insertSaleLocked(p *product, quantity int64) *sale {
	b.nextID++
	s := &sale{
		ID:         b.nextID,
		Product:    p.ID,
		Quantity:   quantity,
		TotalPrice: p.Price.Mul(decimal.NewFromInt(quantity)),
		Date:       time.Now().UTC(),
	}
	p.Stock -= quantity
	b.sales[s.ID] = s
	return s
}

func (b *Backend) vendorProductsLocked(v *vendor) []*product {
	var out []*product
	for _, p := range b.products {
		if p.Vendor == v.ID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) vendorSalesLocked(v *vendor) []*sale {
	var out []*sale
	for _, s := range b.sales {
		if p := b.products[s.Product]; p != nil && p.Vendor == v.ID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func productJSON(p *product) map[string]any {
	var market any
	if p.MarketPrice != nil {
		market = p.MarketPrice.StringFixed(2)
	}
	return map[string]any{
		"id":                  p.ID,
		"vendor":              p.Vendor,
		"name":                p.Name,
		"category":            p.Category,
		"price":               p.Price.StringFixed(2),
		"stock":               p.Stock,
		"low_stock_threshold": p.LowStockThreshold,
		"market_price":        market,
		"created_at":          p.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":          p.UpdatedAt.Format(time.RFC3339Nano),
		"is_low_stock":        p.Stock <= p.LowStockThreshold,
	}
}

func (b *Backend) saleJSON(s *sale) map[string]any {
	name := ""
	if p := b.products[s.Product]; p != nil {
		name = p.Name
	}
	return map[string]any{
		"id":           s.ID,
		"product":      s.Product,
		"product_name": name,
		"quantity":     s.Quantity,
		"total_price":  s.TotalPrice.StringFixed(2),
		"date":         s.Date.Format(time.RFC3339Nano),
	}
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	b.mu.Lock()
	out := []map[string]any{}
	for _, p := range b.vendorProductsLocked(v) {
		out = append(out, productJSON(p))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// lookupProductLocked returns the caller's product named in the route, or nil
// after writing a 404.
func (b *Backend) lookupProductLocked(w http.ResponseWriter, r *http.Request, v *vendor) *product {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	p := b.products[id]
	if p == nil || p.Vendor != v.ID {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No Product matches the given query."})
		return nil
	}
	return p
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.lookupProductLocked(w, r, v); p != nil {
		writeJSON(w, http.StatusOK, productJSON(p))
	}
}

type productInput struct {
	Name              *string          `json:"name"`
	Category          *string          `json:"category"`
	Price             *decimal.Decimal `json:"price"`
	Stock             *int64           `json:"stock"`
	LowStockThreshold *int64           `json:"low_stock_threshold"`
	MarketPrice       *decimal.Decimal `json:"market_price"`
}

func (in productInput) apply(p *product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if in.MarketPrice != nil {
		mp := *in.MarketPrice
		p.MarketPrice = &mp
	}
}

func (b *Backend) createProduct(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	var in productInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	errs := map[string]any{}
	if in.Name == nil || *in.Name == "" {
		errs["name"] = []string{"This field is required."}
	}
	if in.Price == nil {
		errs["price"] = []string{"This field is required."}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p := &product{Vendor: v.ID, LowStockThreshold: 5}
	in.apply(p)
	writeJSON(w, http.StatusCreated, productJSON(b.insertProductLocked(p)))
}

func (b *Backend) updateProduct(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	var in productInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.lookupProductLocked(w, r, v)
	if p == nil {
		return
	}
	in.apply(p)
	p.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, productJSON(p))
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.lookupProductLocked(w, r, v)
	if p == nil {
		return
	}
	delete(b.products, p.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listSales(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	b.mu.Lock()
	out := []map[string]any{}
	for _, s := range b.vendorSalesLocked(v) {
		out = append(out, b.saleJSON(s))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createSale(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	var in struct {
		Product  int64 `json:"product"`
		Quantity int64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.products[in.Product]
	switch {
	case p == nil || p.Vendor != v.ID:
		writeJSON(w, http.StatusBadRequest, map[string]any{"product": []string{"Invalid pk - object does not exist."}})
		return
	case in.Quantity <= 0:
		writeJSON(w, http.StatusBadRequest, map[string]any{"quantity": []string{"Ensure this value is greater than or equal to 1."}})
		return
	case in.Quantity > p.Stock:
		writeJSON(w, http.StatusBadRequest, map[string]any{"quantity": []string{"Not enough stock available."}})
		return
	}
	writeJSON(w, http.StatusCreated, b.saleJSON(b.insertSaleLocked(p, in.Quantity)))
}

func (b *Backend) deleteSale(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.sales[id]
	if s == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No Sale matches the given query."})
		return
	}
	if p := b.products[s.Product]; p == nil || p.Vendor != v.ID {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No Sale matches the given query."})
		return
	}
	delete(b.sales, id)
	w.WriteHeader(http.StatusNoContent)
}

// dashboard reports simple aggregates in the backend's wire shape. Weekly
// sales are approximated as everything sold so far.
func (b *Backend) dashboard(w http.ResponseWriter, r *http.Request) {
	v := vendorFrom(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	products := b.vendorProductsLocked(v)
	sales := b.vendorSalesLocked(v)

	revenue := decimal.Zero
	sold := make(map[int64]int64)
	earned := make(map[int64]decimal.Decimal)
	for _, s := range sales {
		revenue = revenue.Add(s.TotalPrice)
		sold[s.Product] += s.Quantity
		earned[s.Product] = earned[s.Product].Add(s.TotalPrice)
	}

	best := []map[string]any{}
	lowStock := []map[string]any{}
	mismatches := []map[string]any{}
	restock := []map[string]any{}
	for _, p := range products {
		if qty := sold[p.ID]; qty > 0 {
			best = append(best, map[string]any{
				"product__name": p.Name,
				"total_qty":     qty,
				"total_revenue": earned[p.ID].StringFixed(2),
			})
		}
		if p.Stock <= p.LowStockThreshold {
			lowStock = append(lowStock, map[string]any{
				"id":                  p.ID,
				"name":                p.Name,
				"stock":               p.Stock,
				"low_stock_threshold": p.LowStockThreshold,
				"status":              "Low Stock",
			})
		}
		if p.MarketPrice != nil && !p.MarketPrice.IsZero() {
			deviation := p.Price.Sub(*p.MarketPrice).Div(*p.MarketPrice).Mul(decimal.NewFromInt(100)).Round(2)
			status := "Fair"
			if deviation.GreaterThan(decimal.NewFromInt(10)) {
				status = "Overpriced"
			} else if deviation.LessThan(decimal.NewFromInt(-10)) {
				status = "Underpriced"
			}
			mismatches = append(mismatches, map[string]any{
				"id":           p.ID,
				"name":         p.Name,
				"price":        p.Price.InexactFloat64(),
				"market_price": p.MarketPrice.InexactFloat64(),
				"deviation":    deviation.InexactFloat64(),
				"status":       status,
			})
		}
		restock = append(restock, restockJSON(p, sold[p.ID]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats": map[string]any{
			"total_products":   len(products),
			"total_sales":      len(sales),
			"total_revenue":    revenue.InexactFloat64(),
			"low_stock_alerts": len(lowStock),
		},
		"best_selling":            best,
		"price_mismatches":        mismatches,
		"restock_recommendations": restock,
		"low_stock":               lowStock,
	})
}

func restockJSON(p *product, weekly int64) map[string]any {
	var daysLeft any = "30+"
	suggested := int64(0)
	status := "Healthy"
	if weekly > 0 {
		daily := float64(weekly) / 7
		days := int64(float64(p.Stock) / daily)
		if days < 30 {
			daysLeft = days
		}
		if days < 7 {
			suggested = weekly*2 - p.Stock
			status = "Restock Soon"
		}
	}
	return map[string]any{
		"id":                     p.ID,
		"name":                   p.Name,
		"current_stock":          p.Stock,
		"suggested_restock":      suggested,
		"days_stock_left":        daysLeft,
		"predicted_weekly_sales": weekly,
		"confidence":             "low",
		"status":                 status,
	}
}
