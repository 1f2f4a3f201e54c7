package resources

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID                int64               `json:"id"`
	Vendor            int64               `json:"vendor"`
	Name              string              `json:"name"`
	Category          string              `json:"category"`
	Price             decimal.Decimal     `json:"price"`
	Stock             int64               `json:"stock"`
	LowStockThreshold int64               `json:"low_stock_threshold"`
	MarketPrice       decimal.NullDecimal `json:"market_price"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	IsLowStock        bool                `json:"is_low_stock"`
}

// ProductInput is the body for creating or replacing a product.
type ProductInput struct {
	Name              string           `json:"name"`
	Category          string           `json:"category"`
	Price             decimal.Decimal  `json:"price"`
	Stock             int64            `json:"stock"`
	LowStockThreshold int64            `json:"low_stock_threshold"`
	MarketPrice       *decimal.Decimal `json:"market_price,omitempty"`
}

// ProductPatch changes only the fields that are set.
type ProductPatch struct {
	Name              *string          `json:"name,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Stock             *int64           `json:"stock,omitempty"`
	LowStockThreshold *int64           `json:"low_stock_threshold,omitempty"`
	MarketPrice       *decimal.Decimal `json:"market_price,omitempty"`
}

type Products struct {
	client Client
}

func (p *Products) List(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := p.client.Get(ctx, pathProducts, &out); err != nil {
		return nil, errors.Wrap(err, "[Products.List] request failed")
	}
	return out, nil
}

func (p *Products) Get(ctx context.Context, id int64) (*Product, error) {
	var out Product
	if err := p.client.Get(ctx, itemPath(pathProducts, id), &out); err != nil {
		return nil, errors.Wrapf(err, "[Products.Get] product %d", id)
	}
	return &out, nil
}

func (p *Products) Create(ctx context.Context, in ProductInput) (*Product, error) {
	var out Product
	if err := p.client.Post(ctx, pathProducts, in, &out); err != nil {
		return nil, errors.Wrap(err, "[Products.Create] request failed")
	}
	return &out, nil
}

func (p *Products) Update(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	var out Product
	if err := p.client.Put(ctx, itemPath(pathProducts, id), in, &out); err != nil {
		return nil, errors.Wrapf(err, "[Products.Update] product %d", id)
	}
	return &out, nil
}

func (p *Products) Patch(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	var out Product
	if err := p.client.Patch(ctx, itemPath(pathProducts, id), patch, &out); err != nil {
		return nil, errors.Wrapf(err, "[Products.Patch] product %d", id)
	}
	return &out, nil
}

func (p *Products) Delete(ctx context.Context, id int64) error {
	if err := p.client.Delete(ctx, itemPath(pathProducts, id)); err != nil {
		return errors.Wrapf(err, "[Products.Delete] product %d", id)
	}
	return nil
}

// LowStock filters products the backend has flagged as low on stock.
func LowStock(products []Product) []Product {
	var out []Product
	for _, p := range products {
		if p.IsLowStock {
			out = append(out, p)
		}
	}
	return out
}
