package resources

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Sale struct {
	ID          int64           `json:"id"`
	Product     int64           `json:"product"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Date        time.Time       `json:"date"`
}

type SaleInput struct {
	Product  int64 `json:"product"`
	Quantity int64 `json:"quantity"`
}

type Sales struct {
	client Client
}

// List returns the vendor's sales, newest first.
func (s *Sales) List(ctx context.Context) ([]Sale, error) {
	var out []Sale
	if err := s.client.Get(ctx, pathSales, &out); err != nil {
		return nil, errors.Wrap(err, "[Sales.List] request failed")
	}
	return out, nil
}

// Record registers a sale. The backend prices it and decrements stock.
func (s *Sales) Record(ctx context.Context, in SaleInput) (*Sale, error) {
	var out Sale
	if err := s.client.Post(ctx, pathSales, in, &out); err != nil {
		return nil, errors.Wrap(err, "[Sales.Record] request failed")
	}
	return &out, nil
}

func (s *Sales) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, itemPath(pathSales, id)); err != nil {
		return errors.Wrapf(err, "[Sales.Delete] sale %d", id)
	}
	return nil
}

// Revenue sums the total price of sales.
func Revenue(sales []Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.TotalPrice)
	}
	return total
}
