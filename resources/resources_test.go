package resources_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/vendoriq-client/internal/errors"
	"github.com/jrsteele09/vendoriq-client/internal/fakebackend"
	"github.com/jrsteele09/vendoriq-client/resources"
	"github.com/jrsteele09/vendoriq-client/store"
	"github.com/jrsteele09/vendoriq-client/store/memstore"
	"github.com/jrsteele09/vendoriq-client/token"
	"github.com/jrsteele09/vendoriq-client/transport"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const vendorEmail = "a@x.com"

func newAPI(t *testing.T) (*resources.API, *fakebackend.Backend) {
	t.Helper()
	backend := fakebackend.New(t)
	backend.AddVendor(vendorEmail, "pw", "Alice", "Shop")
	access, refresh := backend.IssueToken(vendorEmail)

	st := memstore.NewWithValues(map[string]string{
		store.KeyAccessToken:  access,
		store.KeyRefreshToken: refresh,
	})
	gw, err := transport.New(
		transport.Config{BaseEndpoint: backend.URL()},
		transport.WithRequestStages(transport.BearerStage(token.NewStoreSource(st))),
		transport.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	return resources.New(gw), backend
}

func TestProductsLifecycle(t *testing.T) {
	api, _ := newAPI(t)
	ctx := context.Background()

	products, err := api.Products.List(ctx)
	require.NoError(t, err)
	require.Empty(t, products)

	market := decimal.RequireFromString("10.00")
	created, err := api.Products.Create(ctx, resources.ProductInput{
		Name:              "Tea",
		Category:          "Drinks",
		Price:             decimal.RequireFromString("12.50"),
		Stock:             3,
		LowStockThreshold: 5,
		MarketPrice:       &market,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.Price.Equal(decimal.RequireFromString("12.5")))
	require.True(t, created.MarketPrice.Valid)
	require.True(t, created.IsLowStock)
	require.False(t, created.CreatedAt.IsZero())

	stock := int64(40)
	patched, err := api.Products.Patch(ctx, created.ID, resources.ProductPatch{Stock: &stock})
	require.NoError(t, err)
	require.Equal(t, int64(40), patched.Stock)
	require.False(t, patched.IsLowStock)
	require.Equal(t, "Tea", patched.Name)

	updated, err := api.Products.Update(ctx, created.ID, resources.ProductInput{
		Name:              "Green Tea",
		Category:          "Drinks",
		Price:             decimal.RequireFromString("13"),
		Stock:             40,
		LowStockThreshold: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "Green Tea", updated.Name)

	got, err := api.Products.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Green Tea", got.Name)
	require.Equal(t, "13.00", got.Price.StringFixed(2))

	require.NoError(t, api.Products.Delete(ctx, created.ID))
	_, err = api.Products.Get(ctx, created.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestProductsNullMarketPrice(t *testing.T) {
	api, backend := newAPI(t)
	backend.AddProduct(vendorEmail, fakebackend.ProductSeed{Name: "Salt", Price: "1.20", Stock: 10, LowStockThreshold: 2})

	products, err := api.Products.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.False(t, products[0].MarketPrice.Valid)
	require.Empty(t, resources.LowStock(products))
}

func TestProductCreateValidation(t *testing.T) {
	api, _ := newAPI(t)
	_, err := api.Products.Create(context.Background(), resources.ProductInput{Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, errors.ErrValidationRejected)

	failure, ok := transport.AsFailure(err)
	require.True(t, ok)
	require.Equal(t, []string{"This field is required."}, failure.FieldErrors["name"])
}

func TestSales(t *testing.T) {
	api, backend := newAPI(t)
	ctx := context.Background()
	id := backend.AddProduct(vendorEmail, fakebackend.ProductSeed{Name: "Tea", Price: "2.50", Stock: 10, LowStockThreshold: 2})

	first, err := api.Sales.Record(ctx, resources.SaleInput{Product: id, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, "Tea", first.ProductName)
	require.Equal(t, "7.50", first.TotalPrice.StringFixed(2))

	_, err = api.Sales.Record(ctx, resources.SaleInput{Product: id, Quantity: 2})
	require.NoError(t, err)

	_, err = api.Sales.Record(ctx, resources.SaleInput{Product: id, Quantity: 100})
	require.ErrorIs(t, err, errors.ErrValidationRejected)

	sales, err := api.Sales.List(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Equal(t, "12.50", resources.Revenue(sales).StringFixed(2))

	require.NoError(t, api.Sales.Delete(ctx, first.ID))
	sales, err = api.Sales.List(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestDashboard(t *testing.T) {
	api, backend := newAPI(t)
	tea := backend.AddProduct(vendorEmail, fakebackend.ProductSeed{Name: "Tea", Price: "12.00", MarketPrice: "10.00", Stock: 10, LowStockThreshold: 2})
	backend.AddProduct(vendorEmail, fakebackend.ProductSeed{Name: "Salt", Price: "1.00", Stock: 1, LowStockThreshold: 2})
	backend.AddSale(tea, 8)

	stats, err := api.Dashboard.Get(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(2), stats.Stats.TotalProducts)
	require.Equal(t, int64(1), stats.Stats.TotalSales)
	require.Equal(t, "96", stats.Stats.TotalRevenue.String())
	require.Equal(t, int64(2), stats.Stats.LowStockAlerts)

	require.Len(t, stats.BestSelling, 1)
	require.Equal(t, "Tea", stats.BestSelling[0].ProductName)
	require.Equal(t, int64(8), stats.BestSelling[0].TotalQty)

	require.Len(t, stats.PriceMismatches, 1)
	require.Equal(t, "Overpriced", stats.PriceMismatches[0].Status)
	require.Equal(t, "20", stats.PriceMismatches[0].Deviation.String())

	require.Len(t, stats.RestockRecommendations, 2)
	require.Equal(t, resources.StockDays{Days: 1}, stats.RestockRecommendations[0].DaysStockLeft)
	require.Equal(t, resources.StockDays{Days: 30, AtLeast: true}, stats.RestockRecommendations[1].DaysStockLeft)
}

func TestResourcesRequireCredential(t *testing.T) {
	api, backend := newAPI(t)
	backend.RevokeAll()

	_, err := api.Dashboard.Get(context.Background())
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestStockDaysJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    resources.StockDays
		wantErr bool
	}{
		{name: "number", input: `12`, want: resources.StockDays{Days: 12}},
		{name: "capped", input: `"30+"`, want: resources.StockDays{Days: 30, AtLeast: true}},
		{name: "numeric string", input: `"7"`, want: resources.StockDays{Days: 7}},
		{name: "null", input: `null`, want: resources.StockDays{}},
		{name: "garbage", input: `"soon"`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got resources.StockDays
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	out, err := json.Marshal(resources.StockDays{Days: 30, AtLeast: true})
	require.NoError(t, err)
	require.Equal(t, `"30+"`, string(out))
	require.Equal(t, "4", resources.StockDays{Days: 4}.String())
}

func TestNotFoundForOtherVendorsProduct(t *testing.T) {
	api, backend := newAPI(t)
	backend.AddVendor("b@x.com", "pw", "Bob", "Bakery")
	id := backend.AddProduct("b@x.com", fakebackend.ProductSeed{Name: "Bread", Price: "3.00", Stock: 5})

	_, err := api.Products.Get(context.Background(), id)
	require.ErrorIs(t, err, errors.ErrNotFound)
	failure, ok := transport.AsFailure(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, failure.HTTPStatus)
}
