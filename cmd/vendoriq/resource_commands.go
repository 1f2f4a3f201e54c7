package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/jrsteele09/vendoriq-client/resources"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type productListSettings struct {
	LowStock bool `glazed:"low-stock"`
}

func newProductsCommand(opts *rootOptions) (*cobra.Command, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	list, err := buildListCommand(opts, cmds.NewCommandDescription(
		"list",
		cmds.WithShort("List products"),
		cmds.WithFlags(
			fields.New(
				"low-stock",
				fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Only show products flagged as low on stock"),
			),
		),
		cmds.WithSections(glazedSection),
	), listProducts)
	if err != nil {
		return nil, err
	}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List and manage products",
	}
	cmd.AddCommand(list, newProductAddCommand(opts), newProductDeleteCommand(opts))
	return cmd, nil
}

func listProducts(ctx context.Context, a *app, parsed *values.Values, emit func(types.Row) error) error {
	s := &productListSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	products, err := a.api.Products.List(ctx)
	if err != nil {
		return err
	}
	if s.LowStock {
		products = resources.LowStock(products)
	}
	for _, p := range products {
		if err := emit(productRow(p)); err != nil {
			return err
		}
	}
	return nil
}

func newProductAddCommand(opts *rootOptions) *cobra.Command {
	var (
		in          resources.ProductInput
		price       string
		marketPrice string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Price, err = decimal.NewFromString(price); err != nil {
				return fmt.Errorf("invalid --price %q: %w", price, err)
			}
			if marketPrice != "" {
				mp, err := decimal.NewFromString(marketPrice)
				if err != nil {
					return fmt.Errorf("invalid --market-price %q: %w", marketPrice, err)
				}
				in.MarketPrice = &mp
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				p, err := a.api.Products.Create(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created product #%d %s\n", p.ID, p.Name)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Name, "name", "", "product name")
	flags.StringVar(&in.Category, "category", "", "product category")
	flags.StringVar(&price, "price", "", "unit price")
	flags.Int64Var(&in.Stock, "stock", 0, "units in stock")
	flags.Int64Var(&in.LowStockThreshold, "threshold", 5, "low stock threshold")
	flags.StringVar(&marketPrice, "market-price", "", "reference market price")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newProductDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				if err := a.api.Products.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted product #%d\n", id)
				return nil
			})
		},
	}
}

type saleListSettings struct {
	Summary bool `glazed:"summary"`
}

func newSalesCommand(opts *rootOptions) (*cobra.Command, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	list, err := buildListCommand(opts, cmds.NewCommandDescription(
		"list",
		cmds.WithShort("List sales"),
		cmds.WithFlags(
			fields.New(
				"summary",
				fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Print one row with the sale count and revenue"),
			),
		),
		cmds.WithSections(glazedSection),
	), listSales)
	if err != nil {
		return nil, err
	}

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List and record sales",
	}
	cmd.AddCommand(list, newSaleAddCommand(opts), newSaleDeleteCommand(opts))
	return cmd, nil
}

func listSales(ctx context.Context, a *app, parsed *values.Values, emit func(types.Row) error) error {
	s := &saleListSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	sales, err := a.api.Sales.List(ctx)
	if err != nil {
		return err
	}
	if s.Summary {
		return emit(salesSummaryRow(sales))
	}
	for _, sale := range sales {
		if err := emit(saleRow(sale)); err != nil {
			return err
		}
	}
	return nil
}

func newSaleAddCommand(opts *rootOptions) *cobra.Command {
	var in resources.SaleInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				s, err := a.api.Sales.Record(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded sale #%d: %d x %s = %s\n",
					s.ID, s.Quantity, s.ProductName, s.TotalPrice.StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&in.Product, "product", 0, "product id")
	cmd.Flags().Int64Var(&in.Quantity, "quantity", 1, "units sold")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newSaleDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				if err := a.api.Sales.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted sale #%d\n", id)
				return nil
			})
		},
	}
}

const (
	dashboardViewStats       = "stats"
	dashboardViewBestSellers = "best-sellers"
	dashboardViewPricing     = "pricing"
	dashboardViewRestock     = "restock"
	dashboardViewLowStock    = "low-stock"
)

type dashboardSettings struct {
	View string `glazed:"view"`
}

func newDashboardCommand(opts *rootOptions) (*cobra.Command, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	return buildListCommand(opts, cmds.NewCommandDescription(
		"dashboard",
		cmds.WithShort("Show business totals, best sellers and stock alerts"),
		cmds.WithLong("Show one view of the dashboard computed by the backend: totals, best sellers, pricing against the market, restock recommendations or low stock."),
		cmds.WithFlags(
			fields.New(
				"view",
				fields.TypeChoice,
				fields.WithHelp("Dashboard view to print"),
				fields.WithChoices(
					dashboardViewStats,
					dashboardViewBestSellers,
					dashboardViewPricing,
					dashboardViewRestock,
					dashboardViewLowStock,
				),
				fields.WithDefault(dashboardViewStats),
			),
		),
		cmds.WithSections(glazedSection),
	), showDashboard)
}

func showDashboard(ctx context.Context, a *app, parsed *values.Values, emit func(types.Row) error) error {
	s := &dashboardSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	stats, err := a.api.Dashboard.Get(ctx)
	if err != nil {
		return err
	}
	return dashboardRows(stats, s.View, emit)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func productRow(p resources.Product) types.Row {
	market := ""
	if p.MarketPrice.Valid {
		market = p.MarketPrice.Decimal.StringFixed(2)
	}
	return types.NewRow(
		types.MRP("id", p.ID),
		types.MRP("name", p.Name),
		types.MRP("category", p.Category),
		types.MRP("price", p.Price.StringFixed(2)),
		types.MRP("market_price", market),
		types.MRP("stock", p.Stock),
		types.MRP("low_stock_threshold", p.LowStockThreshold),
		types.MRP("low_stock", p.IsLowStock),
	)
}

func saleRow(s resources.Sale) types.Row {
	return types.NewRow(
		types.MRP("id", s.ID),
		types.MRP("product", s.Product),
		types.MRP("product_name", s.ProductName),
		types.MRP("quantity", s.Quantity),
		types.MRP("total_price", s.TotalPrice.StringFixed(2)),
		types.MRP("date", s.Date.Local().Format(time.DateTime)),
	)
}

func salesSummaryRow(sales []resources.Sale) types.Row {
	return types.NewRow(
		types.MRP("sales", len(sales)),
		types.MRP("revenue", resources.Revenue(sales).StringFixed(2)),
	)
}

// dashboardRows emits the rows of one dashboard view.
func dashboardRows(d *resources.DashboardStats, view string, emit func(types.Row) error) error {
	switch view {
	case dashboardViewStats, "":
		return emit(types.NewRow(
			types.MRP("total_products", d.Stats.TotalProducts),
			types.MRP("total_sales", d.Stats.TotalSales),
			types.MRP("total_revenue", d.Stats.TotalRevenue.StringFixed(2)),
			types.MRP("low_stock_alerts", d.Stats.LowStockAlerts),
		))
	case dashboardViewBestSellers:
		for _, b := range d.BestSelling {
			if err := emit(types.NewRow(
				types.MRP("product", b.ProductName),
				types.MRP("total_qty", b.TotalQty),
				types.MRP("total_revenue", b.TotalRevenue.StringFixed(2)),
			)); err != nil {
				return err
			}
		}
	case dashboardViewPricing:
		for _, m := range d.PriceMismatches {
			if err := emit(types.NewRow(
				types.MRP("id", m.ID),
				types.MRP("product", m.Name),
				types.MRP("price", m.Price.StringFixed(2)),
				types.MRP("market_price", m.MarketPrice.StringFixed(2)),
				types.MRP("deviation_pct", m.Deviation.StringFixed(1)),
				types.MRP("status", m.Status),
			)); err != nil {
				return err
			}
		}
	case dashboardViewRestock:
		for _, r := range d.RestockRecommendations {
			if err := emit(types.NewRow(
				types.MRP("id", r.ID),
				types.MRP("product", r.Name),
				types.MRP("current_stock", r.CurrentStock),
				types.MRP("days_stock_left", r.DaysStockLeft.String()),
				types.MRP("suggested_restock", r.SuggestedRestock),
				types.MRP("confidence", r.Confidence),
				types.MRP("status", r.Status),
			)); err != nil {
				return err
			}
		}
	case dashboardViewLowStock:
		for _, l := range d.LowStock {
			if err := emit(types.NewRow(
				types.MRP("id", l.ID),
				types.MRP("product", l.Name),
				types.MRP("stock", l.Stock),
				types.MRP("low_stock_threshold", l.LowStockThreshold),
				types.MRP("status", l.Status),
			)); err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("[dashboardRows] unknown view %q", view)
	}
	return nil
}
