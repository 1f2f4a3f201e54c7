// Package resources provides typed access to the vendor's products, sales
// and dashboard. Every call goes through the transport gateway and so
// carries the session's bearer credential.
package resources

import (
	"context"
	"fmt"
)

const (
	pathProducts  = "products/"
	pathSales     = "sales/"
	pathDashboard = "dashboard/"
)

// Client is the subset of the transport gateway used here.
type Client interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// API groups the resource clients.
type API struct {
	Products  *Products
	Sales     *Sales
	Dashboard *Dashboard
}

func New(client Client) *API {
	return &API{
		Products:  &Products{client: client},
		Sales:     &Sales{client: client},
		Dashboard: &Dashboard{client: client},
	}
}

func itemPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}
