// Package httpapi provides an HTTP REST API for account status, positions and
// orders, serving the same data as the CLI in JSON format.
package httpapi

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ScreenStocksResponse is the body of GET /api/screen_stocks.
type ScreenStocksResponse struct {
	Stocks []string `json:"stocks"`
}
