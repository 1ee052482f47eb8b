package schwab

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/putspread/spread"
)

// API defines the surface of the brokerage client. Wrappers such as the
// circuit breaker and the retry client decorate this interface rather than
// the concrete Client.
type API interface {
	// Market data
	GetQuote(ctx context.Context, symbol string) (*QuoteItem, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]QuoteItem, error)
	GetPriceHistory(ctx context.Context, symbol string, p PriceHistoryParams) ([]Candle, error)
	GetOptionChain(ctx context.Context, symbol string, p ChainParams) (*OptionChain, error)
	RiskFreeRate(ctx context.Context) (float64, error)

	// Accounts
	GetAccountNumbers(ctx context.Context) ([]AccountNumber, error)
	GetAccount(ctx context.Context, accountHash string, withPositions bool) (*Account, error)
	GetAccounts(ctx context.Context, withPositions bool) ([]Account, error)
	AllPositions(ctx context.Context) ([]Position, error)
	GetSpreads(ctx context.Context, underlying string) ([]spread.Spread, error)

	// Orders
	PlaceOrder(ctx context.Context, accountHash string, order *Order) (int64, error)
	ReplaceOrder(ctx context.Context, accountHash string, orderID int64, order *Order) (int64, error)
	GetOrder(ctx context.Context, accountHash string, orderID int64) (*Order, error)
	GetOrders(ctx context.Context, accountHash string, from, to time.Time, status string) ([]Order, error)
	CancelOrder(ctx context.Context, accountHash string, orderID int64) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// IsPermanentAPIError reports whether err is an API error that retrying
// cannot fix: any 4xx except 429 Too Many Requests.
func IsPermanentAPIError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 429
	}
	return false
}

// CircuitBreakerClient wraps an API with circuit breaker functionality.
type CircuitBreakerClient struct {
	api     API
	breaker *gobreaker.CircuitBreaker
}

// Ensure CircuitBreakerClient implements API at compile time.
var _ API = (*CircuitBreakerClient)(nil)

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerClient creates a CircuitBreakerClient with sensible defaults.
func NewCircuitBreakerClient(api API) *CircuitBreakerClient {
	return NewCircuitBreakerClientWithSettings(api, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerClientWithSettings creates a CircuitBreakerClient with custom settings.
func NewCircuitBreakerClientWithSettings(api API, settings CircuitBreakerSettings) *CircuitBreakerClient {
	gbSettings := gobreaker.Settings{
		Name:        "SchwabCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerClient{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execCircuitBreaker is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	api API,
	fn func(API) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(api) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// GetQuote wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetQuote(ctx context.Context, symbol string) (*QuoteItem, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (*QuoteItem, error) { return a.GetQuote(ctx, symbol) })
}

// GetQuotes wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetQuotes(ctx context.Context, symbols []string) (map[string]QuoteItem, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (map[string]QuoteItem, error) { return a.GetQuotes(ctx, symbols) })
}

// GetPriceHistory wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetPriceHistory(ctx context.Context, symbol string, p PriceHistoryParams) ([]Candle, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) ([]Candle, error) { return a.GetPriceHistory(ctx, symbol, p) })
}

// GetOptionChain wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetOptionChain(ctx context.Context, symbol string, p ChainParams) (*OptionChain, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (*OptionChain, error) { return a.GetOptionChain(ctx, symbol, p) })
}

// RiskFreeRate wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) RiskFreeRate(ctx context.Context) (float64, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (float64, error) { return a.RiskFreeRate(ctx) })
}

// GetAccountNumbers wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetAccountNumbers(ctx context.Context) ([]AccountNumber, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) ([]AccountNumber, error) { return a.GetAccountNumbers(ctx) })
}

// GetAccount wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetAccount(ctx context.Context, accountHash string, withPositions bool) (*Account, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (*Account, error) {
		return a.GetAccount(ctx, accountHash, withPositions)
	})
}

// GetAccounts wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetAccounts(ctx context.Context, withPositions bool) ([]Account, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) ([]Account, error) { return a.GetAccounts(ctx, withPositions) })
}

// AllPositions wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) AllPositions(ctx context.Context) ([]Position, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) ([]Position, error) { return a.AllPositions(ctx) })
}

// GetSpreads wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetSpreads(ctx context.Context, underlying string) ([]spread.Spread, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) ([]spread.Spread, error) { return a.GetSpreads(ctx, underlying) })
}

// PlaceOrder wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) PlaceOrder(ctx context.Context, accountHash string, order *Order) (int64, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (int64, error) { return a.PlaceOrder(ctx, accountHash, order) })
}

// ReplaceOrder wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) ReplaceOrder(ctx context.Context, accountHash string, orderID int64, order *Order) (int64, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (int64, error) {
		return a.ReplaceOrder(ctx, accountHash, orderID, order)
	})
}

// GetOrder wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetOrder(ctx context.Context, accountHash string, orderID int64) (*Order, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) (*Order, error) { return a.GetOrder(ctx, accountHash, orderID) })
}

// GetOrders wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) GetOrders(ctx context.Context, accountHash string, from, to time.Time, status string) ([]Order, error) {
	return execCircuitBreaker(c.breaker, c.api, func(a API) ([]Order, error) {
		return a.GetOrders(ctx, accountHash, from, to, status)
	})
}

// CancelOrder wraps the underlying call with circuit breaker
func (c *CircuitBreakerClient) CancelOrder(ctx context.Context, accountHash string, orderID int64) error {
	_, err := execCircuitBreaker(c.breaker, c.api, func(a API) (struct{}, error) {
		return struct{}{}, a.CancelOrder(ctx, accountHash, orderID)
	})
	return err
}
