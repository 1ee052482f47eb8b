// Package retry decorates order placement with bounded, jittered retries
// for transient failures. Permanent API errors (4xx other than 429) fail
// immediately.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/eddiefleurent/putspread/schwab"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

type Client struct {
	api    schwab.API
	logger *log.Logger
	config Config
}

func NewClient(api schwab.API, logger *log.Logger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return &Client{
		api:    api,
		logger: logger,
		config: cfg,
	}
}

// PlaceOrderWithRetry submits an order, retrying transient failures with
// exponential backoff until the order is accepted, the attempts are
// exhausted, or the overall timeout elapses.
func (c *Client) PlaceOrderWithRetry(
	ctx context.Context,
	accountHash string,
	order *schwab.Order,
) (int64, error) {
	placeCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		select {
		case <-placeCtx.Done():
			return 0, fmt.Errorf("place operation timed out after %v: %w", c.config.Timeout, placeCtx.Err())
		default:
		}

		if ctx.Err() != nil {
			return 0, fmt.Errorf("operation canceled: %w", ctx.Err())
		}

		c.logger.Printf("Place attempt %d/%d", attempt+1, c.config.MaxRetries+1)

		orderID, err := c.api.PlaceOrder(placeCtx, accountHash, order)
		if err == nil {
			c.logger.Printf("Order placed successfully on attempt %d: %d", attempt+1, orderID)
			return orderID, nil
		}

		lastErr = err
		c.logger.Printf("Place attempt %d failed: %v", attempt+1, err)

		if schwab.IsPermanentAPIError(err) {
			break
		}

		if c.isTransientError(err) && attempt < c.config.MaxRetries {
			c.logger.Printf("Transient error detected, retrying in %v", backoff)
			select {
			case <-time.After(backoff):
				backoff = c.calculateNextBackoff(backoff)
			case <-placeCtx.Done():
				return 0, fmt.Errorf("place operation timed out during backoff: %w", placeCtx.Err())
			case <-ctx.Done():
				return 0, fmt.Errorf("operation canceled during backoff: %w", ctx.Err())
			}
		} else {
			break
		}
	}

	return 0, fmt.Errorf("failed to place order after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			log.Printf("Failed to generate jitter: %v", err)
		} else {
			jitter := time.Duration(jitterVal.Int64())
			backoff += jitter
		}
	}

	return backoff
}

func (c *Client) isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
