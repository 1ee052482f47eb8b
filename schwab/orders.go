package schwab

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eddiefleurent/putspread/osi"
	"github.com/eddiefleurent/putspread/util"
)

// Order sessions, durations, types, and leg instructions as the API spells
// them.
const (
	SessionNormal = "NORMAL"

	DurationDay            = "DAY"
	DurationGoodTillCancel = "GOOD_TILL_CANCEL"

	OrderTypeLimit     = "LIMIT"
	OrderTypeMarket    = "MARKET"
	OrderTypeNetCredit = "NET_CREDIT"
	OrderTypeNetDebit  = "NET_DEBIT"

	InstructionBuyToOpen   = "BUY_TO_OPEN"
	InstructionSellToOpen  = "SELL_TO_OPEN"
	InstructionBuyToClose  = "BUY_TO_CLOSE"
	InstructionSellToClose = "SELL_TO_CLOSE"
)

// optionPriceTick is the finest increment order prices are rounded to
// before encoding.
const optionPriceTick = 0.01

// Order is the order document sent to and returned by the orders
// endpoints. Fields past the leg collection are populated only on reads.
type Order struct {
	Session                  string     `json:"session"`
	Duration                 string     `json:"duration"`
	OrderType                string     `json:"orderType"`
	Price                    float64    `json:"price,omitempty"`
	ComplexOrderStrategyType string     `json:"complexOrderStrategyType,omitempty"`
	OrderStrategyType        string     `json:"orderStrategyType"`
	OrderLegCollection       []OrderLeg `json:"orderLegCollection"`

	// Read-only fields returned by the API.
	OrderID           int64   `json:"orderId,omitempty"`
	Status            string  `json:"status,omitempty"`
	FilledQuantity    float64 `json:"filledQuantity,omitempty"`
	RemainingQuantity float64 `json:"remainingQuantity,omitempty"`
	EnteredTime       string  `json:"enteredTime,omitempty"`
	CloseTime         string  `json:"closeTime,omitempty"`
}

// OrderLeg is one leg of an order.
type OrderLeg struct {
	Instruction string          `json:"instruction"`
	Quantity    float64         `json:"quantity"`
	Instrument  OrderInstrument `json:"instrument"`
}

// OrderInstrument names the security a leg trades.
type OrderInstrument struct {
	Symbol    string `json:"symbol"`
	AssetType string `json:"assetType"`
}

// NewPutCreditSpreadOrder builds a two-leg vertical order selling the
// higher-strike put and buying the lower-strike put for a net credit.
func NewPutCreditSpreadOrder(underlying string, expiry time.Time, shortStrike, longStrike float64,
	quantity int, credit float64) (*Order, error) {
	if underlying == "" {
		return nil, fmt.Errorf("underlying is required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid credit quantity: %d (must be > 0)", quantity)
	}
	if credit <= 0 {
		return nil, fmt.Errorf("invalid credit price: %.2f (must be > 0)", credit)
	}
	if longStrike >= shortStrike {
		return nil, fmt.Errorf(
			"invalid strikes for put credit spread: long strike (%.2f) must be below short strike (%.2f)",
			longStrike, shortStrike,
		)
	}

	shortSymbol := osi.Format(underlying, expiry, osi.Put, shortStrike)
	longSymbol := osi.Format(underlying, expiry, osi.Put, longStrike)

	return &Order{
		Session:                  SessionNormal,
		Duration:                 DurationDay,
		OrderType:                OrderTypeNetCredit,
		Price:                    util.RoundToTick(credit, optionPriceTick),
		ComplexOrderStrategyType: "VERTICAL",
		OrderStrategyType:        "SINGLE",
		OrderLegCollection: []OrderLeg{
			{
				Instruction: InstructionSellToOpen,
				Quantity:    float64(quantity),
				Instrument:  OrderInstrument{Symbol: shortSymbol, AssetType: AssetTypeOption},
			},
			{
				Instruction: InstructionBuyToOpen,
				Quantity:    float64(quantity),
				Instrument:  OrderInstrument{Symbol: longSymbol, AssetType: AssetTypeOption},
			},
		},
	}, nil
}

// PlaceOrder submits an order against an account and returns the order id
// the API assigns. The id arrives only in the Location header of the 201
// response.
func (c *Client) PlaceOrder(ctx context.Context, accountHash string, order *Order) (int64, error) {
	if accountHash == "" {
		return 0, fmt.Errorf("account hash is required")
	}
	if order == nil || len(order.OrderLegCollection) == 0 {
		return 0, fmt.Errorf("order must have at least one leg")
	}
	endpoint := c.trader("/accounts/%s/orders", accountHash)

	resp, err := c.doCtx(ctx, http.MethodPost, endpoint, order)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("Failed to close response body: %v", cerr)
		}
	}()

	return orderIDFromLocation(resp.Header.Get("Location"))
}

// ReplaceOrder atomically cancels an order and submits a replacement,
// returning the new order id.
func (c *Client) ReplaceOrder(ctx context.Context, accountHash string, orderID int64, order *Order) (int64, error) {
	if accountHash == "" {
		return 0, fmt.Errorf("account hash is required")
	}
	if order == nil || len(order.OrderLegCollection) == 0 {
		return 0, fmt.Errorf("order must have at least one leg")
	}
	endpoint := c.trader("/accounts/%s/orders/%d", accountHash, orderID)

	resp, err := c.doCtx(ctx, http.MethodPut, endpoint, order)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("Failed to close response body: %v", cerr)
		}
	}()

	return orderIDFromLocation(resp.Header.Get("Location"))
}

// GetOrder retrieves a single order by id.
func (c *Client) GetOrder(ctx context.Context, accountHash string, orderID int64) (*Order, error) {
	endpoint := c.trader("/accounts/%s/orders/%d", accountHash, orderID)

	var response Order
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetOrders retrieves the orders entered in [from, to] for an account,
// optionally filtered by status.
func (c *Client) GetOrders(ctx context.Context, accountHash string, from, to time.Time, status string) ([]Order, error) {
	if accountHash == "" {
		return nil, fmt.Errorf("account hash is required")
	}
	params := url.Values{}
	params.Set("fromEnteredTime", from.UTC().Format(time.RFC3339))
	params.Set("toEnteredTime", to.UTC().Format(time.RFC3339))
	if status != "" {
		params.Set("status", status)
	}
	endpoint := c.trader("/accounts/%s/orders?%s", accountHash, params.Encode())

	var response []Order
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// CancelOrder cancels a working order.
func (c *Client) CancelOrder(ctx context.Context, accountHash string, orderID int64) error {
	endpoint := c.trader("/accounts/%s/orders/%d", accountHash, orderID)
	return c.makeRequestCtx(ctx, http.MethodDelete, endpoint, nil, nil)
}

// orderIDFromLocation pulls the numeric order id off the Location header,
// e.g. ".../accounts/HASH/orders/456789". Some gateways omit the header;
// that surfaces as an error rather than a zero id.
func orderIDFromLocation(location string) (int64, error) {
	if location == "" {
		return 0, fmt.Errorf("order accepted but no Location header returned")
	}
	idx := strings.LastIndex(location, "/")
	id, err := strconv.ParseInt(location[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing order id from location %q: %w", location, err)
	}
	return id, nil
}
