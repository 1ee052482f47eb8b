package schwab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TreasuryBillSymbol is the 13-week treasury bill index used to derive the
// risk-free rate.
const TreasuryBillSymbol = "$IRX.X"

// ============ EXACT API Response Structures ============

// quotesResponse maps symbol -> quote entry.
type quotesResponse map[string]quoteEntry

type quoteEntry struct {
	AssetMainType string `json:"assetMainType"`
	Symbol        string `json:"symbol"`
	Reference     struct {
		Description string `json:"description"`
		Exchange    string `json:"exchange"`
	} `json:"reference"`
	Quote struct {
		LastPrice        float64 `json:"lastPrice"`
		BidPrice         float64 `json:"bidPrice"`
		AskPrice         float64 `json:"askPrice"`
		BidSize          int64   `json:"bidSize"`
		AskSize          int64   `json:"askSize"`
		OpenPrice        float64 `json:"openPrice"`
		HighPrice        float64 `json:"highPrice"`
		LowPrice         float64 `json:"lowPrice"`
		ClosePrice       float64 `json:"closePrice"`
		NetChange        float64 `json:"netChange"`
		NetPercentChange float64 `json:"netPercentChange"`
		TotalVolume      int64   `json:"totalVolume"`
		QuoteTime        int64   `json:"quoteTime"`
	} `json:"quote"`
}

// QuoteItem is the flattened quote view for a single symbol.
type QuoteItem struct {
	Symbol           string
	Description      string
	AssetType        string
	Exchange         string
	Last             float64
	Bid              float64
	Ask              float64
	BidSize          int64
	AskSize          int64
	Open             float64
	High             float64
	Low              float64
	PrevClose        float64
	NetChange        float64
	NetPercentChange float64
	Volume           int64
	QuoteTime        time.Time
}

func (e quoteEntry) item() QuoteItem {
	return QuoteItem{
		Symbol:           e.Symbol,
		Description:      e.Reference.Description,
		AssetType:        e.AssetMainType,
		Exchange:         e.Reference.Exchange,
		Last:             e.Quote.LastPrice,
		Bid:              e.Quote.BidPrice,
		Ask:              e.Quote.AskPrice,
		BidSize:          e.Quote.BidSize,
		AskSize:          e.Quote.AskSize,
		Open:             e.Quote.OpenPrice,
		High:             e.Quote.HighPrice,
		Low:              e.Quote.LowPrice,
		PrevClose:        e.Quote.ClosePrice,
		NetChange:        e.Quote.NetChange,
		NetPercentChange: e.Quote.NetPercentChange,
		Volume:           e.Quote.TotalVolume,
		QuoteTime:        time.UnixMilli(e.Quote.QuoteTime),
	}
}

// ============ API Methods ============

// GetQuotes retrieves current market quotes for one or more symbols in a
// single request, keyed by symbol. Symbols the API does not recognize are
// simply absent from the result.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]QuoteItem, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("fields", "quote,reference")
	endpoint := c.marketData("/quotes?%s", params.Encode())

	var response quotesResponse
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	quotes := make(map[string]QuoteItem, len(response))
	for sym, entry := range response {
		quotes[sym] = entry.item()
	}
	return quotes, nil
}

// GetQuote retrieves the current market quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*QuoteItem, error) {
	quotes, err := c.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote found for symbol: %s", symbol)
	}
	return &q, nil
}

// RiskFreeRate derives the annualized risk-free rate, as a decimal, from
// the 13-week treasury bill index quote. The index quotes the yield in
// percent (4.21 means 4.21%); outside market hours the previous close is
// used when no last trade is available.
func (c *Client) RiskFreeRate(ctx context.Context) (float64, error) {
	q, err := c.GetQuote(ctx, TreasuryBillSymbol)
	if err != nil {
		return 0, fmt.Errorf("treasury bill quote: %w", err)
	}
	rate := q.Last
	if rate <= 0 {
		rate = q.PrevClose
	}
	if rate <= 0 {
		return 0, fmt.Errorf("treasury bill quote for %s has no usable price", TreasuryBillSymbol)
	}
	return rate / 100, nil
}
