package schwab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PriceHistoryParams controls the price history query. Zero-valued fields
// are omitted and the API applies its own defaults (daily candles over the
// trailing year).
type PriceHistoryParams struct {
	PeriodType    string // day | month | year | ytd
	Period        int
	FrequencyType string // minute | daily | weekly | monthly
	Frequency     int
	Start         time.Time // overrides Period when set
	End           time.Time
	ExtendedHours bool
}

// Candle represents a single historical price bar.
type Candle struct {
	Time   time.Time `json:"datetime"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// priceHistoryResponse mirrors the API payload; candle timestamps are epoch
// milliseconds and get converted on the way out.
type priceHistoryResponse struct {
	Symbol  string `json:"symbol"`
	Empty   bool   `json:"empty"`
	Candles []struct {
		Datetime int64   `json:"datetime"`
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   int64   `json:"volume"`
	} `json:"candles"`
}

// GetPriceHistory retrieves historical price candles for a symbol.
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, p PriceHistoryParams) ([]Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	if p.PeriodType != "" {
		params.Set("periodType", p.PeriodType)
	}
	if p.Period > 0 {
		params.Set("period", strconv.Itoa(p.Period))
	}
	if p.FrequencyType != "" {
		params.Set("frequencyType", p.FrequencyType)
	}
	if p.Frequency > 0 {
		params.Set("frequency", strconv.Itoa(p.Frequency))
	}
	if !p.Start.IsZero() {
		params.Set("startDate", strconv.FormatInt(p.Start.UnixMilli(), 10))
	}
	if !p.End.IsZero() {
		params.Set("endDate", strconv.FormatInt(p.End.UnixMilli(), 10))
	}
	if p.ExtendedHours {
		params.Set("needExtendedHoursData", "true")
	}
	endpoint := c.marketData("/pricehistory?%s", params.Encode())

	var response priceHistoryResponse
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get price history for %s: %w", symbol, err)
	}

	candles := make([]Candle, len(response.Candles))
	for i, bar := range response.Candles {
		candles[i] = Candle{
			Time:   time.UnixMilli(bar.Datetime),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
	}
	return candles, nil
}
