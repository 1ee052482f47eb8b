package schwab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// ChainParams narrows the option chain query. Zero-valued fields are
// omitted and the API returns the full chain.
type ChainParams struct {
	ContractType string // CALL | PUT | ALL
	StrikeCount  int
	FromDate     time.Time
	ToDate       time.Time
}

// OptionChain represents the option chain response. Contracts are keyed
// first by an expiry key ("2024-12-20:30", date plus days to expiration)
// and then by the strike rendered as a decimal string ("5900.0").
type OptionChain struct {
	Symbol          string     `json:"symbol"`
	Status          string     `json:"status"`
	UnderlyingPrice float64    `json:"underlyingPrice"`
	CallExpDateMap  ExpDateMap `json:"callExpDateMap"`
	PutExpDateMap   ExpDateMap `json:"putExpDateMap"`
}

// ExpDateMap is the nested expiry -> strike -> contracts layout the API
// uses for chains.
type ExpDateMap map[string]map[string][]Contract

// Contract represents a single option contract within a chain.
type Contract struct {
	Symbol           string  `json:"symbol"`
	Description      string  `json:"description"`
	PutCall          string  `json:"putCall"`
	Bid              float64 `json:"bid"`
	Ask              float64 `json:"ask"`
	Last             float64 `json:"last"`
	Mark             float64 `json:"mark"`
	BidSize          int     `json:"bidSize"`
	AskSize          int     `json:"askSize"`
	TotalVolume      int64   `json:"totalVolume"`
	OpenInterest     int64   `json:"openInterest"`
	StrikePrice      float64 `json:"strikePrice"`
	ExpirationDate   string  `json:"expirationDate"`
	DaysToExpiration int     `json:"daysToExpiration"`
	Delta            float64 `json:"delta"`
	Gamma            float64 `json:"gamma"`
	Theta            float64 `json:"theta"`
	Vega             float64 `json:"vega"`
	Volatility       float64 `json:"volatility"`
}

// GetOptionChain retrieves the option chain for a symbol.
func (c *Client) GetOptionChain(ctx context.Context, symbol string, p ChainParams) (*OptionChain, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	if p.ContractType != "" {
		params.Set("contractType", p.ContractType)
	}
	if p.StrikeCount > 0 {
		params.Set("strikeCount", strconv.Itoa(p.StrikeCount))
	}
	if !p.FromDate.IsZero() {
		params.Set("fromDate", p.FromDate.Format("2006-01-02"))
	}
	if !p.ToDate.IsZero() {
		params.Set("toDate", p.ToDate.Format("2006-01-02"))
	}
	endpoint := c.marketData("/chains?%s", params.Encode())

	var response OptionChain
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Contracts flattens the nested map into a single slice ordered by expiry
// key and then strike.
func (m ExpDateMap) Contracts() []Contract {
	expiries := make([]string, 0, len(m))
	for k := range m {
		expiries = append(expiries, k)
	}
	sort.Strings(expiries)

	var out []Contract
	for _, exp := range expiries {
		strikes := make([]string, 0, len(m[exp]))
		for k := range m[exp] {
			strikes = append(strikes, k)
		}
		sort.Slice(strikes, func(i, j int) bool {
			a, _ := strconv.ParseFloat(strikes[i], 64)
			b, _ := strconv.ParseFloat(strikes[j], 64)
			return a < b
		})
		for _, strike := range strikes {
			out = append(out, m[exp][strike]...)
		}
	}
	return out
}
