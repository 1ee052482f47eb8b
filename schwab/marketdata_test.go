package schwab

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

const quoteBody = `{
  "SPX": {
    "assetMainType": "INDEX",
    "symbol": "SPX",
    "reference": {"description": "S&P 500 Index", "exchange": "IND"},
    "quote": {
      "lastPrice": 5910.25, "bidPrice": 5910.0, "askPrice": 5910.5,
      "bidSize": 2, "askSize": 3,
      "openPrice": 5885.0, "highPrice": 5920.0, "lowPrice": 5880.0,
      "closePrice": 5890.0, "netChange": 20.25, "netPercentChange": 0.34,
      "totalVolume": 123456, "quoteTime": 1734715800000
    }
  }
}`

func TestGetQuote(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/marketdata/v1/quotes" {
			t.Fatalf("path = %q, want /marketdata/v1/quotes", got)
		}
		q := r.URL.Query()
		if got := q.Get("symbols"); got != "SPX" {
			t.Fatalf("symbols = %q, want SPX", got)
		}
		if got := q.Get("fields"); got != "quote,reference" {
			t.Fatalf("fields = %q, want quote,reference", got)
		}
		_, _ = w.Write([]byte(quoteBody))
	})
	defer srv.Close()

	quote, err := c.GetQuote(context.Background(), "SPX")
	if err != nil {
		t.Fatalf("GetQuote error: %v", err)
	}
	if quote.Symbol != "SPX" || quote.Description != "S&P 500 Index" {
		t.Fatalf("quote = %+v", quote)
	}
	if quote.Last != 5910.25 || quote.Bid != 5910.0 || quote.Ask != 5910.5 {
		t.Fatalf("prices = last=%v bid=%v ask=%v", quote.Last, quote.Bid, quote.Ask)
	}
	if quote.PrevClose != 5890.0 || quote.Volume != 123456 {
		t.Fatalf("quote = %+v", quote)
	}
	if want := time.UnixMilli(1734715800000); !quote.QuoteTime.Equal(want) {
		t.Fatalf("QuoteTime = %v, want %v", quote.QuoteTime, want)
	}
}

func TestGetQuote_MissingSymbol(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	defer srv.Close()

	if _, err := c.GetQuote(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for missing symbol")
	}
}

func TestGetQuotes_MultipleSymbols(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "SPX,SPY" {
			t.Fatalf("symbols = %q, want SPX,SPY", got)
		}
		_, _ = w.Write([]byte(quoteBody))
	})
	defer srv.Close()

	quotes, err := c.GetQuotes(context.Background(), []string{"SPX", "SPY"})
	if err != nil {
		t.Fatalf("GetQuotes error: %v", err)
	}
	// SPY absent from the response is not an error at this level.
	if len(quotes) != 1 {
		t.Fatalf("len(quotes) = %d, want 1", len(quotes))
	}
}

func TestGetQuotes_NoSymbols(t *testing.T) {
	c := New("tok")
	if _, err := c.GetQuotes(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty symbol list")
	}
}

func TestRiskFreeRate(t *testing.T) {
	tests := []struct {
		name      string
		last      float64
		prevClose float64
		want      float64
		wantErr   bool
	}{
		{name: "from last price", last: 4.21, prevClose: 4.18, want: 0.0421},
		{name: "falls back to previous close", last: 0, prevClose: 4.18, want: 0.0418},
		{name: "no usable price", last: 0, prevClose: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("symbols"); got != TreasuryBillSymbol {
					t.Fatalf("symbols = %q, want %q", got, TreasuryBillSymbol)
				}
				body := fmt.Sprintf(`{%q: {"symbol": %q, "quote": {"lastPrice": %v, "closePrice": %v}}}`,
					TreasuryBillSymbol, TreasuryBillSymbol, tt.last, tt.prevClose)
				_, _ = w.Write([]byte(body))
			})
			defer srv.Close()

			rate, err := c.RiskFreeRate(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RiskFreeRate error: %v", err)
			}
			if diff := rate - tt.want; diff > 1e-12 || diff < -1e-12 {
				t.Fatalf("rate = %v, want %v", rate, tt.want)
			}
		})
	}
}

func TestGetPriceHistory(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/marketdata/v1/pricehistory" {
			t.Fatalf("path = %q", got)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "SPY" || q.Get("periodType") != "month" || q.Get("period") != "3" {
			t.Fatalf("query = %v", q)
		}
		if q.Get("frequencyType") != "daily" || q.Get("frequency") != "1" {
			t.Fatalf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{
			"symbol": "SPY",
			"empty": false,
			"candles": [
				{"datetime": 1734670800000, "open": 588.1, "high": 590.4, "low": 586.2, "close": 589.9, "volume": 41000000},
				{"datetime": 1734757200000, "open": 589.9, "high": 592.0, "low": 588.0, "close": 591.2, "volume": 39000000}
			]
		}`))
	})
	defer srv.Close()

	candles, err := c.GetPriceHistory(context.Background(), "SPY", PriceHistoryParams{
		PeriodType:    "month",
		Period:        3,
		FrequencyType: "daily",
		Frequency:     1,
	})
	if err != nil {
		t.Fatalf("GetPriceHistory error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len(candles) = %d, want 2", len(candles))
	}
	if candles[0].Close != 589.9 || candles[1].Volume != 39000000 {
		t.Fatalf("candles = %+v", candles)
	}
	if want := time.UnixMilli(1734670800000); !candles[0].Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", candles[0].Time, want)
	}
}

func TestGetPriceHistory_DateRangeParams(t *testing.T) {
	start := time.UnixMilli(1700000000000)
	end := time.UnixMilli(1705000000000)
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startDate") != "1700000000000" || q.Get("endDate") != "1705000000000" {
			t.Fatalf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"symbol":"SPY","empty":true,"candles":[]}`))
	})
	defer srv.Close()

	candles, err := c.GetPriceHistory(context.Background(), "SPY", PriceHistoryParams{Start: start, End: end})
	if err != nil {
		t.Fatalf("GetPriceHistory error: %v", err)
	}
	if len(candles) != 0 {
		t.Fatalf("len(candles) = %d, want 0", len(candles))
	}
}

func TestGetPriceHistory_RequiresSymbol(t *testing.T) {
	c := New("tok")
	if _, err := c.GetPriceHistory(context.Background(), "", PriceHistoryParams{}); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestGetOptionChain(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/marketdata/v1/chains" {
			t.Fatalf("path = %q", got)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "SPX" || q.Get("contractType") != "PUT" || q.Get("strikeCount") != "2" {
			t.Fatalf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{
			"symbol": "SPX",
			"status": "SUCCESS",
			"underlyingPrice": 5910.25,
			"callExpDateMap": {},
			"putExpDateMap": {
				"2024-12-20:30": {
					"5800.0": [{"symbol": "SPX   241220P05800000", "putCall": "PUT", "bid": 6.8, "ask": 7.2, "strikePrice": 5800.0, "daysToExpiration": 30, "delta": -0.12}],
					"5900.0": [{"symbol": "SPX   241220P05900000", "putCall": "PUT", "bid": 12.2, "ask": 12.8, "strikePrice": 5900.0, "daysToExpiration": 30, "delta": -0.21}]
				}
			}
		}`))
	})
	defer srv.Close()

	chain, err := c.GetOptionChain(context.Background(), "SPX", ChainParams{ContractType: "PUT", StrikeCount: 2})
	if err != nil {
		t.Fatalf("GetOptionChain error: %v", err)
	}
	if chain.Symbol != "SPX" || chain.UnderlyingPrice != 5910.25 {
		t.Fatalf("chain = %+v", chain)
	}

	puts := chain.PutExpDateMap.Contracts()
	if len(puts) != 2 {
		t.Fatalf("len(puts) = %d, want 2", len(puts))
	}
	// Flattened output is ordered by strike within the expiry.
	if puts[0].StrikePrice != 5800.0 || puts[1].StrikePrice != 5900.0 {
		t.Fatalf("puts = %+v", puts)
	}
	if !strings.Contains(puts[0].Symbol, "P05800000") {
		t.Fatalf("symbol = %q", puts[0].Symbol)
	}
	if len(chain.CallExpDateMap.Contracts()) != 0 {
		t.Fatal("expected no calls")
	}
}
