package schwab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewPutCreditSpreadOrder(t *testing.T) {
	expiry := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)

	order, err := NewPutCreditSpreadOrder("SPX", expiry, 5900, 5800, 2, 5.50)
	if err != nil {
		t.Fatalf("NewPutCreditSpreadOrder error: %v", err)
	}
	if order.OrderType != OrderTypeNetCredit || order.ComplexOrderStrategyType != "VERTICAL" {
		t.Fatalf("order = %+v", order)
	}
	if order.Price != 5.50 {
		t.Fatalf("Price = %v, want 5.50", order.Price)
	}
	if len(order.OrderLegCollection) != 2 {
		t.Fatalf("legs = %+v", order.OrderLegCollection)
	}

	short := order.OrderLegCollection[0]
	long := order.OrderLegCollection[1]
	if short.Instruction != InstructionSellToOpen || short.Quantity != 2 {
		t.Fatalf("short leg = %+v", short)
	}
	if short.Instrument.Symbol != "SPX   241220P05900000" {
		t.Fatalf("short symbol = %q", short.Instrument.Symbol)
	}
	if long.Instruction != InstructionBuyToOpen || long.Instrument.Symbol != "SPX   241220P05800000" {
		t.Fatalf("long leg = %+v", long)
	}
}

func TestNewPutCreditSpreadOrder_Validation(t *testing.T) {
	expiry := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		underlying  string
		shortStrike float64
		longStrike  float64
		quantity    int
		credit      float64
	}{
		{"missing underlying", "", 5900, 5800, 1, 5.50},
		{"zero quantity", "SPX", 5900, 5800, 0, 5.50},
		{"negative quantity", "SPX", 5900, 5800, -1, 5.50},
		{"zero credit", "SPX", 5900, 5800, 1, 0},
		{"equal strikes", "SPX", 5900, 5900, 1, 5.50},
		{"inverted strikes", "SPX", 5800, 5900, 1, 5.50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPutCreditSpreadOrder(tt.underlying, expiry, tt.shortStrike, tt.longStrike, tt.quantity, tt.credit)
			if err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	var srv *httptest.Server
	var c *Client
	c, srv = newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/trader/v1/accounts/HASH-A/orders" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		var got Order
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding order body: %v", err)
		}
		if got.OrderType != OrderTypeNetCredit || len(got.OrderLegCollection) != 2 {
			t.Fatalf("order body = %+v", got)
		}
		w.Header().Set("Location", srv.URL+"/trader/v1/accounts/HASH-A/orders/456789")
		w.WriteHeader(http.StatusCreated)
	})
	defer srv.Close()

	expiry := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)
	order, err := NewPutCreditSpreadOrder("SPX", expiry, 5900, 5800, 1, 5.50)
	if err != nil {
		t.Fatalf("building order: %v", err)
	}

	id, err := c.PlaceOrder(context.Background(), "HASH-A", order)
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}
	if id != 456789 {
		t.Fatalf("id = %d, want 456789", id)
	}
}

func TestPlaceOrder_MissingLocationHeader(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	defer srv.Close()

	expiry := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)
	order, _ := NewPutCreditSpreadOrder("SPX", expiry, 5900, 5800, 1, 5.50)

	if _, err := c.PlaceOrder(context.Background(), "HASH-A", order); err == nil {
		t.Fatal("expected error when Location header is missing")
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	c := New("tok")
	expiry := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)
	order, _ := NewPutCreditSpreadOrder("SPX", expiry, 5900, 5800, 1, 5.50)

	if _, err := c.PlaceOrder(context.Background(), "", order); err == nil {
		t.Fatal("expected error for empty account hash")
	}
	if _, err := c.PlaceOrder(context.Background(), "HASH-A", nil); err == nil {
		t.Fatal("expected error for nil order")
	}
	if _, err := c.PlaceOrder(context.Background(), "HASH-A", &Order{}); err == nil {
		t.Fatal("expected error for order with no legs")
	}
}

func TestReplaceOrder(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/trader/v1/accounts/HASH-A/orders/456789" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Location", "/trader/v1/accounts/HASH-A/orders/456790")
		w.WriteHeader(http.StatusCreated)
	})
	defer srv.Close()

	expiry := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)
	order, _ := NewPutCreditSpreadOrder("SPX", expiry, 5900, 5800, 1, 5.25)

	id, err := c.ReplaceOrder(context.Background(), "HASH-A", 456789, order)
	if err != nil {
		t.Fatalf("ReplaceOrder error: %v", err)
	}
	if id != 456790 {
		t.Fatalf("id = %d, want 456790", id)
	}
}

func TestGetOrder(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trader/v1/accounts/HASH-A/orders/456789" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"orderId": 456789, "status": "FILLED", "orderType": "NET_CREDIT",
			"filledQuantity": 1, "remainingQuantity": 0,
			"orderLegCollection": [{"instruction": "SELL_TO_OPEN", "quantity": 1,
				"instrument": {"symbol": "SPX   241220P05900000", "assetType": "OPTION"}}]
		}`))
	})
	defer srv.Close()

	order, err := c.GetOrder(context.Background(), "HASH-A", 456789)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if order.OrderID != 456789 || order.Status != "FILLED" {
		t.Fatalf("order = %+v", order)
	}
}

func TestGetOrders_QueryEncoding(t *testing.T) {
	from := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)

	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("fromEnteredTime"); got != "2024-12-01T00:00:00Z" {
			t.Fatalf("fromEnteredTime = %q", got)
		}
		if got := q.Get("toEnteredTime"); got != "2024-12-20T00:00:00Z" {
			t.Fatalf("toEnteredTime = %q", got)
		}
		if got := q.Get("status"); got != "WORKING" {
			t.Fatalf("status = %q", got)
		}
		_, _ = w.Write([]byte(`[{"orderId": 1, "status": "WORKING"}]`))
	})
	defer srv.Close()

	orders, err := c.GetOrders(context.Background(), "HASH-A", from, to, "WORKING")
	if err != nil {
		t.Fatalf("GetOrders error: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != 1 {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestCancelOrder(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/trader/v1/accounts/HASH-A/orders/456789" {
			t.Fatalf("%s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	if err := c.CancelOrder(context.Background(), "HASH-A", 456789); err != nil {
		t.Fatalf("CancelOrder error: %v", err)
	}
}

func TestOrderIDFromLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     int64
		wantErr  bool
	}{
		{"full URL", "https://api.schwabapi.com/trader/v1/accounts/HASH/orders/456789", 456789, false},
		{"path only", "/trader/v1/accounts/HASH/orders/12", 12, false},
		{"empty", "", 0, true},
		{"non-numeric tail", "/orders/abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderIDFromLocation(tt.location)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("orderIDFromLocation error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("id = %d, want %d", got, tt.want)
			}
		})
	}
}
