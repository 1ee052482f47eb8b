package schwab

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// AssetTypeOption is the instrument asset type the API reports for option
// positions.
const AssetTypeOption = "OPTION"

// AccountNumber pairs a plain account number with the hashed value every
// other account endpoint requires.
type AccountNumber struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

// Account represents one account envelope from the accounts endpoints.
type Account struct {
	SecuritiesAccount SecuritiesAccount `json:"securitiesAccount"`
}

// SecuritiesAccount carries the account details and, when requested, the
// position snapshot.
type SecuritiesAccount struct {
	Type            string     `json:"type"` // CASH | MARGIN
	AccountNumber   string     `json:"accountNumber"`
	RoundTrips      int        `json:"roundTrips"`
	IsDayTrader     bool       `json:"isDayTrader"`
	Positions       []Position `json:"positions"`
	CurrentBalances Balances   `json:"currentBalances"`
}

// Balances is the subset of account balance fields this library exposes.
type Balances struct {
	LiquidationValue float64 `json:"liquidationValue"`
	CashBalance      float64 `json:"cashBalance"`
	BuyingPower      float64 `json:"buyingPower"`
	AvailableFunds   float64 `json:"availableFunds"`
}

// Position represents a single position record. Long and short exposure
// are reported as separate non-negative quantities; a record can carry
// both at once.
type Position struct {
	ShortQuantity float64    `json:"shortQuantity"`
	LongQuantity  float64    `json:"longQuantity"`
	AveragePrice  float64    `json:"averagePrice"`
	MarketValue   float64    `json:"marketValue"`
	Instrument    Instrument `json:"instrument"`
}

// Instrument identifies the security a position is held in.
type Instrument struct {
	AssetType        string `json:"assetType"`
	Cusip            string `json:"cusip"`
	Symbol           string `json:"symbol"`
	Description      string `json:"description"`
	UnderlyingSymbol string `json:"underlyingSymbol"`
	PutCall          string `json:"putCall"`
}

// GetAccountNumbers retrieves the account number / hash pairs for the
// authenticated user.
func (c *Client) GetAccountNumbers(ctx context.Context) ([]AccountNumber, error) {
	endpoint := c.trader("/accounts/accountNumbers")

	var response []AccountNumber
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// GetAccount retrieves a single account by its hash value, optionally with
// its position snapshot.
func (c *Client) GetAccount(ctx context.Context, accountHash string, withPositions bool) (*Account, error) {
	if accountHash == "" {
		return nil, fmt.Errorf("account hash is required")
	}
	endpoint := c.trader("/accounts/%s", accountHash)
	if withPositions {
		endpoint += "?fields=positions"
	}

	var response Account
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetAccounts retrieves every linked account, optionally with positions.
func (c *Client) GetAccounts(ctx context.Context, withPositions bool) ([]Account, error) {
	endpoint := c.trader("/accounts")
	if withPositions {
		endpoint += "?fields=positions"
	}

	var response []Account
	if err := c.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// AllPositions fetches the position snapshot of every linked account and
// flattens the result. The per-account calls are independent, so they are
// issued concurrently and joined; the output keeps account-number order so
// repeated calls over the same snapshot agree.
func (c *Client) AllPositions(ctx context.Context) ([]Position, error) {
	numbers, err := c.GetAccountNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	accounts := make([]*Account, len(numbers))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range numbers {
		i, n := i, n
		g.Go(func() error {
			acct, err := c.GetAccount(gctx, n.HashValue, true)
			if err != nil {
				return fmt.Errorf("account %s: %w", n.AccountNumber, err)
			}
			accounts[i] = acct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var positions []Position
	for _, acct := range accounts {
		positions = append(positions, acct.SecuritiesAccount.Positions...)
	}
	return positions, nil
}
