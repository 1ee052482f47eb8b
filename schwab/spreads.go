package schwab

import (
	"context"
	"fmt"

	"github.com/eddiefleurent/putspread/osi"
	"github.com/eddiefleurent/putspread/spread"
)

// GetSpreads fetches the position snapshot across every linked account and
// reconstructs the put credit spreads held on the given underlying. The
// result is derived fresh from the snapshot on every call.
func (c *Client) GetSpreads(ctx context.Context, underlying string) ([]spread.Spread, error) {
	if underlying == "" {
		return nil, fmt.Errorf("underlying is required")
	}
	positions, err := c.AllPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	return spread.Reconstruct(toSpreadPositions(positions), underlying), nil
}

// toSpreadPositions maps raw account positions onto the reconstructor's
// input shape. Option records missing the underlyingSymbol field fall back
// to the underlying encoded in the option symbol itself.
func toSpreadPositions(positions []Position) []spread.Position {
	out := make([]spread.Position, 0, len(positions))
	for _, p := range positions {
		underlying := p.Instrument.UnderlyingSymbol
		if underlying == "" && p.Instrument.AssetType == AssetTypeOption {
			if sym, ok := osi.Parse(p.Instrument.Symbol); ok {
				underlying = sym.Underlying
			}
		}
		out = append(out, spread.Position{
			Symbol:           p.Instrument.Symbol,
			UnderlyingSymbol: underlying,
			AssetType:        p.Instrument.AssetType,
			ShortQuantity:    p.ShortQuantity,
			LongQuantity:     p.LongQuantity,
			AveragePrice:     p.AveragePrice,
		})
	}
	return out
}
