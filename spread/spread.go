// Package spread reconstructs logical put-credit-spread positions from the
// flat position records a brokerage account reports. It is a pure data
// transformation: no I/O, no errors, deterministic for a given input.
package spread

import (
	"math"
	"sort"
	"time"

	"github.com/eddiefleurent/putspread/osi"
)

// AssetTypeOption is the instrument type the brokerage reports for option
// positions. Anything else is ignored by Reconstruct.
const AssetTypeOption = "OPTION"

// Position is one raw position record, already deserialized from the
// account response. The snapshot is owned by the caller; Reconstruct never
// mutates it.
type Position struct {
	Symbol           string  // encoded option symbol, see package osi
	UnderlyingSymbol string
	AssetType        string
	ShortQuantity    float64
	LongQuantity     float64
	AveragePrice     float64
}

// Spread is one reconstructed put credit spread: a short put paired with a
// lower-strike long put on the same underlying and expiry.
type Spread struct {
	Underlying  string
	Expiry      time.Time
	ShortStrike float64
	LongStrike  float64
	Credit      float64 // short average price minus long average price, per spread
	Quantity    float64 // capped by the smaller leg
	MaxLoss     float64 // strike width minus credit, per spread
}

// Width returns the strike width of the spread.
func (s Spread) Width() float64 {
	return s.ShortStrike - s.LongStrike
}

type leg struct {
	pos Position
	sym osi.Symbol
}

// Reconstruct pairs short and long put legs for the given underlying into
// put credit spreads and computes their economics.
//
// Every (short, long) pair within an expiry whose long strike is strictly
// below the short strike produces one Spread, so multiple shorts against
// one long emit the Cartesian product of valid pairs. That can over-count
// relative to the trader's intended structure; downstream consumers depend
// on this approximation, so no best-pair preference is applied.
//
// Non-option positions, other underlyings, call legs, and symbols that do
// not match the OSI grammar are skipped without error. A leg holding both
// short and long quantity is counted on both sides; that is a real, if
// rare, brokerage state.
func Reconstruct(positions []Position, underlying string) []Spread {
	groups := make(map[string][]leg)
	var codes []string

	for _, p := range positions {
		if p.AssetType != AssetTypeOption || p.UnderlyingSymbol != underlying {
			continue
		}
		sym, ok := osi.Parse(p.Symbol)
		if !ok {
			continue
		}
		if _, seen := groups[sym.ExpiryCode]; !seen {
			codes = append(codes, sym.ExpiryCode)
		}
		groups[sym.ExpiryCode] = append(groups[sym.ExpiryCode], leg{pos: p, sym: sym})
	}

	// The input carries no ordering contract; sort expiry codes so the
	// output is stable across calls.
	sort.Strings(codes)

	var spreads []Spread
	for _, code := range codes {
		var shorts, longs []leg
		for _, l := range groups[code] {
			if l.sym.Type != osi.Put {
				continue
			}
			if l.pos.ShortQuantity > 0 {
				shorts = append(shorts, l)
			}
			if l.pos.LongQuantity > 0 {
				longs = append(longs, l)
			}
		}

		for _, s := range shorts {
			for _, l := range longs {
				if l.sym.Strike() >= s.sym.Strike() {
					continue
				}
				credit := s.pos.AveragePrice - l.pos.AveragePrice
				spreads = append(spreads, Spread{
					Underlying:  underlying,
					Expiry:      s.sym.ExpiryDate(),
					ShortStrike: s.sym.Strike(),
					LongStrike:  l.sym.Strike(),
					Credit:      credit,
					Quantity:    math.Min(s.pos.ShortQuantity, l.pos.LongQuantity),
					MaxLoss:     (s.sym.Strike() - l.sym.Strike()) - credit,
				})
			}
		}
	}

	return spreads
}
