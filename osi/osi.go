// Package osi encodes and decodes OSI-style option symbols as used by the
// brokerage: underlying padded with spaces, a 6-digit YYMMDD expiry code,
// a P/C marker, and an 8-digit strike with three implied decimal places,
// e.g. "SPX   241220P05900000".
//
// Parsing is fixed-width and anchored at the tail of the symbol; anything
// that does not match the grammar exactly is rejected. No regex is used so
// the parsing contract stays testable on its own.
package osi

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OptionType identifies the contract side encoded in a symbol.
type OptionType string

const (
	// Put represents a put option contract
	Put OptionType = "put"
	// Call represents a call option contract
	Call OptionType = "call"
)

// underlyingPadWidth is the field width the brokerage pads underlyings to
// when it emits option symbols.
const underlyingPadWidth = 6

// minSymbolLen is underlying(>=1) + expiry(6) + type(1) + strike(8).
const minSymbolLen = 16

// Symbol is a decoded option symbol.
type Symbol struct {
	Underlying  string     // padding stripped
	ExpiryCode  string     // raw YYMMDD code, decoded lazily via ExpiryDate
	Type        OptionType
	StrikeMilli int64 // strike at 3-decimal fixed point
}

// Strike returns the strike price in dollars.
func (s Symbol) Strike() float64 {
	return float64(s.StrikeMilli) / 1000
}

// ExpiryDate decodes the YYMMDD expiry code into a calendar date at
// midnight in the local time zone. The local zone matches the behavior the
// library's consumers already depend on, but it makes the result
// timezone-sensitive; use ExpiryDateIn to pin a zone explicitly.
func (s Symbol) ExpiryDate() time.Time {
	return s.ExpiryDateIn(time.Local)
}

// ExpiryDateIn decodes the expiry code into a midnight date in loc.
func (s Symbol) ExpiryDateIn(loc *time.Location) time.Time {
	yy := digits2(s.ExpiryCode[0:2])
	mm := digits2(s.ExpiryCode[2:4])
	dd := digits2(s.ExpiryCode[4:6])
	return time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, loc)
}

// String re-encodes the symbol with standard padding.
func (s Symbol) String() string {
	marker := "C"
	if s.Type == Put {
		marker = "P"
	}
	return fmt.Sprintf("%-*s%s%s%08d", underlyingPadWidth, s.Underlying, s.ExpiryCode, marker, s.StrikeMilli)
}

// Parse decodes an option symbol. It reports ok=false for anything that
// does not match the grammar; callers are expected to skip such symbols
// rather than treat them as errors.
func Parse(raw string) (Symbol, bool) {
	if len(raw) < minSymbolLen {
		return Symbol{}, false
	}

	// Anchor at the tail: 8-digit strike, then the type marker, then the
	// 6-digit expiry. Whatever precedes the expiry is the padded underlying.
	strikeStart := len(raw) - 8
	strikeMilli, ok := parseDigits(raw[strikeStart:])
	if !ok {
		return Symbol{}, false
	}

	var typ OptionType
	switch raw[strikeStart-1] {
	case 'P', 'p':
		typ = Put
	case 'C', 'c':
		typ = Call
	default:
		return Symbol{}, false
	}

	expiryStart := strikeStart - 1 - 6
	if expiryStart < 1 {
		return Symbol{}, false
	}
	code := raw[expiryStart : expiryStart+6]
	if !allDigits(code) {
		return Symbol{}, false
	}

	underlying := strings.TrimRight(raw[:expiryStart], " ")
	if underlying == "" || strings.ContainsRune(underlying, ' ') {
		return Symbol{}, false
	}

	return Symbol{
		Underlying:  underlying,
		ExpiryCode:  code,
		Type:        typ,
		StrikeMilli: strikeMilli,
	}, true
}

// Format builds an option symbol from its parts. The strike is rounded to
// the nearest 1/1000th dollar before encoding; the eps guard avoids
// floating point artifacts on strikes like 394.995.
func Format(underlying string, expiry time.Time, typ OptionType, strike float64) string {
	const eps = 1e-9
	marker := "C"
	if typ == Put {
		marker = "P"
	}
	strikeMilli := int64(math.Round(strike*1000 + eps))
	return fmt.Sprintf("%-*s%s%s%08d", underlyingPadWidth, underlying, expiry.Format("060102"), marker, strikeMilli)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func parseDigits(s string) (int64, bool) {
	if !allDigits(s) {
		return 0, false
	}
	var n int64
	for i := 0; i < len(s); i++ {
		n = n*10 + int64(s[i]-'0')
	}
	return n, true
}

// digits2 assumes a validated 2-digit input.
func digits2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
