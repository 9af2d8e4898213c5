package internal

import (
	"bytes"
	"fmt"
	"strings"
)

// Pair is a supported currency pair in "EUR/XXX" form: the price of one unit
// of the quote crypto expressed in EUR.
type Pair string

const (
	EURBTC Pair = "EUR/BTC"
	EURETH Pair = "EUR/ETH"
	EURLTC Pair = "EUR/LTC"
)

// supportedPairs fixes the order pairs are reported and fetched in.
var supportedPairs = []Pair{EURBTC, EURETH, EURLTC}

// pairSymbols maps each pair to the upstream quote symbol.
var pairSymbols = map[Pair]string{
	EURBTC: "BTCEUR",
	EURETH: "ETHEUR",
	EURLTC: "LTCEUR",
}

func NewPair(s string) (Pair, error) {
	p := Pair(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsSupported() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPair, s)
	}
	return p, nil
}

func SupportedPairs() []Pair {
	out := make([]Pair, len(supportedPairs))
	copy(out, supportedPairs)
	return out
}

func (p Pair) IsSupported() bool {
	_, ok := pairSymbols[p]
	return ok
}

// Symbol returns the upstream quote symbol, e.g. "BTCEUR" for EUR/BTC.
func (p Pair) Symbol() (string, error) {
	sym, ok := pairSymbols[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPair, string(p))
	}
	return sym, nil
}

func (p Pair) Base() string {
	base, _, _ := strings.Cut(string(p), "/")
	return base
}

func (p Pair) Quote() string {
	_, quote, _ := strings.Cut(string(p), "/")
	return quote
}

func (p Pair) String() string { return string(p) }

func (p Pair) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", string(p))), nil
}

func (p *Pair) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := strings.Trim(string(b), "\"")
	pair, err := NewPair(s)
	if err != nil {
		return err
	}
	*p = pair
	return nil
}
