// Package market produces the display-only quote board. Quotes are a random
// walk and never touch balances or requests.
package market

import (
	"iter"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Instrument describes one symbol on the board.
type Instrument struct {
	Symbol string
	// Places is the number of decimals quotes are rounded to.
	Places int32
	// Pip is the price unit used for both the spread and the step size.
	Pip    decimal.Decimal
	Spread decimal.Decimal
	Bid    decimal.Decimal
}

type Quote struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Spread decimal.Decimal `json:"spread"`
}

// Board is one tick across every instrument, in instrument order.
type Board struct {
	Seq    uint64    `json:"seq"`
	At     time.Time `json:"at"`
	Quotes []Quote   `json:"quotes"`
}

// DefaultInstruments is the opening board.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Symbol: "EURUSD", Places: 5, Pip: decimal.RequireFromString("0.0001"), Spread: decimal.RequireFromString("1.0"), Bid: decimal.RequireFromString("1.09485")},
		{Symbol: "GBPUSD", Places: 5, Pip: decimal.RequireFromString("0.0001"), Spread: decimal.RequireFromString("1.3"), Bid: decimal.RequireFromString("1.26475")},
		{Symbol: "USDJPY", Places: 3, Pip: decimal.RequireFromString("0.01"), Spread: decimal.RequireFromString("2.0"), Bid: decimal.RequireFromString("149.825")},
		{Symbol: "XAUUSD", Places: 2, Pip: decimal.RequireFromString("0.1"), Spread: decimal.RequireFromString("6.0"), Bid: decimal.RequireFromString("2658.2")},
		{Symbol: "BTCUSD", Places: 2, Pip: decimal.RequireFromString("1"), Spread: decimal.RequireFromString("30.0"), Bid: decimal.RequireFromString("91250.0")},
	}
}

// Walk returns an infinite sequence of boards. Each range over the sequence
// restarts from the opening prices with the same seed, so two walks with one
// seed yield identical boards.
func Walk(instruments []Instrument, seed uint64) iter.Seq[Board] {
	return func(yield func(Board) bool) {
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		bids := make([]decimal.Decimal, len(instruments))
		for i, in := range instruments {
			bids[i] = in.Bid
		}
		for seq := uint64(1); ; seq++ {
			quotes := make([]Quote, len(instruments))
			for i, in := range instruments {
				// Uniform step of at most one pip either way.
				step := in.Pip.Mul(decimal.NewFromFloat(rng.Float64()*2 - 1))
				bid := bids[i].Add(step).Round(in.Places)
				if !bid.IsPositive() {
					bid = bids[i]
				}
				bids[i] = bid
				quotes[i] = Quote{
					Symbol: in.Symbol,
					Bid:    bid,
					Ask:    bid.Add(in.Spread.Mul(in.Pip)).Round(in.Places),
					Spread: in.Spread,
				}
			}
			if !yield(Board{Seq: seq, At: time.Now().UTC(), Quotes: quotes}) {
				return
			}
		}
	}
}

// Feed hands out successive boards of one walk to concurrent callers.
type Feed struct {
	mu   sync.Mutex
	next func() (Board, bool)
	stop func()
}

func NewFeed(seed uint64) *Feed {
	next, stop := iter.Pull(Walk(DefaultInstruments(), seed))
	return &Feed{next: next, stop: stop}
}

// Next returns the following board.
func (f *Feed) Next() Board {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := f.next()
	return b
}

// Close releases the underlying walk.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stop()
}
