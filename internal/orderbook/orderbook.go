// Package orderbook maintains sorted bid and ask ladders for a single
// market, keyed by integer-cent prices.
package orderbook

import (
	"fmt"

	"github.com/google/btree"
)

// Level is one price level in the ladder. Size is contracts for Kalshi
// and shares for Polymarket; the two are never mixed in one book.
type Level struct {
	PriceCents int     `json:"price"`
	Size       float64 `json:"size"`
}

// lessAsc orders levels by price ascending (asks: lowest first).
func lessAsc(a, b Level) bool {
	return a.PriceCents < b.PriceCents
}

// lessDesc orders levels by price descending (bids: highest first).
func lessDesc(a, b Level) bool {
	return a.PriceCents > b.PriceCents
}

// Book maintains sorted bid and ask levels using btrees.
// Bids are sorted descending, asks ascending.
type Book struct {
	bids *btree.BTreeG[Level]
	asks *btree.BTreeG[Level]
}

func New() *Book {
	return &Book{
		bids: btree.NewG(32, lessDesc),
		asks: btree.NewG(32, lessAsc),
	}
}

// Set sets an absolute size at a price level.
// A size <= 0 removes the level.
func (b *Book) Set(side string, priceCents int, size float64) error {
	tree, err := b.tree(side)
	if err != nil {
		return err
	}

	if size <= 0 {
		tree.Delete(Level{PriceCents: priceCents})
		return nil
	}

	tree.ReplaceOrInsert(Level{PriceCents: priceCents, Size: size})
	return nil
}

// TopN returns the top N price levels for a side.
// Bids: highest prices first. Asks: lowest prices first.
func (b *Book) TopN(side string, n int) ([]Level, error) {
	tree, err := b.tree(side)
	if err != nil {
		return nil, err
	}

	levels := make([]Level, 0, min(n, tree.Len()))
	tree.Ascend(func(lvl Level) bool {
		levels = append(levels, lvl)
		return len(levels) < n
	})

	return levels, nil
}

// Len returns the number of levels on a side.
func (b *Book) Len(side string) int {
	tree, _ := b.tree(side)
	if tree == nil {
		return 0
	}
	return tree.Len()
}

func (b *Book) tree(side string) (*btree.BTreeG[Level], error) {
	switch side {
	case "bids":
		return b.bids, nil
	case "asks":
		return b.asks, nil
	default:
		return nil, fmt.Errorf("invalid side: %s", side)
	}
}
