package core

import (
	"container/heap"
	"sync"
)

// OrderBook holds the two priority queues of resting limit orders for one
// market: bids (descending price, ascending order_id) and asks (ascending
// price, ascending order_id). It contains only resting limit orders with
// remaining_qty > 0.
//
// Only a market's single worker goroutine ever mutates or pops from an
// OrderBook, so no lock would be needed for that path alone. The mutex
// here exists so Bids/Asks can serve read-only snapshots (the book
// endpoint) from other goroutines without racing the worker; all book
// access, including the worker's, goes through it.
type OrderBook struct {
	mu   sync.RWMutex
	bids *orderHeap
	asks *orderHeap
}

func NewOrderBook() *OrderBook {
	bids := newOrderHeap(Buy)
	asks := newOrderHeap(Sell)
	heap.Init(bids)
	heap.Init(asks)
	return &OrderBook{bids: bids, asks: asks}
}

func (b *OrderBook) sideHeap(side Side) *orderHeap {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// oppositeSide is the side a resting order must be on to match an
// incoming order of the given side: an incoming Sell matches resting
// bids, an incoming Buy matches resting asks.
func oppositeSide(side Side) Side {
	if side == Sell {
		return Buy
	}
	return Sell
}

// Push inserts a newly resting order onto its own side's heap.
func (b *OrderBook) Push(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	heap.Push(b.sideHeap(o.Side), o)
}

// PeekOpposite returns the top resting order on the opposite side from
// takerSide, without removing it.
func (b *OrderBook) PeekOpposite(takerSide Side) (*Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sideHeap(oppositeSide(takerSide)).peek()
}

// PopOpposite removes and returns the top resting order on the opposite
// side from takerSide.
func (b *OrderBook) PopOpposite(takerSide Side) *Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return heap.Pop(b.sideHeap(oppositeSide(takerSide))).(*Order)
}

// Bids returns a snapshot copy of the resting bid orders, in no
// particular slice order (the heap's internal array is not a sorted
// list); used for book snapshots and tests.
func (b *OrderBook) Bids() []*Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Order(nil), b.bids.orders...)
}

func (b *OrderBook) Asks() []*Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Order(nil), b.asks.orders...)
}
