package core

// orderHeap is a container/heap priority queue of resting limit orders
// for one side of one market's book, ranked by (price, order_id) so the
// FIFO tie-break at equal price falls directly out of the heap
// comparator instead of a secondary per-price-level FIFO slice.
type orderHeap struct {
	side   Side
	orders []*Order
}

func newOrderHeap(side Side) *orderHeap {
	return &orderHeap{side: side}
}

func (h *orderHeap) Len() int { return len(h.orders) }

func (h *orderHeap) Less(i, j int) bool {
	return less(h.side, h.orders[i], h.orders[j])
}

func (h *orderHeap) Swap(i, j int) {
	h.orders[i], h.orders[j] = h.orders[j], h.orders[i]
}

func (h *orderHeap) Push(x any) {
	h.orders = append(h.orders, x.(*Order))
}

func (h *orderHeap) Pop() any {
	old := h.orders
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	h.orders = old[:n-1]
	return o
}

func (h *orderHeap) peek() (*Order, bool) {
	if len(h.orders) == 0 {
		return nil, false
	}
	return h.orders[0], true
}
