package domain

// PriceLevel is a single order book level.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// OrderBook is a snapshot of the top levels of a symbol's book.
type OrderBook struct {
	Symbol string
	Bids   []PriceLevel // Best first
	Asks   []PriceLevel // Best first
}

// Imbalance returns (bidQty - askQty) / (bidQty + askQty) over the top depth levels.
// It is 0 when both sides are empty.
func (b *OrderBook) Imbalance(depth int) float64 {
	bidQty := sumQuantity(b.Bids, depth)
	askQty := sumQuantity(b.Asks, depth)
	if bidQty+askQty == 0 {
		return 0
	}
	return (bidQty - askQty) / (bidQty + askQty)
}

func sumQuantity(levels []PriceLevel, depth int) float64 {
	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}
	var total float64
	for _, l := range levels {
		total += l.Quantity
	}
	return total
}

// Signal is a transient trade decision produced within one cycle.
type Signal struct {
	Symbol      string
	Probability float64
	Price       float64
	Side        Side
}
