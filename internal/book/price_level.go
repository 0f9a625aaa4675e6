package book

// PriceLevel is the FIFO queue of resting orders sharing one price and one
// side. Orders are matched front-to-back (earliest arrival first) and
// appended at the tail on rest.
type PriceLevel struct {
	Price  uint32
	Orders []*Order
}

// TotalQuantity sums RemainingQty across every order resting at this level.
func (lvl *PriceLevel) TotalQuantity() uint32 {
	var total uint32
	for _, o := range lvl.Orders {
		total += o.RemainingQty
	}
	return total
}

func (lvl *PriceLevel) front() *Order {
	if len(lvl.Orders) == 0 {
		return nil
	}
	return lvl.Orders[0]
}

// popFront drops the front order once it has been fully filled.
func (lvl *PriceLevel) popFront() {
	lvl.Orders = lvl.Orders[1:]
}

func (lvl *PriceLevel) pushBack(o *Order) {
	lvl.Orders = append(lvl.Orders, o)
}

func (lvl *PriceLevel) empty() bool {
	return len(lvl.Orders) == 0
}

// removeAt removes the order at index i, preserving FIFO order of the rest.
func (lvl *PriceLevel) removeAt(i int) {
	lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
}
