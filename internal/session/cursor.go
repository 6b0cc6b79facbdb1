package session

// TurnCursor points at the participant whose action is awaited. It walks the
// fixed participant order and skips anyone terminal. A circular cursor wraps
// around for betting rounds; a linear one is exhausted after the last seat.
type TurnCursor struct {
	order    []int64
	pos      int
	circular bool
}

// NewTurnCursor creates a cursor on the first seat of order.
func NewTurnCursor(order []int64, circular bool) *TurnCursor {
	seats := make([]int64, len(order))
	copy(seats, order)
	return &TurnCursor{order: seats, circular: circular}
}

// Current returns the awaited participant, or false once nobody can act.
func (c *TurnCursor) Current() (int64, bool) {
	if c.pos < 0 || c.pos >= len(c.order) {
		return 0, false
	}
	return c.order[c.pos], true
}

// Skip moves forward from the current seat, inclusive, to the first
// non-terminal participant.
func (c *TurnCursor) Skip(terminal func(int64) bool) {
	n := len(c.order)
	if c.pos >= n {
		return
	}
	for step := 0; step < n; step++ {
		if !terminal(c.order[c.pos]) {
			return
		}
		c.pos++
		if c.pos == n {
			if !c.circular {
				return
			}
			c.pos = 0
		}
	}
	c.pos = n
}

// Advance passes the turn to the next non-terminal participant.
func (c *TurnCursor) Advance(terminal func(int64) bool) {
	n := len(c.order)
	if c.pos >= n {
		return
	}
	c.pos++
	if c.pos == n {
		if !c.circular {
			return
		}
		c.pos = 0
	}
	c.Skip(terminal)
}
