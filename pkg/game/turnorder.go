package game

// TurnOrder is the fixed rotation of a match. Players leave it when they
// disconnect; the next turn goes to whoever followed them.
type TurnOrder struct {
	ids   []uint32
	pos   int
	cycle int
	// skip is set when ids[pos] already names the successor of a removed player.
	skip bool
}

// NewTurnOrder creates a turn order starting with ids[0] in cycle 1.
func NewTurnOrder(ids []uint32) *TurnOrder {
	return &TurnOrder{
		ids:   append([]uint32(nil), ids...),
		cycle: 1,
	}
}

// Len returns the number of players left in the rotation.
func (o *TurnOrder) Len() int {
	return len(o.ids)
}

// Cycle returns the current round, starting at 1.
func (o *TurnOrder) Cycle() int {
	return o.cycle
}

// IDs returns a copy of the rotation.
func (o *TurnOrder) IDs() []uint32 {
	return append([]uint32(nil), o.ids...)
}

// Peek returns the player whose turn it is without side effects.
func (o *TurnOrder) Peek() (uint32, bool) {
	if len(o.ids) == 0 {
		return 0, false
	}
	return o.ids[o.pos], true
}

// Current returns the player whose turn begins now.
func (o *TurnOrder) Current() (uint32, bool) {
	id, ok := o.Peek()
	if ok {
		o.skip = false
	}
	return id, ok
}

// Advance moves to the next player and reports whether the rotation wrapped.
func (o *TurnOrder) Advance() bool {
	if len(o.ids) == 0 {
		return false
	}
	if o.skip {
		o.skip = false
		return false
	}
	o.pos++
	return o.wrap()
}

// Remove drops id from the rotation.
func (o *TurnOrder) Remove(id uint32) {
	i := -1
	for j, v := range o.ids {
		if v == id {
			i = j
			break
		}
	}
	if i < 0 {
		return
	}

	o.ids = append(o.ids[:i], o.ids[i+1:]...)
	switch {
	case i < o.pos:
		o.pos--
	case i == o.pos:
		o.skip = true
		o.wrap()
	}
}

func (o *TurnOrder) wrap() bool {
	if o.pos < len(o.ids) {
		return false
	}
	o.pos = 0
	if len(o.ids) == 0 {
		return false
	}
	o.cycle++
	return true
}
