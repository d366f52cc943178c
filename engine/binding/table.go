package binding

import "fmt"

// MaxRegister is the exclusive upper bound on register numbers accepted by a Table.
const MaxRegister = 1 << 16

// Binding records where a (category, register) pair lives in a program.
type Binding struct {
	// Parameter is the index of the owning top-level parameter.
	Parameter int

	// Direct is true when the resource is bound straight into the parameter, false when it is
	// written into a descriptor group at Offset.
	Direct bool

	// Offset is the descriptor offset within the group. Zero for direct bindings.
	Offset int
}

type slot struct {
	binding Binding
	ok      bool
}

// Table maps registers to bindings, one dense slice per category.
// A Table is built once by Reflect and is read-only afterwards.
type Table struct {
	slots [categoryCount][]slot
}

// Lookup returns the binding of register in category c. The second result is false when the program
// does not consume that register, which callers treat as a no-op.
//
// Parameters:
//   - c: the resource category
//   - register: the register number
//
// Returns:
//   - Binding: the binding location, zero when absent
//   - bool: true if the program consumes the register
func (t *Table) Lookup(c Category, register int) (Binding, bool) {
	if t == nil || !c.Valid() || register < 0 || register >= len(t.slots[c]) {
		return Binding{}, false
	}
	s := t.slots[c][register]
	return s.binding, s.ok
}

// Len returns the number of registers mapped in category c.
func (t *Table) Len(c Category) int {
	return len(t.Registers(c))
}

// Registers returns the mapped registers of category c in ascending order.
func (t *Table) Registers(c Category) []int {
	if t == nil || !c.Valid() {
		return nil
	}
	var regs []int
	for r, s := range t.slots[c] {
		if s.ok {
			regs = append(regs, r)
		}
	}
	return regs
}

func (t *Table) set(c Category, register int, b Binding) error {
	if !c.Valid() {
		return fmt.Errorf("%w: unknown resource category %d", ErrInvalidLayout, int(c))
	}
	if register < 0 || register >= MaxRegister {
		return fmt.Errorf("%w: %s register %d out of range [0, %d)", ErrInvalidLayout, c, register, MaxRegister)
	}
	if register >= len(t.slots[c]) {
		grown := make([]slot, register+1)
		copy(grown, t.slots[c])
		t.slots[c] = grown
	}
	if t.slots[c][register].ok {
		prev := t.slots[c][register].binding
		return fmt.Errorf("%w: %s register %d declared by parameter %d and parameter %d",
			ErrInvalidLayout, c, register, prev.Parameter, b.Parameter)
	}
	t.slots[c][register] = slot{binding: b, ok: true}
	return nil
}
