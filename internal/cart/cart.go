package cart

import (
	"encoding/json"
	"errors"

	"github.com/wichananm65/rosilias-store/internal/catalog"
)

const GuestKey = "cart_guest_v1"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNoUser          = errors.New("user id required")
)

// UserKey is the storage key of the cart owned by uid.
func UserKey(uid string) string {
	return "cart_user_" + uid + "_v1"
}

// Line is one package in the cart. Pkg is the snapshot taken when the line was
// first added; its price is never refreshed.
type Line struct {
	Pkg catalog.Package `json:"pkg"`
	Qty int             `json:"qty"`
}

func (l Line) Subtotal() int64 {
	return l.Pkg.PriceCents * int64(l.Qty)
}

// Cart keeps lines in insertion order with at most one line per package id.
type Cart struct {
	Lines []Line
}

func (c Cart) MarshalJSON() ([]byte, error) {
	if c.Lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Lines)
}

func (c *Cart) UnmarshalJSON(b []byte) error {
	var lines []Line
	if err := json.Unmarshal(b, &lines); err != nil {
		return err
	}
	// stored data may come from an older writer; normalise it
	*c = Merge(Cart{}, Cart{Lines: lines})
	return nil
}

func (c Cart) Total() int64 {
	var sum int64
	for _, l := range c.Lines {
		sum += l.Subtotal()
	}
	return sum
}

func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func (c Cart) index(id int64) int {
	for i, l := range c.Lines {
		if l.Pkg.ID == id {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	if len(c.Lines) == 0 {
		return Cart{}
	}
	out := make([]Line, len(c.Lines))
	copy(out, c.Lines)
	return Cart{Lines: out}
}

// Merge returns the union of base and add by package id with quantities
// summed. Lines of base keep their position; ids only present in add are
// appended in add's order. The snapshot already held in base wins.
// Lines with a non-positive quantity are dropped.
func Merge(base, add Cart) Cart {
	out := Cart{Lines: make([]Line, 0, len(base.Lines)+len(add.Lines))}
	put := func(l Line) {
		if l.Qty <= 0 {
			return
		}
		if i := out.index(l.Pkg.ID); i >= 0 {
			out.Lines[i].Qty += l.Qty
			return
		}
		out.Lines = append(out.Lines, l)
	}
	for _, l := range base.Lines {
		put(l)
	}
	for _, l := range add.Lines {
		put(l)
	}
	return out
}
