// Package cart implements the session-scoped cart accumulator.
package cart

import (
	"errors"
	"fmt"
	"sort"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
)

// MaxQuantity caps the quantity of a single cart line.
const MaxQuantity = 99

// ErrInvalidLine reports a line with a quantity outside [1, MaxQuantity] or a
// negative price.
var ErrInvalidLine = errors.New("invalid cart line")

// Entry is one cart line.
type Entry struct {
	ItemID   int64       `json:"item_id"`
	Name     string      `json:"name"`
	Price    money.Cents `json:"price"`
	Quantity int         `json:"quantity"`
	ShopID   int64       `json:"shop_id"`
}

// Subtotal returns price x quantity.
func (e Entry) Subtotal() (money.Cents, error) {
	return e.Price.Mul(e.Quantity)
}

func (e Entry) validate() error {
	if e.Quantity < 1 || e.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrInvalidLine, MaxQuantity, e.Quantity)
	}
	if e.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for item %d", ErrInvalidLine, e.ItemID)
	}
	return nil
}

// Cart holds entries in insertion order. The zero value is an empty cart.
type Cart struct {
	Entries []Entry `json:"entries"`
}

// Add merges entry into the cart: an existing line with the same item id has
// its quantity increased, otherwise the entry is appended. The cart is left
// unchanged when the merged line or the new total would be invalid.
func (c *Cart) Add(entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	next := Cart{Entries: append(c.Entries[:0:0], c.Entries...)}
	merged := false
	for i := range next.Entries {
		if next.Entries[i].ItemID == entry.ItemID {
			next.Entries[i].Quantity += entry.Quantity
			merged = true
			break
		}
	}
	if !merged {
		next.Entries = append(next.Entries, entry)
	}
	if _, err := next.Sum(); err != nil {
		return err
	}
	c.Entries = next.Entries
	return nil
}

// Merge adds every line of other into c.
func (c *Cart) Merge(other Cart) error {
	next := Cart{Entries: append(c.Entries[:0:0], c.Entries...)}
	for _, e := range other.Entries {
		if err := next.Add(e); err != nil {
			return err
		}
	}
	c.Entries = next.Entries
	return nil
}

// Remove drops the line for itemID. It reports whether a line was removed.
func (c *Cart) Remove(itemID int64) bool {
	for i := range c.Entries {
		if c.Entries[i].ItemID == itemID {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Sum validates every line and returns the cart total.
func (c Cart) Sum() (money.Cents, error) {
	var total money.Cents
	for _, e := range c.Entries {
		if err := e.validate(); err != nil {
			return 0, err
		}
		sub, err := e.Subtotal()
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Total is Sum for display. Carts built through Add always have a valid sum;
// any other invalid cart reports zero.
func (c Cart) Total() money.Cents {
	total, err := c.Sum()
	if err != nil {
		return 0
	}
	return total
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Entries = nil
}

// IsEmpty reports whether there are no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

// Count returns the number of distinct lines.
func (c Cart) Count() int {
	return len(c.Entries)
}

// Quantities returns the total quantity per item id.
func (c Cart) Quantities() map[int64]int {
	out := make(map[int64]int, len(c.Entries))
	for _, e := range c.Entries {
		out[e.ItemID] += e.Quantity
	}
	return out
}

// ByShop partitions lines by shop id. Shop ids are returned in ascending order
// so callers create orders deterministically.
func (c Cart) ByShop() ([]int64, map[int64][]Entry) {
	groups := make(map[int64][]Entry)
	for _, e := range c.Entries {
		groups[e.ShopID] = append(groups[e.ShopID], e)
	}
	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, groups
}
