// Package kanban holds the normalized board store: entity tables, the order
// arrays that sequence them, and the reducers that keep the two consistent.
//
// Reducers are pure. They take a State by value and return a new State that
// shares every sub-map it did not touch with the input; touched sub-maps are
// copied first. A caller holding an older State never sees it change.
package kanban

import "maps"

// State is the whole store. It is also the persisted snapshot layout.
type State struct {
	Boards       map[string]Board    `json:"boards"`
	Columns      map[string]Column   `json:"columns"`
	Cards        map[string]Card     `json:"cards"`
	BoardOrder   []string            `json:"boardOrder"`
	ColumnOrders map[string][]string `json:"columnOrders"`
	CardOrders   map[string][]string `json:"cardOrders"`
}

// NewState returns an empty store.
func NewState() State {
	return State{
		Boards:       map[string]Board{},
		Columns:      map[string]Column{},
		Cards:        map[string]Card{},
		BoardOrder:   []string{},
		ColumnOrders: map[string][]string{},
		CardOrders:   map[string][]string{},
	}
}

// Normalize replaces nil collections with empty ones, which is what a decoded
// snapshot with missing keys needs before reducers can write into it.
func (s State) Normalize() State {
	if s.Boards == nil {
		s.Boards = map[string]Board{}
	}
	if s.Columns == nil {
		s.Columns = map[string]Column{}
	}
	if s.Cards == nil {
		s.Cards = map[string]Card{}
	}
	if s.BoardOrder == nil {
		s.BoardOrder = []string{}
	}
	if s.ColumnOrders == nil {
		s.ColumnOrders = map[string][]string{}
	}
	if s.CardOrders == nil {
		s.CardOrders = map[string][]string{}
	}
	return s
}

// Result is the outcome of a reducer.
type Result int

const (
	Applied Result = iota
	NotFound
	Duplicate
	Invalid
	// Unchanged is a valid request that needs no change, such as a card
	// dropped outside every column.
	Unchanged
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case NotFound:
		return "not found"
	case Duplicate:
		return "duplicate"
	case Invalid:
		return "invalid"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// order helpers; none of them modify their argument.

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// insertAt follows array splice semantics: past the end appends, negative
// clamps to the front.
func insertAt(ids []string, index int, id string) []string {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}

func appended(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func cloneOrders(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return maps.Clone(m)
}

func cloneTable[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return maps.Clone(m)
}
