package kanban

import (
	"cmp"
	"fmt"
	"slices"
)

// BoardDetails is the composite read of one board.
type BoardDetails struct {
	Board   Board    `json:"board"`
	Columns []Column `json:"columns"`
	Cards   []Card   `json:"cards"`
}

// Lane is a column together with its cards, in display order.
type Lane struct {
	Column Column `json:"column"`
	Cards  []Card `json:"cards"`
}

// GetBoardDetails returns the board, its columns in column order and the
// concatenation of their cards in card order. Order ids without an entity are
// skipped. The bool is false when the board does not exist.
func GetBoardDetails(s State, boardID string) (BoardDetails, bool) {
	board, ok := s.Boards[boardID]
	if !ok {
		return BoardDetails{}, false
	}

	d := BoardDetails{Board: board, Columns: []Column{}, Cards: []Card{}}
	for _, colID := range s.ColumnOrders[boardID] {
		col, ok := s.Columns[colID]
		if !ok {
			continue
		}
		d.Columns = append(d.Columns, col)
		d.Cards = append(d.Cards, cardsOf(s, colID)...)
	}
	return d, true
}

// Lanes groups Cards under their Columns, keeping both orders.
func (d BoardDetails) Lanes() []Lane {
	lanes := make([]Lane, 0, len(d.Columns))
	index := make(map[string]int, len(d.Columns))
	for i, col := range d.Columns {
		index[col.ID] = i
		lanes = append(lanes, Lane{Column: col, Cards: []Card{}})
	}
	for _, card := range d.Cards {
		if i, ok := index[card.ColumnID]; ok {
			lanes[i].Cards = append(lanes[i].Cards, card)
		}
	}
	return lanes
}

// ListBoards returns boards in creation order.
func ListBoards(s State) []Board {
	out := make([]Board, 0, len(s.BoardOrder))
	for _, id := range s.BoardOrder {
		if b, ok := s.Boards[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// FindBoardByName looks a board up by its unique name.
func FindBoardByName(s State, name string) (Board, bool) {
	for _, id := range s.BoardOrder {
		if b, ok := s.Boards[id]; ok && b.Name == name {
			return b, true
		}
	}
	return Board{}, false
}

func cardsOf(s State, columnID string) []Card {
	ids := s.CardOrders[columnID]
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Cards[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Problem is a consistency issue found by Validate.
type Problem struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	In   string `json:"in"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %s in %s", p.Kind, p.ID, p.In)
}

// Validate reports order ids with no entity and cards whose ColumnID
// disagrees with the order that lists them. Reads tolerate all of these;
// Validate exists so they can be seen.
func Validate(s State) []Problem {
	var problems []Problem
	for _, id := range s.BoardOrder {
		if _, ok := s.Boards[id]; !ok {
			problems = append(problems, Problem{Kind: "dangling board", ID: id, In: "boardOrder"})
		}
	}
	for boardID, ids := range s.ColumnOrders {
		for _, id := range ids {
			if _, ok := s.Columns[id]; !ok {
				problems = append(problems, Problem{Kind: "dangling column", ID: id, In: "columnOrders/" + boardID})
			}
		}
	}
	for colID, ids := range s.CardOrders {
		for _, id := range ids {
			c, ok := s.Cards[id]
			switch {
			case !ok:
				problems = append(problems, Problem{Kind: "dangling card", ID: id, In: "cardOrders/" + colID})
			case c.ColumnID != colID:
				problems = append(problems, Problem{Kind: "misplaced card", ID: id, In: "cardOrders/" + colID})
			}
		}
	}
	for id, c := range s.Cards {
		if _, ok := s.Columns[c.ColumnID]; !ok {
			problems = append(problems, Problem{Kind: "orphan card", ID: id, In: "columns/" + c.ColumnID})
		}
	}
	slices.SortFunc(problems, func(a, b Problem) int {
		return cmp.Or(
			cmp.Compare(a.In, b.In),
			cmp.Compare(a.ID, b.ID),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
	return problems
}
