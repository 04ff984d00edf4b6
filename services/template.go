package services

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/CrowderSoup/kanban-board/kanban"
)

// Template is the YAML form of one board, used by import and export.
type Template struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Columns     []ColumnTemplate `yaml:"columns"`
}

type ColumnTemplate struct {
	Title string         `yaml:"title"`
	Cards []CardTemplate `yaml:"cards,omitempty"`
}

type CardTemplate struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description,omitempty"`
	CreatedBy   string          `yaml:"createdBy,omitempty"`
	Priority    kanban.Priority `yaml:"priority,omitempty"`
	DueDate     string          `yaml:"dueDate,omitempty"`
	AssignedTo  string          `yaml:"assignedTo,omitempty"`
}

// DecodeTemplate reads a board template.
func DecodeTemplate(r io.Reader) (Template, error) {
	var t Template
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Template{}, fmt.Errorf("failed to decode board template: %w", err)
	}
	return t, nil
}

// EncodeTemplate writes t as YAML.
func EncodeTemplate(w io.Writer, t Template) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("failed to encode board template: %w", err)
	}
	return enc.Close()
}

// Import creates the board described by t. The board, its columns and cards
// are built on a private copy of the state and installed with a single
// mutation, so a template that fails halfway leaves the store untouched.
func (s *BoardService) Import(ctx context.Context, t Template) (kanban.Board, error) {
	board := kanban.NewBoard(t.Name, t.Description)
	var failed error

	r, err := s.apply(ctx, "import", func(st kanban.State) (kanban.State, kanban.Result) {
		failed = nil
		next, r := kanban.AddBoard(st, board)
		if r != kanban.Applied {
			return st, r
		}
		for _, ct := range t.Columns {
			col := kanban.NewColumn(board.ID, ct.Title)
			if next, r = kanban.AddColumn(next, col); r != kanban.Applied {
				failed = resultErr(r, fmt.Sprintf("column %q", ct.Title))
				return st, r
			}
			for _, card := range ct.Cards {
				c := kanban.NewCard(col.ID, kanban.CardInput{
					Title:       card.Title,
					Description: card.Description,
					CreatedBy:   card.CreatedBy,
					Priority:    card.Priority,
					DueDate:     card.DueDate,
					AssignedTo:  card.AssignedTo,
				})
				if next, r = kanban.AddCard(next, c); r != kanban.Applied {
					failed = resultErr(r, fmt.Sprintf("card %q", card.Title))
					return st, r
				}
			}
		}
		return next, kanban.Applied
	})
	if err != nil {
		return kanban.Board{}, err
	}
	if failed != nil {
		return kanban.Board{}, failed
	}
	if err := resultErr(r, fmt.Sprintf("board %q", board.Name)); err != nil {
		return kanban.Board{}, err
	}
	return board, nil
}

// Export describes a board as a template.
func (s *BoardService) Export(boardID string) (Template, error) {
	d, err := s.GetBoardDetails(boardID)
	if err != nil {
		return Template{}, err
	}

	t := Template{Name: d.Board.Name, Description: d.Board.Description}
	for _, lane := range d.Lanes() {
		ct := ColumnTemplate{Title: lane.Column.Title}
		for _, c := range lane.Cards {
			ct.Cards = append(ct.Cards, CardTemplate{
				Title:       c.Title,
				Description: c.Description,
				CreatedBy:   c.CreatedBy,
				Priority:    c.Priority,
				DueDate:     c.DueDate,
				AssignedTo:  c.AssignedTo,
			})
		}
		t.Columns = append(t.Columns, ct)
	}
	return t, nil
}
