package kanban

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DueDateLayout is the format of Card.DueDate.
const DueDateLayout = "2006-01-02"

// Board is a top-level container of columns.
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Column belongs to exactly one board. BoardID is a back-reference only;
// membership and order live in State.ColumnOrders.
type Column struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	BoardID string `json:"boardId"`
}

// Card is a work item. ColumnID always names the column whose card order holds it.
type Card struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CreatedBy   string   `json:"createdBy"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate"`
	AssignedTo  string   `json:"assignedTo"`
	ColumnID    string   `json:"columnId"`
}

// CardInput holds the user supplied fields of a new card.
type CardInput struct {
	Title       string
	Description string
	CreatedBy   string
	Priority    Priority
	DueDate     string
	AssignedTo  string
}

// CardUpdate is a partial card edit. Nil fields are left untouched.
type CardUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   *string   `json:"createdBy,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	AssignedTo  *string   `json:"assignedTo,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u CardUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.CreatedBy == nil &&
		u.Priority == nil && u.DueDate == nil && u.AssignedTo == nil
}

// now and newID are swapped in tests.
var (
	now   = time.Now
	newID = func() string { return uuid.NewString() }
)

// NewBoard builds a board with a fresh id and creation timestamp.
func NewBoard(name, description string) Board {
	return Board{
		ID:          newID(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   now().UTC().Format(time.RFC3339),
	}
}

// NewColumn builds a column of boardID with a fresh id.
func NewColumn(boardID, title string) Column {
	return Column{
		ID:      newID(),
		Title:   strings.TrimSpace(title),
		BoardID: boardID,
	}
}

// NewCard builds a card in columnID with a fresh id. An empty priority becomes
// PriorityMedium and an empty due date becomes today.
func NewCard(columnID string, in CardInput) Card {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	due := strings.TrimSpace(in.DueDate)
	if due == "" {
		due = now().Format(DueDateLayout)
	}
	return Card{
		ID:          newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		CreatedBy:   in.CreatedBy,
		Priority:    priority,
		DueDate:     due,
		AssignedTo:  in.AssignedTo,
		ColumnID:    columnID,
	}
}
