package kanban

// DropLocation is one end of a drag: a droppable column and an index in it.
type DropLocation struct {
	DroppableID string `json:"droppableId"`
	Index       int    `json:"index"`
}

// DropResult is what the UI's drag library reports on drag end.
// Destination is nil when the card was dropped outside any column.
type DropResult struct {
	DraggableID string        `json:"draggableId"`
	Source      DropLocation  `json:"source"`
	Destination *DropLocation `json:"destination"`
}

// ApplyDrop turns a drag-end into a reorder (same column) or a move (another
// column). A drop outside every column is Unchanged.
func ApplyDrop(s State, d DropResult) (State, Result) {
	if d.Destination == nil {
		return s, Unchanged
	}
	if d.Source.DroppableID == d.Destination.DroppableID {
		return ReorderCardInColumn(s, d.DraggableID, d.Source.DroppableID, d.Destination.Index)
	}
	return MoveCard(s, d.DraggableID, d.Source.DroppableID, d.Destination.DroppableID, d.Destination.Index)
}
