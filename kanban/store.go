package kanban

import "strings"

// AddBoard inserts b and gives it an empty column order. Names are unique:
// a board whose name is already taken is Duplicate.
func AddBoard(s State, b Board) (State, Result) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" || b.ID == "" {
		return s, Invalid
	}
	if _, ok := s.Boards[b.ID]; ok {
		return s, Duplicate
	}
	for _, existing := range s.Boards {
		if existing.Name == b.Name {
			return s, Duplicate
		}
	}

	boards := cloneTable(s.Boards)
	boards[b.ID] = b
	columnOrders := cloneOrders(s.ColumnOrders)
	columnOrders[b.ID] = []string{}

	s.Boards = boards
	s.BoardOrder = appended(s.BoardOrder, b.ID)
	s.ColumnOrders = columnOrders
	return s, Applied
}

// AddColumn appends c to its board's column order and gives it an empty card order.
func AddColumn(s State, c Column) (State, Result) {
	if _, ok := s.Boards[c.BoardID]; !ok {
		return s, NotFound
	}
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" || c.ID == "" {
		return s, Invalid
	}
	if _, ok := s.Columns[c.ID]; ok {
		return s, Duplicate
	}

	columns := cloneTable(s.Columns)
	columns[c.ID] = c
	columnOrders := cloneOrders(s.ColumnOrders)
	columnOrders[c.BoardID] = appended(columnOrders[c.BoardID], c.ID)
	cardOrders := cloneOrders(s.CardOrders)
	cardOrders[c.ID] = []string{}

	s.Columns = columns
	s.ColumnOrders = columnOrders
	s.CardOrders = cardOrders
	return s, Applied
}

// EditColumn retitles a column.
func EditColumn(s State, columnID, title string) (State, Result) {
	c, ok := s.Columns[columnID]
	if !ok {
		return s, NotFound
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return s, Invalid
	}

	c.Title = title
	columns := cloneTable(s.Columns)
	columns[columnID] = c
	s.Columns = columns
	return s, Applied
}

// DeleteColumn removes a column from the table and from the board's column
// order, along with every card it holds. Cards are found both through the
// column's card order and through their ColumnID, so a card that slipped out
// of the order array still goes. Dangling references to a column that is no
// longer in the table are cleaned up too, but the result is NotFound.
func DeleteColumn(s State, columnID, boardID string) (State, Result) {
	c, found := s.Columns[columnID]

	columns := cloneTable(s.Columns)
	delete(columns, columnID)

	columnOrders := cloneOrders(s.ColumnOrders)
	for _, owner := range []string{boardID, c.BoardID} {
		if ids, ok := columnOrders[owner]; ok && owner != "" {
			columnOrders[owner] = without(ids, columnID)
		}
	}

	cards := cloneTable(s.Cards)
	for _, cardID := range s.CardOrders[columnID] {
		delete(cards, cardID)
	}
	for id, card := range cards {
		if card.ColumnID == columnID {
			delete(cards, id)
		}
	}

	cardOrders := cloneOrders(s.CardOrders)
	delete(cardOrders, columnID)

	s.Columns = columns
	s.ColumnOrders = columnOrders
	s.Cards = cards
	s.CardOrders = cardOrders
	if !found {
		return s, NotFound
	}
	return s, Applied
}

// AddCard appends c to its column's card order.
func AddCard(s State, c Card) (State, Result) {
	if _, ok := s.Columns[c.ColumnID]; !ok {
		return s, NotFound
	}
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" || c.ID == "" {
		return s, Invalid
	}
	if _, ok := s.Cards[c.ID]; ok {
		return s, Duplicate
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}

	cards := cloneTable(s.Cards)
	cards[c.ID] = c
	cardOrders := cloneOrders(s.CardOrders)
	cardOrders[c.ColumnID] = appended(cardOrders[c.ColumnID], c.ID)

	s.Cards = cards
	s.CardOrders = cardOrders
	return s, Applied
}

// EditCard merges the non-nil fields of u into the card. The id and column
// are not editable here; MoveCard owns ColumnID.
func EditCard(s State, cardID string, u CardUpdate) (State, Result) {
	c, ok := s.Cards[cardID]
	if !ok {
		return s, NotFound
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return s, Invalid
	}

	if u.Title != nil {
		c.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.CreatedBy != nil {
		c.CreatedBy = *u.CreatedBy
	}
	if u.Priority != nil {
		c.Priority = *u.Priority
	}
	if u.DueDate != nil {
		c.DueDate = *u.DueDate
	}
	if u.AssignedTo != nil {
		c.AssignedTo = *u.AssignedTo
	}

	cards := cloneTable(s.Cards)
	cards[cardID] = c
	s.Cards = cards
	return s, Applied
}

// DeleteCard removes a card from the table and from the named column's order.
// The card's own column is cleaned as well when it differs from columnID.
func DeleteCard(s State, cardID, columnID string) (State, Result) {
	c, ok := s.Cards[cardID]
	if !ok {
		return s, NotFound
	}

	cards := cloneTable(s.Cards)
	delete(cards, cardID)

	cardOrders := cloneOrders(s.CardOrders)
	for _, col := range []string{columnID, c.ColumnID} {
		if ids, ok := cardOrders[col]; ok {
			cardOrders[col] = without(ids, cardID)
		}
	}

	s.Cards = cards
	s.CardOrders = cardOrders
	return s, Applied
}

// MoveCard takes a card out of sourceID's order, inserts it at index in
// destID's order and points its ColumnID at destID. Source and destination
// may be the same column. The destination order is created if it is missing.
func MoveCard(s State, cardID, sourceID, destID string, index int) (State, Result) {
	c, ok := s.Cards[cardID]
	if !ok {
		return s, NotFound
	}
	if _, ok := s.Columns[destID]; !ok {
		return s, NotFound
	}

	cardOrders := cloneOrders(s.CardOrders)
	for _, col := range []string{sourceID, c.ColumnID} {
		if ids, ok := cardOrders[col]; ok {
			cardOrders[col] = without(ids, cardID)
		}
	}
	cardOrders[destID] = insertAt(cardOrders[destID], index, cardID)

	c.ColumnID = destID
	cards := cloneTable(s.Cards)
	cards[cardID] = c

	s.Cards = cards
	s.CardOrders = cardOrders
	return s, Applied
}

// ReorderCardInColumn moves a card to index within its current column's
// order. It only permutes that one order array.
func ReorderCardInColumn(s State, cardID, columnID string, index int) (State, Result) {
	ids, ok := s.CardOrders[columnID]
	if !ok || !contains(ids, cardID) {
		return s, NotFound
	}

	cardOrders := cloneOrders(s.CardOrders)
	cardOrders[columnID] = insertAt(without(ids, cardID), index, cardID)
	s.CardOrders = cardOrders
	return s, Applied
}
