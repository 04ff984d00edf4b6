package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/kanban"
)

// Errors returned for non-applied reducer results.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrInvalid   = errors.New("invalid input")
)

// resultErr maps a reducer result to nil or one of the sentinel errors.
func resultErr(r kanban.Result, what string) error {
	switch r {
	case kanban.Applied, kanban.Unchanged:
		return nil
	case kanban.NotFound:
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case kanban.Duplicate:
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, ErrInvalid)
	}
}

// SnapshotStore persists the whole state under one key. Save succeeds only
// while the stored snapshot is still at version and returns the new version;
// otherwise it fails with database.ErrStaleSnapshot.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (kanban.State, int64, error)
	Save(ctx context.Context, key string, state kanban.State, version int64) (int64, error)
}

// Publisher receives every state that results from an applied mutation.
type Publisher interface {
	Publish(msg WebSocketMessage)
}

// maxSaveAttempts bounds how often a mutation is replayed on a reloaded
// snapshot after another writer saved first.
const maxSaveAttempts = 3

// BoardService owns the board state. It is the single writer of its process:
// every operation runs under one lock, replaces the state wholesale, persists
// it and publishes it before the next operation starts. Writers in other
// processes (the board CLI) are detected through the snapshot version.
type BoardService struct {
	mu        sync.Mutex
	state     kanban.State
	version   int64
	store     SnapshotStore
	key       string
	publisher Publisher
}

// NewBoardService loads the snapshot under key. publisher may be nil.
func NewBoardService(ctx context.Context, store SnapshotStore, key string, publisher Publisher) (*BoardService, error) {
	state, version, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load board state: %w", err)
	}
	return &BoardService{
		state:     state.Normalize(),
		version:   version,
		store:     store,
		key:       key,
		publisher: publisher,
	}, nil
}

// State returns the current state. Reducers never mutate a state in place,
// so the value stays stable after the next write.
func (s *BoardService) State() kanban.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WithState calls fn with the current state while holding the write lock, so
// no mutation is applied or published until fn returns. fn must not call
// back into the service.
func (s *BoardService) WithState(fn func(kanban.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// apply runs reduce against the current state under the lock. An applied
// state is adopted only once it is saved, then published. When another
// writer saved first, the snapshot is reloaded and reduce runs again on it.
func (s *BoardService) apply(ctx context.Context, op string, reduce func(kanban.State) (kanban.State, kanban.Result)) (kanban.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reloaded := false
	for attempt := 1; ; attempt++ {
		next, result := reduce(s.state)
		logger := log.WithFields(log.Fields{"op": op, "result": result.String(), "attempt": attempt})

		if result != kanban.Applied {
			s.state = next
			logger.Debug("mutation skipped")
			if reloaded {
				s.publish(next)
			}
			return result, nil
		}

		version, err := s.store.Save(ctx, s.key, next, s.version)
		if err == nil {
			s.state, s.version = next, version
			logger.Debug("mutation applied")
			s.publish(next)
			return result, nil
		}
		if !errors.Is(err, database.ErrStaleSnapshot) || attempt == maxSaveAttempts {
			logger.WithError(err).Error("failed to persist board state")
			if reloaded {
				s.publish(s.state)
			}
			return result, fmt.Errorf("failed to persist board state: %w", err)
		}

		logger.Info("board state changed by another writer, reloading")
		state, version, err := s.store.Load(ctx, s.key)
		if err != nil {
			return result, fmt.Errorf("failed to reload board state: %w", err)
		}
		s.state, s.version = state.Normalize(), version
		reloaded = true
	}
}

func (s *BoardService) publish(state kanban.State) {
	if s.publisher != nil {
		s.publisher.Publish(WebSocketMessage{Type: MessageState, Data: state})
	}
}

// ListBoards returns every board in creation order.
func (s *BoardService) ListBoards() []kanban.Board {
	return kanban.ListBoards(s.State())
}

// GetBoardDetails returns the board with its columns and cards.
func (s *BoardService) GetBoardDetails(boardID string) (kanban.BoardDetails, error) {
	d, ok := kanban.GetBoardDetails(s.State(), boardID)
	if !ok {
		return kanban.BoardDetails{}, fmt.Errorf("board %s: %w", boardID, ErrNotFound)
	}
	return d, nil
}

// AddBoard creates a board. Board names are unique.
func (s *BoardService) AddBoard(ctx context.Context, name, description string) (kanban.Board, error) {
	board := kanban.NewBoard(name, description)
	r, err := s.apply(ctx, "addBoard", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.AddBoard(st, board)
	})
	if err != nil {
		return kanban.Board{}, err
	}
	if err := resultErr(r, fmt.Sprintf("board %q", board.Name)); err != nil {
		return kanban.Board{}, err
	}
	return board, nil
}

// AddColumn appends a column to a board.
func (s *BoardService) AddColumn(ctx context.Context, boardID, title string) (kanban.Column, error) {
	column := kanban.NewColumn(boardID, title)
	r, err := s.apply(ctx, "addColumn", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.AddColumn(st, column)
	})
	if err != nil {
		return kanban.Column{}, err
	}
	if err := resultErr(r, "board "+boardID); err != nil {
		return kanban.Column{}, err
	}
	return column, nil
}

// EditColumn retitles a column.
func (s *BoardService) EditColumn(ctx context.Context, columnID, title string) (kanban.Column, error) {
	r, err := s.apply(ctx, "editColumn", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.EditColumn(st, columnID, title)
	})
	if err != nil {
		return kanban.Column{}, err
	}
	if err := resultErr(r, "column "+columnID); err != nil {
		return kanban.Column{}, err
	}
	return s.State().Columns[columnID], nil
}

// DeleteColumn removes a column and every card in it.
func (s *BoardService) DeleteColumn(ctx context.Context, columnID, boardID string) error {
	r, err := s.apply(ctx, "deleteColumn", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.DeleteColumn(st, columnID, boardID)
	})
	if err != nil {
		return err
	}
	return resultErr(r, "column "+columnID)
}

// AddCard appends a card to a column.
func (s *BoardService) AddCard(ctx context.Context, columnID string, in kanban.CardInput) (kanban.Card, error) {
	card := kanban.NewCard(columnID, in)
	r, err := s.apply(ctx, "addCard", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.AddCard(st, card)
	})
	if err != nil {
		return kanban.Card{}, err
	}
	if err := resultErr(r, "column "+columnID); err != nil {
		return kanban.Card{}, err
	}
	return s.State().Cards[card.ID], nil
}

// EditCard merges a partial update into a card.
func (s *BoardService) EditCard(ctx context.Context, cardID string, u kanban.CardUpdate) (kanban.Card, error) {
	r, err := s.apply(ctx, "editCard", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.EditCard(st, cardID, u)
	})
	if err != nil {
		return kanban.Card{}, err
	}
	if err := resultErr(r, "card "+cardID); err != nil {
		return kanban.Card{}, err
	}
	return s.State().Cards[cardID], nil
}

// DeleteCard removes a card.
func (s *BoardService) DeleteCard(ctx context.Context, cardID, columnID string) error {
	r, err := s.apply(ctx, "deleteCard", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.DeleteCard(st, cardID, columnID)
	})
	if err != nil {
		return err
	}
	return resultErr(r, "card "+cardID)
}

// MoveCard moves a card into destID at index.
func (s *BoardService) MoveCard(ctx context.Context, cardID, sourceID, destID string, index int) (kanban.Card, error) {
	r, err := s.apply(ctx, "moveCard", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.MoveCard(st, cardID, sourceID, destID, index)
	})
	if err != nil {
		return kanban.Card{}, err
	}
	if err := resultErr(r, "card "+cardID); err != nil {
		return kanban.Card{}, err
	}
	return s.State().Cards[cardID], nil
}

// ReorderCardInColumn moves a card to index within its column.
func (s *BoardService) ReorderCardInColumn(ctx context.Context, cardID, columnID string, index int) error {
	r, err := s.apply(ctx, "reorderCardInColumn", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.ReorderCardInColumn(st, cardID, columnID, index)
	})
	if err != nil {
		return err
	}
	return resultErr(r, "card "+cardID)
}

// ApplyDrop handles a drag-end from the board view.
func (s *BoardService) ApplyDrop(ctx context.Context, d kanban.DropResult) error {
	r, err := s.apply(ctx, "drop", func(st kanban.State) (kanban.State, kanban.Result) {
		return kanban.ApplyDrop(st, d)
	})
	if err != nil {
		return err
	}
	return resultErr(r, "card "+d.DraggableID)
}
