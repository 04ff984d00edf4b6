package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/CrowderSoup/kanban-board/kanban"
	"github.com/CrowderSoup/kanban-board/services"
)

// DataHandler exposes the board store over HTTP.
type DataHandler struct {
	boards *services.BoardService
}

func NewDataHandler(boards *services.BoardService) *DataHandler {
	return &DataHandler{boards: boards}
}

type createBoardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type createCardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	AssignedTo  string `json:"assignedTo"`
}

type moveCardRequest struct {
	SourceColumnID      string `json:"sourceColumnId"`
	DestinationColumnID string `json:"destinationColumnId"`
	DestinationIndex    int    `json:"destinationIndex"`
}

type reorderCardRequest struct {
	NewIndex int `json:"newIndex"`
}

// GetState returns the full entity tables and order arrays.
func (h *DataHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.boards.State())
}

// ListBoards returns boards in creation order.
func (h *DataHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.boards.ListBoards())
}

func (h *DataHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	board, err := h.boards.AddBoard(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, board)
}

// GetBoard returns the board with its columns and cards. Lanes groups the
// cards per column for the board view.
func (h *DataHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	d, err := h.boards.GetBoardDetails(mux.Vars(r)["boardId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"board":   d.Board,
		"columns": d.Columns,
		"cards":   d.Cards,
		"lanes":   d.Lanes(),
	})
}

func (h *DataHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	col, err := h.boards.AddColumn(r.Context(), mux.Vars(r)["boardId"], req.Title)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, col)
}

func (h *DataHandler) EditColumn(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	col, err := h.boards.EditColumn(r.Context(), mux.Vars(r)["columnId"], req.Title)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, col)
}

func (h *DataHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.boards.DeleteColumn(r.Context(), vars["columnId"], vars["boardId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DataHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	priority, err := kanban.ParsePriority(req.Priority)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validDueDate(req.DueDate) {
		writeError(w, http.StatusBadRequest, "dueDate must be formatted as YYYY-MM-DD")
		return
	}

	card, err := h.boards.AddCard(r.Context(), mux.Vars(r)["columnId"], kanban.CardInput{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		Priority:    priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, card)
}

// EditCard applies a partial update. id and columnId are not accepted here.
func (h *DataHandler) EditCard(w http.ResponseWriter, r *http.Request) {
	var req kanban.CardUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DueDate != nil && !validDueDate(*req.DueDate) {
		writeError(w, http.StatusBadRequest, "dueDate must be formatted as YYYY-MM-DD")
		return
	}
	card, err := h.boards.EditCard(r.Context(), mux.Vars(r)["cardId"], req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, card)
}

func (h *DataHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.boards.DeleteCard(r.Context(), vars["cardId"], vars["columnId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DataHandler) MoveCard(w http.ResponseWriter, r *http.Request) {
	var req moveCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := h.boards.MoveCard(r.Context(), mux.Vars(r)["cardId"], req.SourceColumnID, req.DestinationColumnID, req.DestinationIndex)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, card)
}

func (h *DataHandler) ReorderCard(w http.ResponseWriter, r *http.Request) {
	var req reorderCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	if err := h.boards.ReorderCardInColumn(r.Context(), vars["cardId"], vars["columnId"], req.NewIndex); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, h.boards.State().CardOrders[vars["columnId"]])
}

// Drop takes the drag library's drag-end result as is. A drop outside every
// column changes nothing and gets 204.
func (h *DataHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req kanban.DropResult
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.boards.ApplyDrop(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Destination == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeData(w, http.StatusOK, h.boards.State().Cards[req.DraggableID])
}

func validDueDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, err := time.Parse(kanban.DueDateLayout, s)
	return err == nil
}
