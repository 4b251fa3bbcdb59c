package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/service"
	"github.com/maxviazov/library-service/pkg/response"
)

// offsetEnvelope and cursorEnvelope fix the JSON key order of the listing responses.
type offsetEnvelope[T any] struct {
	Mode   string `json:"mode"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Data   []T    `json:"data"`
}

type cursorEnvelope[T any] struct {
	Mode       string `json:"mode"`
	Limit      int    `json:"limit"`
	NextCursor *int64 `json:"next_cursor"`
	Count      int    `json:"count"`
	Data       []T    `json:"data"`
}

func newOffsetEnvelope[T any](p service.OffsetPage[T]) offsetEnvelope[T] {
	data := p.Items
	if data == nil {
		data = []T{}
	}
	return offsetEnvelope[T]{Mode: "offset", Limit: p.Limit, Offset: p.Offset, Total: p.Total, Count: len(data), Data: data}
}

func newCursorEnvelope[T any](p service.CursorPage[T]) cursorEnvelope[T] {
	data := p.Items
	if data == nil {
		data = []T{}
	}
	return cursorEnvelope[T]{Mode: "cursor", Limit: p.Limit, NextCursor: p.NextCursor, Count: len(data), Data: data}
}

// ListerHandler serves the root-level pagination endpoints.
type ListerHandler struct {
	svc service.BookService
}

func NewListerHandler(svc service.BookService) *ListerHandler { return &ListerHandler{svc: svc} }

func (h *ListerHandler) Register(r gin.IRoutes) {
	r.GET(ItemsOffsetPath, h.listOffset)
	r.GET(ItemsCursorPath, h.listCursor)
	r.GET(BooksOffsetPath, h.listOffset)
	r.GET(BooksCursorPath, h.listCursor)
	r.POST(SimulateAddBookPath, h.simulateAdd)
}

func (h *ListerHandler) listOffset(c *gin.Context) {
	q, err := offsetQuery(c)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	page, err := h.svc.ListOffset(c.Request.Context(), q)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, newOffsetEnvelope(page))
}

func (h *ListerHandler) listCursor(c *gin.Context) {
	q, err := cursorQuery(c)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	page, err := h.svc.ListCursor(c.Request.Context(), q)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, newCursorEnvelope(page))
}

type simulateAddResponse struct {
	Message string     `json:"message"`
	Data    model.Book `json:"data"`
}

func (h *ListerHandler) simulateAdd(c *gin.Context) {
	book, err := h.svc.SimulateAdd(c.Request.Context())
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, simulateAddResponse{Message: "Book added successfully", Data: book})
}
