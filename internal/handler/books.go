package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/service"
	"github.com/maxviazov/library-service/pkg/response"
)

// IdempotencyKeyHeader lets clients retry a create without producing duplicates.
const IdempotencyKeyHeader = "Idempotency-Key"

type BookHandler struct {
	svc      service.BookService
	guard    *AuthGuard
	cacheAge int
}

func NewBookHandler(svc service.BookService, guard *AuthGuard, cacheMaxAge int) *BookHandler {
	return &BookHandler{svc: svc, guard: guard, cacheAge: cacheMaxAge}
}

func (h *BookHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/books")
	{
		g.GET("", ETagCache(h.cacheAge), h.list)
		g.GET("/:id", h.guard.Require(auth.ScopeReadBooks), h.getByID)
		g.POST("", h.guard.Require(auth.ScopeWriteBooks), h.create)
		g.PUT("/:id", h.guard.Require(auth.ScopeWriteBooks), h.replace)
		g.PATCH("/:id", h.guard.Require(auth.ScopeWriteBooks), h.patch)
		g.DELETE("/:id", h.guard.Require(auth.ScopeDeleteBooks), h.delete)
	}
}

func (h *BookHandler) list(c *gin.Context) {
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

func (h *BookHandler) getByID(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	book, err := h.svc.GetBook(c.Request.Context(), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, book)
}

func (h *BookHandler) create(c *gin.Context) {
	var req service.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bindError(err))
		return
	}
	book, created, err := h.svc.CreateBook(c.Request.Context(), req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if !created {
		response.WriteData(c, http.StatusOK, book)
		return
	}
	c.Header("Location", c.FullPath()+"/"+strconv.FormatInt(book.ID, 10))
	response.WriteData(c, http.StatusCreated, book)
}

func (h *BookHandler) replace(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	var req service.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bindError(err))
		return
	}
	book, err := h.svc.ReplaceBook(c.Request.Context(), id, req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, book)
}

func (h *BookHandler) patch(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	var req model.BookPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bindError(err))
		return
	}
	book, err := h.svc.PatchBook(c.Request.Context(), id, req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, book)
}

func (h *BookHandler) delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	if err := h.svc.DeleteBook(c.Request.Context(), id); err != nil {
		response.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
