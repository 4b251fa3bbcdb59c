package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/service"
)

// queryInt reads an optional integer query parameter. Blank counts as absent; garbage is a field error.
func queryInt(c *gin.Context, name string, ferrs *[]service.FieldError) *int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*ferrs = append(*ferrs, service.FieldError{Field: name, Message: "must be a valid integer"})
		return nil
	}
	return &v
}

func queryInt64(c *gin.Context, name string, ferrs *[]service.FieldError) *int64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*ferrs = append(*ferrs, service.FieldError{Field: name, Message: "must be a valid integer"})
		return nil
	}
	return &v
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil {
		return 0, service.NewInvalidInputError([]service.FieldError{{Field: name, Message: "must be a valid integer"}})
	}
	return id, nil
}

func offsetQuery(c *gin.Context) (service.OffsetQuery, error) {
	var ferrs []service.FieldError
	q := service.OffsetQuery{
		Query:  c.Query("q"),
		Limit:  queryInt(c, "limit", &ferrs),
		Offset: queryInt(c, "offset", &ferrs),
	}
	return q, service.NewInvalidInputError(ferrs)
}

func cursorQuery(c *gin.Context) (service.CursorQuery, error) {
	var ferrs []service.FieldError
	q := service.CursorQuery{
		Query:  c.Query("q"),
		LastID: queryInt64(c, "last_id", &ferrs),
		Limit:  queryInt(c, "limit", &ferrs),
	}
	return q, service.NewInvalidInputError(ferrs)
}
