package service

import (
	"strings"

	"github.com/maxviazov/library-service/internal/config"
	"github.com/maxviazov/library-service/internal/model"
)

const (
	maxTitleLen    = 200
	maxAuthorLen   = 120
	maxCategoryLen = 60
	maxYear        = 9999
)

// pageLimits holds the configured default and ceiling for page sizes.
type pageLimits struct {
	def int
	max int
}

func newPageLimits(cfg config.PaginationConfig) pageLimits {
	l := pageLimits{def: cfg.DefaultLimit, max: cfg.MaxLimit}
	if l.def <= 0 {
		l.def = 5
	}
	if l.max < l.def {
		l.max = l.def
	}
	return l
}

// limit resolves a requested page size: absent takes the default, oversize is clamped.
func (l pageLimits) limit(raw *int, ferrs *[]FieldError) int {
	if raw == nil {
		return l.def
	}
	switch v := *raw; {
	case v <= 0:
		*ferrs = append(*ferrs, FieldError{Field: "limit", Message: "must be > 0"})
		return 0
	case v > l.max:
		return l.max
	default:
		return v
	}
}

func offsetValue(raw *int, ferrs *[]FieldError) int {
	if raw == nil {
		return 0
	}
	if *raw < 0 {
		*ferrs = append(*ferrs, FieldError{Field: "offset", Message: "must be >= 0"})
		return 0
	}
	return *raw
}

// lastIDValue treats 0 the same as an absent cursor.
func lastIDValue(raw *int64, ferrs *[]FieldError) int64 {
	if raw == nil {
		return 0
	}
	if *raw < 0 {
		*ferrs = append(*ferrs, FieldError{Field: "last_id", Message: "must be >= 0"})
		return 0
	}
	return *raw
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return model.BookAvailable
	}
	return s
}

func isValidBookStatus(s string) bool {
	switch s {
	case model.BookAvailable, model.BookBorrowed:
		return true
	default:
		return false
	}
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func checkTitle(title string, ferrs *[]FieldError) {
	if title == "" {
		*ferrs = append(*ferrs, FieldError{Field: "title", Message: "must not be empty"})
	} else if len([]rune(title)) > maxTitleLen {
		*ferrs = append(*ferrs, FieldError{Field: "title", Message: "length must be <= 200"})
	}
}

func checkAuthor(author string, ferrs *[]FieldError) {
	if author == "" {
		*ferrs = append(*ferrs, FieldError{Field: "author", Message: "must not be empty"})
	} else if len([]rune(author)) > maxAuthorLen {
		*ferrs = append(*ferrs, FieldError{Field: "author", Message: "length must be <= 120"})
	}
}

func checkCategory(category *string, ferrs *[]FieldError) {
	if category != nil && len([]rune(*category)) > maxCategoryLen {
		*ferrs = append(*ferrs, FieldError{Field: "category", Message: "length must be <= 60"})
	}
}

func checkYear(year *int, ferrs *[]FieldError) {
	if year != nil && (*year <= 0 || *year > maxYear) {
		*ferrs = append(*ferrs, FieldError{Field: "year", Message: "must be between 1 and 9999"})
	}
}

func checkStatus(status string, ferrs *[]FieldError) {
	if !isValidBookStatus(status) {
		*ferrs = append(*ferrs, FieldError{Field: "status", Message: "must be one of available, borrowed"})
	}
}

// normalizeBookInput trims strings and collects field errors for a create or full replace.
func normalizeBookInput(in BookInput) (BookInput, []FieldError) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = trimmedPtr(in.Category)
	in.Status = normalizeStatus(in.Status)

	var ferrs []FieldError
	checkTitle(in.Title, &ferrs)
	checkAuthor(in.Author, &ferrs)
	checkCategory(in.Category, &ferrs)
	checkStatus(in.Status, &ferrs)
	checkYear(in.Year, &ferrs)
	return in, ferrs
}

// normalizePatch validates a partial update. Null is accepted only for nullable fields.
func normalizePatch(p model.BookPatch) (model.BookPatch, []FieldError) {
	var ferrs []FieldError
	if p.Empty() {
		return p, []FieldError{{Field: "body", Message: "at least one field is required"}}
	}
	if p.Title.Set {
		if p.Title.Null {
			ferrs = append(ferrs, FieldError{Field: "title", Message: "must not be null"})
		} else {
			p.Title.Value = strings.TrimSpace(p.Title.Value)
			checkTitle(p.Title.Value, &ferrs)
		}
	}
	if p.Author.Set {
		if p.Author.Null {
			ferrs = append(ferrs, FieldError{Field: "author", Message: "must not be null"})
		} else {
			p.Author.Value = strings.TrimSpace(p.Author.Value)
			checkAuthor(p.Author.Value, &ferrs)
		}
	}
	if p.Status.Set {
		if p.Status.Null {
			ferrs = append(ferrs, FieldError{Field: "status", Message: "must not be null"})
		} else {
			p.Status.Value = strings.ToLower(strings.TrimSpace(p.Status.Value))
			checkStatus(p.Status.Value, &ferrs)
		}
	}
	if p.Category.Present() {
		p.Category.Value = strings.TrimSpace(p.Category.Value)
		if p.Category.Value == "" {
			p.Category = model.Null[string]()
		} else {
			checkCategory(&p.Category.Value, &ferrs)
		}
	}
	if p.Year.Present() {
		checkYear(&p.Year.Value, &ferrs)
	}
	return p, ferrs
}
