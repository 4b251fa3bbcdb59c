package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/library-service/internal/config"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

// bookService holds book use-case logic: validation, paging rules and the idempotent create.
type bookService struct {
	repo   repository.BookRepository
	limits pageLimits
	now    func() time.Time
	log    zerolog.Logger

	// idempotency keys map to the id of the book they created; mu also serializes keyed creates.
	mu   sync.Mutex
	keys map[string]int64
}

func NewBookService(repo repository.BookRepository, cfg config.PaginationConfig, logger zerolog.Logger) BookService {
	l := logger.With().Str("module", "service").Str("component", "book").Logger()
	return &bookService{
		repo:   repo,
		limits: newPageLimits(cfg),
		now:    time.Now,
		log:    l,
		keys:   make(map[string]int64),
	}
}

func bookIDsOf(items []model.Book) []int64 {
	ids := make([]int64, len(items))
	for i, b := range items {
		ids[i] = b.ID
	}
	return ids
}

func (s *bookService) ListOffset(ctx context.Context, q OffsetQuery) (OffsetPage[model.Book], error) {
	var ferrs []FieldError
	limit := s.limits.limit(q.Limit, &ferrs)
	offset := offsetValue(q.Offset, &ferrs)
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("offset listing rejected")
		return OffsetPage[model.Book]{}, err
	}

	filter := repository.Filter{Query: q.Query}
	res, err := s.repo.ListOffset(ctx, filter, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		s.log.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("offset listing failed")
		return OffsetPage[model.Book]{}, err
	}

	// One diagnostic line per call; ids make page drift visible in the log.
	s.log.Info().
		Str("mode", "offset").
		Str("q", filter.Normalized()).
		Int("limit", limit).
		Int("offset", offset).
		Int("total", res.Total).
		Ints64("ids", bookIDsOf(res.Items)).
		Msg("books listed")

	return OffsetPage[model.Book]{Limit: limit, Offset: offset, Total: res.Total, Items: res.Items}, nil
}

func (s *bookService) ListCursor(ctx context.Context, q CursorQuery) (CursorPage[model.Book], error) {
	var ferrs []FieldError
	limit := s.limits.limit(q.Limit, &ferrs)
	lastID := lastIDValue(q.LastID, &ferrs)
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("cursor listing rejected")
		return CursorPage[model.Book]{}, err
	}

	filter := repository.Filter{Query: q.Query}
	res, err := s.repo.ListCursor(ctx, filter, repository.Cursor{LastID: lastID, Limit: limit})
	if err != nil {
		s.log.Error().Err(err).Int("limit", limit).Int64("last_id", lastID).Msg("cursor listing failed")
		return CursorPage[model.Book]{}, err
	}

	ev := s.log.Info().
		Str("mode", "cursor").
		Str("q", filter.Normalized()).
		Int("limit", limit).
		Int64("last_id", lastID).
		Ints64("ids", bookIDsOf(res.Items))
	if res.NextCursor != nil {
		ev = ev.Int64("next_cursor", *res.NextCursor)
	}
	ev.Msg("books listed")

	return CursorPage[model.Book]{Limit: limit, NextCursor: res.NextCursor, Items: res.Items}, nil
}

func (s *bookService) GetBook(ctx context.Context, id int64) (model.Book, error) {
	if id <= 0 {
		return model.Book{}, newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	return s.repo.GetByID(ctx, id)
}

func (s *bookService) CreateBook(ctx context.Context, in BookInput, idempotencyKey string) (model.Book, bool, error) {
	start := time.Now()
	in, ferrs := normalizeBookInput(in)
	key := strings.TrimSpace(idempotencyKey)
	if len(key) > 255 {
		ferrs = append(ferrs, FieldError{Field: "idempotency_key", Message: "length must be <= 255"})
	}
	if err := newInvalidInput(ferrs); err != nil {
		s.log.Debug().Interface("field_errors", ferrs).Msg("book validation failed")
		return model.Book{}, false, err
	}

	if key == "" {
		out, err := s.create(ctx, in)
		if err != nil {
			return model.Book{}, false, err
		}
		s.log.Info().Dur("took", time.Since(start)).Int64("book_id", out.ID).Msg("book created")
		return out, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.keys[key]; ok {
		existing, err := s.repo.GetByID(ctx, id)
		switch {
		case err == nil:
			s.log.Info().Str("idempotency_key", key).Int64("book_id", id).Msg("idempotent replay")
			return existing, false, nil
		case errors.Is(err, repository.ErrNotFound):
			// the original was deleted since; the key is free again
			delete(s.keys, key)
		default:
			return model.Book{}, false, err
		}
	}
	out, err := s.create(ctx, in)
	if err != nil {
		return model.Book{}, false, err
	}
	s.keys[key] = out.ID
	s.log.Info().Dur("took", time.Since(start)).Int64("book_id", out.ID).Str("idempotency_key", key).Msg("book created")
	return out, true, nil
}

func (s *bookService) create(ctx context.Context, in BookInput) (model.Book, error) {
	out, err := s.repo.Create(ctx, model.Book{
		Title:    in.Title,
		Author:   in.Author,
		Category: in.Category,
		Status:   in.Status,
		Year:     in.Year,
	})
	if err != nil {
		// Repository surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Str("title", in.Title).Msg("create book failed")
		return model.Book{}, err
	}
	return out, nil
}

func (s *bookService) ReplaceBook(ctx context.Context, id int64, in BookInput) (model.Book, error) {
	in, ferrs := normalizeBookInput(in)
	if id <= 0 {
		ferrs = append([]FieldError{{Field: "id", Message: "must be > 0"}}, ferrs...)
	}
	if err := newInvalidInput(ferrs); err != nil {
		return model.Book{}, err
	}
	out, err := s.repo.Update(ctx, id, func(cur model.Book) (model.Book, error) {
		cur.Title, cur.Author = in.Title, in.Author
		cur.Category, cur.Status, cur.Year = in.Category, in.Status, in.Year
		return cur, nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Err(err).Int64("book_id", id).Msg("replace book failed")
		}
		return model.Book{}, err
	}
	s.log.Info().Int64("book_id", id).Msg("book replaced")
	return out, nil
}

func (s *bookService) PatchBook(ctx context.Context, id int64, patch model.BookPatch) (model.Book, error) {
	patch, ferrs := normalizePatch(patch)
	if id <= 0 {
		ferrs = append([]FieldError{{Field: "id", Message: "must be > 0"}}, ferrs...)
	}
	if err := newInvalidInput(ferrs); err != nil {
		return model.Book{}, err
	}
	out, err := s.repo.Update(ctx, id, func(cur model.Book) (model.Book, error) {
		return patch.Apply(cur), nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Err(err).Int64("book_id", id).Msg("patch book failed")
		}
		return model.Book{}, err
	}
	s.log.Info().Int64("book_id", id).Msg("book patched")
	return out, nil
}

func (s *bookService) DeleteBook(ctx context.Context, id int64) error {
	if id <= 0 {
		return newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("book_id", id).Msg("book deleted")
	return nil
}

func (s *bookService) SimulateAdd(ctx context.Context) (model.Book, error) {
	out, err := s.create(ctx, BookInput{
		Title:  "NEW BOOK " + s.now().Format("15:04:05"),
		Author: "Dynamic Author",
		Status: model.BookAvailable,
	})
	if err != nil {
		return model.Book{}, err
	}
	s.log.Info().Int64("book_id", out.ID).Msg("simulated insert")
	return out, nil
}
