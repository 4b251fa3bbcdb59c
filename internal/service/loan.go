package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/maxviazov/library-service/internal/config"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/repository"
)

type loanService struct {
	loans  repository.LoanRepository
	limits pageLimits
	log    zerolog.Logger
}

func NewLoanService(loans repository.LoanRepository, cfg config.PaginationConfig, logger zerolog.Logger) LoanService {
	l := logger.With().Str("module", "service").Str("component", "loan").Logger()
	return &loanService{loans: loans, limits: newPageLimits(cfg), log: l}
}

// ListMemberLoans pages a member's loans newest first. An unknown member simply has no loans.
func (s *loanService) ListMemberLoans(ctx context.Context, memberID int64, q OffsetQuery) (OffsetPage[model.Loan], error) {
	var ferrs []FieldError
	if memberID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "member_id", Message: "must be > 0"})
	}
	limit := s.limits.limit(q.Limit, &ferrs)
	offset := offsetValue(q.Offset, &ferrs)
	if err := newInvalidInput(ferrs); err != nil {
		return OffsetPage[model.Loan]{}, err
	}

	res, err := s.loans.ListByMember(ctx, memberID, repository.Page{Limit: limit, Offset: offset})
	if err != nil {
		s.log.Error().Err(err).Int64("member_id", memberID).Msg("list member loans failed")
		return OffsetPage[model.Loan]{}, err
	}
	s.log.Debug().Int64("member_id", memberID).Int("limit", limit).Int("offset", offset).Int("total", res.Total).Msg("member loans listed")
	return OffsetPage[model.Loan]{Limit: limit, Offset: offset, Total: res.Total, Items: res.Items}, nil
}

func (s *loanService) BorrowBook(ctx context.Context, in BorrowInput) (model.Loan, error) {
	var ferrs []FieldError
	if in.BookID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "book_id", Message: "must be > 0"})
	}
	if in.MemberID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "member_id", Message: "must be > 0"})
	}
	if err := newInvalidInput(ferrs); err != nil {
		return model.Loan{}, err
	}

	loan, err := s.loans.Borrow(ctx, in.BookID, in.MemberID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrConflict):
			s.log.Info().Err(err).Int64("book_id", in.BookID).Int64("member_id", in.MemberID).Msg("borrow refused")
		default:
			s.log.Error().Err(err).Int64("book_id", in.BookID).Int64("member_id", in.MemberID).Msg("borrow failed")
		}
		return model.Loan{}, err
	}
	s.log.Info().Int64("loan_id", loan.ID).Int64("book_id", loan.BookID).Int64("member_id", loan.MemberID).Msg("book borrowed")
	return loan, nil
}

func (s *loanService) ReturnLoan(ctx context.Context, loanID int64) (model.Loan, error) {
	if loanID <= 0 {
		return model.Loan{}, newInvalidInput([]FieldError{{Field: "id", Message: "must be > 0"}})
	}
	loan, err := s.loans.Return(ctx, loanID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Err(err).Int64("loan_id", loanID).Msg("return failed")
		}
		return model.Loan{}, err
	}
	s.log.Info().Int64("loan_id", loan.ID).Int64("book_id", loan.BookID).Msg("book returned")
	return loan, nil
}
