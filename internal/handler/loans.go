package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/model"
	"github.com/maxviazov/library-service/internal/service"
	"github.com/maxviazov/library-service/pkg/response"
)

type memberLoansEnvelope struct {
	MemberID int64        `json:"member_id"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
	Total    int          `json:"total"`
	Count    int          `json:"count"`
	Data     []model.Loan `json:"data"`
}

type LoanHandler struct {
	svc service.LoanService
}

func NewLoanHandler(svc service.LoanService) *LoanHandler { return &LoanHandler{svc: svc} }

// Register mounts the nested listing: /members/:member_id/loans.
func (h *LoanHandler) Register(r gin.IRoutes) {
	r.GET(MemberLoansPath, h.listByMember)
}

// RegisterBorrowing mounts borrow and return. Both change book status and need write:books.
func (h *LoanHandler) RegisterBorrowing(r gin.IRoutes, guard *AuthGuard) {
	r.POST(LoansPath, guard.Require(auth.ScopeWriteBooks), h.borrow)
	r.POST(ReturnLoanPath, guard.Require(auth.ScopeWriteBooks), h.giveBack)
}

func (h *LoanHandler) borrow(c *gin.Context) {
	var req service.BorrowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bindError(err))
		return
	}
	loan, err := h.svc.BorrowBook(c.Request.Context(), req)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusCreated, loan)
}

func (h *LoanHandler) giveBack(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	loan, err := h.svc.ReturnLoan(c.Request.Context(), id)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, loan)
}

func (h *LoanHandler) listByMember(c *gin.Context) {
	memberID, err := pathID(c, "member_id")
	if err != nil {
		response.WriteError(c, err)
		return
	}
	q, err := offsetQuery(c)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	page, err := h.svc.ListMemberLoans(c.Request.Context(), memberID, q)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	data := page.Items
	if data == nil {
		data = []model.Loan{}
	}
	response.WriteData(c, http.StatusOK, memberLoansEnvelope{
		MemberID: memberID,
		Limit:    page.Limit,
		Offset:   page.Offset,
		Total:    page.Total,
		Count:    len(data),
		Data:     data,
	})
}
