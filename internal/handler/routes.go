package handler

// APIV1Prefix is the canonical base path for public HTTP API v1.
const APIV1Prefix = "/api/v1"

// Root-level listing routes. Both offset and cursor variants answer under an
// items_ name and a books_ alias; they serve the same collection.
const (
	ItemsOffsetPath     = "/items_offset"
	ItemsCursorPath     = "/items_cursor"
	BooksOffsetPath     = "/books_offset"
	BooksCursorPath     = "/books_cursor"
	SimulateAddBookPath = "/simulate_add_book"

	MemberLoansPath = "/members/:member_id/loans"
)

// Borrowing routes, mounted under APIV1Prefix only.
const (
	LoansPath      = "/loans"
	ReturnLoanPath = "/loans/:id/return"
)
