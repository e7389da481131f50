package library

import "errors"

// Business-rule rejections surfaced to callers. HTTP handlers map these to
// status codes with errors.Is; none of them are retried internally.
var (
	ErrBookNotFound   = errors.New("book not found")
	ErrLoanNotFound   = errors.New("loan not found")
	ErrMemberNotFound = errors.New("member not found")

	// ErrOutOfStock is returned when a borrow is attempted while no copy
	// of the book is available.
	ErrOutOfStock = errors.New("no copies available")

	// ErrAlreadyReturned is returned on a second return of the same loan.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrStockBelowLoans rejects a stock update that would shrink the total
	// copy count below the number of copies currently on loan.
	ErrStockBelowLoans = errors.New("stock cannot drop below copies on loan")

	// ErrOpenLoansExist rejects deleting a book while copies are still out.
	ErrOpenLoansExist = errors.New("book has open loans")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
