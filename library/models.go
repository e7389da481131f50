package library

import "time"

// Book represents one title in the catalog. Physical copies are tracked in
// aggregate: StockCount is the number of copies the library owns and
// AvailableCount the number currently on the shelf. The store maintains
// 0 <= AvailableCount <= StockCount after every committed operation.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Category        string `json:"category"`
	PublicationYear int    `json:"publication_year"`
	StockCount      int    `json:"stock_count"`
	AvailableCount  int    `json:"available_count"`
}

// Loan records one copy lent to one member. A loan is open until ReturnDate
// is set; loans are never deleted and form the permanent lending history.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Returned reports whether the loan has been closed.
func (l *Loan) Returned() bool { return l.ReturnDate != nil }

// ReturnedLate reports whether the loan was closed after its due date.
func (l *Loan) ReturnedLate() bool {
	return l.ReturnDate != nil && l.ReturnDate.After(l.DueDate)
}

// OverdueAt reports whether the loan is open and past due as of the given
// date. The comparison is strict: a loan due today is not yet overdue.
func (l *Loan) OverdueAt(asOf time.Time) bool {
	return l.ReturnDate == nil && l.DueDate.Before(asOf)
}

// Member roles. Admins manage the catalog and see library-wide loan state.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Member represents a registered library member.
type Member struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"` // Don't serialize password hash
}

// IsAdmin reports whether the member holds the admin role.
func (m *Member) IsAdmin() bool { return m.Role == RoleAdmin }
