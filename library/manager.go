package library

import (
	"log/slog"
	"time"
)

// OverdueNotifier receives loans that were returned after their due date.
// It is informational only; no fine is computed.
type OverdueNotifier func(*Loan)

// LibraryManager is a thin façade over the Database, keeping CLI and HTTP
// code simple.
type LibraryManager struct {
	db            *Database
	notifyOverdue OverdueNotifier
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	lm := &LibraryManager{db: db}
	lm.notifyOverdue = func(l *Loan) {
		slog.Warn("loan returned overdue",
			"loan_id", l.ID,
			"book_id", l.BookID,
			"member_id", l.MemberID,
			"due_date", fmtDate(l.DueDate),
			"return_date", fmtDate(*l.ReturnDate))
	}
	return lm, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// SetOverdueNotifier replaces the overdue-return hook. A nil notifier
// silences the signal.
func (lm *LibraryManager) SetOverdueNotifier(fn OverdueNotifier) { lm.notifyOverdue = fn }

// SetClock overrides the time source, for deterministic tests.
func (lm *LibraryManager) SetClock(now func() time.Time) { lm.db.SetClock(now) }

// ------------------ Catalog ------------------

func (lm *LibraryManager) AddBook(b Book) (*Book, error) { return lm.db.AddBook(b) }

func (lm *LibraryManager) UpdateBook(id int64, changes Book) (*Book, error) {
	return lm.db.UpdateBook(id, changes)
}

func (lm *LibraryManager) DeleteBook(id int64) error        { return lm.db.DeleteBook(id) }
func (lm *LibraryManager) GetBook(id int64) (*Book, error)  { return lm.db.GetBook(id) }
func (lm *LibraryManager) GetAllBooks() ([]*Book, error)    { return lm.db.GetAllBooks() }
func (lm *LibraryManager) SearchBooks(q string) ([]*Book, error) { return lm.db.SearchBooks(q) }

// ------------------ Members ------------------

func (lm *LibraryManager) AddMember(name, email, password, role string) (int64, error) {
	return lm.db.AddMember(name, email, password, role)
}

func (lm *LibraryManager) GetMember(id int64) (*Member, error) { return lm.db.GetMember(id) }

func (lm *LibraryManager) GetMemberByEmail(email string) (*Member, error) {
	return lm.db.GetMemberByEmail(email)
}

func (lm *LibraryManager) GetAllMembers() ([]*Member, error) { return lm.db.GetAllMembers() }

func (lm *LibraryManager) UpdateMember(id int64, name, role string) (*Member, error) {
	return lm.db.UpdateMember(id, name, role)
}

func (lm *LibraryManager) AuthenticateMember(email, password string) (*Member, error) {
	return lm.db.AuthenticateMember(email, password)
}

func (lm *LibraryManager) EnsureAdmin(name, email, password string) error {
	return lm.db.EnsureAdmin(name, email, password)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) BorrowBook(bookID, memberID int64) (*Loan, error) {
	return lm.db.BorrowBook(bookID, memberID)
}

// ReturnLoan closes the loan and fires the overdue notifier when the copy
// came back late. The notification happens after the transaction committed.
func (lm *LibraryManager) ReturnLoan(loanID int64) (*Loan, error) {
	loan, err := lm.db.ReturnLoan(loanID)
	if err != nil {
		return nil, err
	}
	if loan.ReturnedLate() && lm.notifyOverdue != nil {
		lm.notifyOverdue(loan)
	}
	return loan, nil
}

// ------------------ Loan queries ------------------

func (lm *LibraryManager) OpenLoanForBook(bookID int64) (*Loan, error) {
	return lm.db.OpenLoanForBook(bookID)
}

func (lm *LibraryManager) LoansForMember(memberID int64) ([]*Loan, error) {
	return lm.db.LoansForMember(memberID)
}

func (lm *LibraryManager) OverdueLoans(asOf time.Time) ([]*Loan, error) {
	return lm.db.OverdueLoans(asOf)
}

func (lm *LibraryManager) OpenLoans() ([]*Loan, error) { return lm.db.OpenLoans() }
