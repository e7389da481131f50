package library

import (
	"database/sql"
	"time"
)

const loanColumns = `id,book_id,member_id,borrow_date,due_date,return_date`

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	var (
		l          Loan
		borrow     string
		due        string
		returnDate sql.NullString
	)
	if err := row.Scan(&l.ID, &l.BookID, &l.MemberID, &borrow, &due, &returnDate); err != nil {
		return nil, err
	}

	var err error
	if l.BorrowDate, err = parseDate(borrow); err != nil {
		return nil, err
	}
	if l.DueDate, err = parseDate(due); err != nil {
		return nil, err
	}
	if returnDate.Valid {
		ret, err := parseDate(returnDate.String)
		if err != nil {
			return nil, err
		}
		l.ReturnDate = &ret
	}
	return &l, nil
}

func (d *Database) queryLoans(query string, args ...any) ([]*Loan, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// OpenLoanForBook returns one open loan for the book, or nil when every copy
// is on the shelf. With multiple copies out, the oldest loan is reported.
func (d *Database) OpenLoanForBook(bookID int64) (*Loan, error) {
	l, err := scanLoan(d.db.QueryRow(
		`SELECT `+loanColumns+` FROM loans WHERE book_id=? AND return_date IS NULL ORDER BY id LIMIT 1`, bookID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// LoansForMember returns the member's full loan history, open and closed.
func (d *Database) LoansForMember(memberID int64) ([]*Loan, error) {
	return d.queryLoans(`SELECT `+loanColumns+` FROM loans WHERE member_id=? ORDER BY id`, memberID)
}

// OverdueLoans returns all open loans whose due date lies strictly before
// asOf. A loan due exactly on asOf is not overdue yet.
func (d *Database) OverdueLoans(asOf time.Time) ([]*Loan, error) {
	return d.queryLoans(
		`SELECT `+loanColumns+` FROM loans WHERE return_date IS NULL AND due_date < ? ORDER BY due_date, id`,
		fmtDate(asOf))
}

// OpenLoans returns every loan not yet returned.
func (d *Database) OpenLoans() ([]*Loan, error) {
	return d.queryLoans(`SELECT ` + loanColumns + ` FROM loans WHERE return_date IS NULL ORDER BY id`)
}
