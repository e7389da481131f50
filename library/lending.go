package library

import (
	"database/sql"
	"errors"
	"fmt"
)

// LoanPeriodDays is the fixed lending period; the due date is the borrow
// date plus this many days.
const LoanPeriodDays = 14

// BorrowBook lends one copy of a book to a member. The availability check,
// the decrement and the loan insert commit as one transaction, so two
// concurrent borrows can never both take the last copy.
func (d *Database) BorrowBook(bookID, memberID int64) (*Loan, error) {
	var loan *Loan
	err := d.inTx(func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM members WHERE id=?)`, memberID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("member %d: %w", memberID, ErrMemberNotFound)
		}

		var available int
		err := tx.QueryRow(`SELECT available_count FROM books WHERE id=?`, bookID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
		}
		if err != nil {
			return err
		}
		if available <= 0 {
			return fmt.Errorf("book %d: %w", bookID, ErrOutOfStock)
		}

		// Guarded decrement; the transaction holds the write lock, the
		// WHERE clause is the invariant restated.
		res, err := tx.Exec(`UPDATE books SET available_count = available_count - 1 WHERE id=? AND available_count > 0`, bookID)
		if err != nil {
			return fmt.Errorf("decrement availability: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return fmt.Errorf("book %d: %w", bookID, ErrOutOfStock)
		}

		borrow := d.today()
		due := borrow.AddDate(0, 0, LoanPeriodDays)
		ins, err := tx.Exec(`INSERT INTO loans(book_id,member_id,borrow_date,due_date) VALUES(?,?,?,?)`,
			bookID, memberID, fmtDate(borrow), fmtDate(due))
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		id, err := ins.LastInsertId()
		if err != nil {
			return err
		}
		loan = &Loan{ID: id, BookID: bookID, MemberID: memberID, BorrowDate: borrow, DueDate: due}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ReturnLoan closes a loan and puts the copy back on the shelf, atomically.
// Returning the same loan twice fails with ErrAlreadyReturned and leaves the
// availability untouched.
func (d *Database) ReturnLoan(loanID int64) (*Loan, error) {
	var loan *Loan
	err := d.inTx(func(tx *sql.Tx) error {
		l, err := scanLoan(tx.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id=?`, loanID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("loan %d: %w", loanID, ErrLoanNotFound)
		}
		if err != nil {
			return err
		}
		if l.Returned() {
			return fmt.Errorf("loan %d: %w", loanID, ErrAlreadyReturned)
		}

		returned := d.today()
		if _, err := tx.Exec(`UPDATE loans SET return_date=? WHERE id=?`, fmtDate(returned), l.ID); err != nil {
			return fmt.Errorf("close loan: %w", err)
		}

		res, err := tx.Exec(`UPDATE books SET available_count = available_count + 1 WHERE id=? AND available_count < stock_count`, l.BookID)
		if err != nil {
			return fmt.Errorf("increment availability: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return fmt.Errorf("availability of book %d out of sync with its loans", l.BookID)
		}

		l.ReturnDate = &returned
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}
