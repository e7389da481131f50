package library

import "testing"

func TestOverdueLoansStrictCutoff(t *testing.T) {
	db := tempDB(t)
	// Borrow on 2023-12-18 so the loan is due exactly 2024-01-01.
	setDay(t, db, "2023-12-18")
	b := mustAddBook(t, db, "Due New Year", 1)
	member := mustAddMember(t, db, "alice@example.com")

	loan, err := db.BorrowBook(b.ID, member)
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if fmtDate(loan.DueDate) != "2024-01-01" {
		t.Fatalf("due date = %s, want 2024-01-01", fmtDate(loan.DueDate))
	}

	onDueDay, err := db.OverdueLoans(mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(onDueDay) != 0 {
		t.Fatalf("loan due today must not be overdue yet")
	}

	dayAfter, err := db.OverdueLoans(mustDate(t, "2024-01-02"))
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(dayAfter) != 1 || dayAfter[0].ID != loan.ID {
		t.Fatalf("want exactly the overdue loan, got %d results", len(dayAfter))
	}

	// Returned loans drop out no matter how late.
	setDay(t, db, "2024-02-01")
	if _, err := db.ReturnLoan(loan.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	afterReturn, err := db.OverdueLoans(mustDate(t, "2024-02-02"))
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(afterReturn) != 0 {
		t.Fatalf("returned loan must not be overdue")
	}
}

func TestLoansForMemberHistory(t *testing.T) {
	db := tempDB(t)
	b1 := mustAddBook(t, db, "First", 1)
	b2 := mustAddBook(t, db, "Second", 1)
	alice := mustAddMember(t, db, "alice@example.com")
	bob := mustAddMember(t, db, "bob@example.com")

	l1, _ := db.BorrowBook(b1.ID, alice)
	if _, err := db.ReturnLoan(l1.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := db.BorrowBook(b2.ID, alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	history, err := db.LoansForMember(alice)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("alice history = %d loans, want 2 (closed loans included)", len(history))
	}

	bobHistory, err := db.LoansForMember(bob)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bobHistory) != 0 {
		t.Fatalf("bob history should be empty")
	}
}

func TestOpenLoansAndOpenLoanForBook(t *testing.T) {
	db := tempDB(t)
	b := mustAddBook(t, db, "Tracked", 2)
	alice := mustAddMember(t, db, "alice@example.com")
	bob := mustAddMember(t, db, "bob@example.com")

	if open, err := db.OpenLoanForBook(b.ID); err != nil || open != nil {
		t.Fatalf("want no open loan, got %v, %v", open, err)
	}

	first, _ := db.BorrowBook(b.ID, alice)
	if _, err := db.BorrowBook(b.ID, bob); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	open, err := db.OpenLoanForBook(b.ID)
	if err != nil {
		t.Fatalf("open loan: %v", err)
	}
	if open == nil || open.ID != first.ID {
		t.Fatalf("want oldest open loan %d, got %+v", first.ID, open)
	}

	all, err := db.OpenLoans()
	if err != nil {
		t.Fatalf("open loans: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("open loans = %d, want 2", len(all))
	}

	if _, err := db.ReturnLoan(first.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	all, _ = db.OpenLoans()
	if len(all) != 1 {
		t.Fatalf("open loans = %d after return, want 1", len(all))
	}
}
