package library

import (
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setDay pins the database clock to a fixed calendar day.
func setDay(t *testing.T, db *Database, day string) {
	t.Helper()
	d := mustDate(t, day)
	db.SetClock(func() time.Time { return d })
}

func mustDate(t *testing.T, day string) time.Time {
	t.Helper()
	d, err := parseDate(day)
	if err != nil {
		t.Fatalf("parse date %q: %v", day, err)
	}
	return d
}

func mustAddBook(t *testing.T, db *Database, title string, stock int) *Book {
	t.Helper()
	b, err := db.AddBook(Book{Title: title, Author: "Author", Category: "Fiction", StockCount: stock})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	return b
}

func mustAddMember(t *testing.T, db *Database, email string) int64 {
	t.Helper()
	id, err := db.AddMember("Member", email, "secret123", RoleMember)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	return id
}

// checkInvariant verifies that the book's availability is within bounds and
// matches stock minus its open loans.
func checkInvariant(t *testing.T, db *Database, bookID int64) {
	t.Helper()
	b, err := db.GetBook(bookID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if b.AvailableCount < 0 || b.AvailableCount > b.StockCount {
		t.Fatalf("available %d out of bounds for stock %d", b.AvailableCount, b.StockCount)
	}

	var open int
	err = db.db.QueryRow(`SELECT COUNT(*) FROM loans WHERE book_id=? AND return_date IS NULL`, bookID).Scan(&open)
	if err != nil {
		t.Fatalf("count open loans: %v", err)
	}
	if b.AvailableCount != b.StockCount-open {
		t.Fatalf("available %d, want stock %d - %d open loans", b.AvailableCount, b.StockCount, open)
	}
}
