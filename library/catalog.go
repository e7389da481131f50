package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AddBook inserts a new title. Every copy starts on the shelf, so the
// available count is initialized to the stock count.
func (d *Database) AddBook(b Book) (*Book, error) {
	if b.StockCount < 0 {
		return nil, fmt.Errorf("stock count must not be negative")
	}
	b.AvailableCount = b.StockCount

	res, err := d.addBookStmt.Exec(b.Title, b.Author, b.ISBN, b.Category, b.PublicationYear, b.StockCount, b.AvailableCount)
	if err != nil {
		return nil, fmt.Errorf("add book: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &b, nil
}

const bookColumns = `id,title,author,isbn,category,publication_year,stock_count,available_count`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublicationYear, &b.StockCount, &b.AvailableCount)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBook fetches a single book.
func (d *Database) GetBook(id int64) (*Book, error) {
	b, err := scanBook(d.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetAllBooks returns the whole catalog.
func (d *Database) GetAllBooks() ([]*Book, error) {
	return d.queryBooks(`SELECT ` + bookColumns + ` FROM books ORDER BY id`)
}

// SearchBooks does a case-insensitive substring match against title, author
// or category.
func (d *Database) SearchBooks(q string) ([]*Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*Book{}, nil
	}
	pattern := "%" + strings.ToLower(q) + "%"
	return d.queryBooks(`
        SELECT `+bookColumns+` FROM books
        WHERE lower(title) LIKE ? OR lower(author) LIKE ? OR lower(category) LIKE ?
        ORDER BY id`, pattern, pattern, pattern)
}

func (d *Database) queryBooks(query string, args ...any) ([]*Book, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// UpdateBook applies title, author and stock changes to an existing book.
// Growing or shrinking the stock shifts the available count by the same
// delta; shrinking below the number of copies currently on loan is rejected.
func (d *Database) UpdateBook(id int64, changes Book) (*Book, error) {
	var updated *Book
	err := d.inTx(func(tx *sql.Tx) error {
		existing, err := scanBook(tx.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id=?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
		}
		if err != nil {
			return err
		}

		stockDelta := changes.StockCount - existing.StockCount
		if existing.AvailableCount+stockDelta < 0 {
			return fmt.Errorf("book %d: %w", id, ErrStockBelowLoans)
		}

		existing.Title = changes.Title
		existing.Author = changes.Author
		existing.StockCount = changes.StockCount
		existing.AvailableCount += stockDelta

		if _, err := tx.Exec(
			`UPDATE books SET title=?, author=?, stock_count=?, available_count=? WHERE id=?`,
			existing.Title, existing.Author, existing.StockCount, existing.AvailableCount, id); err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a book from the catalog. Deletion is rejected while
// open loans reference the book; closed loans stay behind as history.
func (d *Database) DeleteBook(id int64) error {
	return d.inTx(func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM books WHERE id=?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
		}

		var open bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM loans WHERE book_id=? AND return_date IS NULL)`, id).Scan(&open); err != nil {
			return err
		}
		if open {
			return fmt.Errorf("book %d: %w", id, ErrOpenLoansExist)
		}

		_, err := tx.Exec(`DELETE FROM books WHERE id=?`, id)
		return err
	})
}
