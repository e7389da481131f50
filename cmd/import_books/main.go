package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-lending/library"
)

// Imports a catalog from a CSV file with the columns
// title,author,isbn,category,year,stock. A header row is detected and
// skipped.
func main() {
	var (
		dbFile  = flag.String("db", "library.db", "path to the SQLite database")
		csvFile = flag.String("csv", "catalog.csv", "path to the catalog CSV")
	)
	flag.Parse()

	mgr, err := library.NewLibraryManager(*dbFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	f, err := os.Open(*csvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	successCount := 0
	errorCount := 0
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			fmt.Printf("Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}
		if line == 1 && strings.EqualFold(record[0], "title") {
			continue // header row
		}

		book, err := parseRecord(record)
		if err != nil {
			fmt.Printf("Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}

		fmt.Printf("Importing: %s by %s... ", book.Title, book.Author)
		created, err := mgr.AddBook(book)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", created.ID)
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		books, err := mgr.GetAllBooks()
		if err != nil {
			fmt.Printf("Error retrieving books: %v\n", err)
			return
		}
		fmt.Printf("%-3s %-50s %-30s %s\n", "ID", "Title", "Author", "Copies")
		fmt.Println(strings.Repeat("-", 92))
		for _, book := range books {
			fmt.Printf("%-3d %-50s %-30s %d\n",
				book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30), book.StockCount)
		}
	}
}

func parseRecord(record []string) (library.Book, error) {
	title := strings.TrimSpace(record[0])
	author := strings.TrimSpace(record[1])
	if title == "" || author == "" {
		return library.Book{}, fmt.Errorf("title and author are required")
	}

	year := 0
	if raw := strings.TrimSpace(record[4]); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return library.Book{}, fmt.Errorf("invalid year %q", raw)
		}
		year = parsed
	}

	stock, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil || stock < 0 {
		return library.Book{}, fmt.Errorf("invalid stock count %q", record[5])
	}

	return library.Book{
		Title:           title,
		Author:          author,
		ISBN:            strings.TrimSpace(record[2]),
		Category:        strings.TrimSpace(record[3]),
		PublicationYear: year,
		StockCount:      stock,
	}, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
