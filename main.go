package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/cache"
	"library-lending/config"
	"library-lending/library"
	"library-lending/service"
)

var dbFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library-lending",
		Short:         "Track a library's book inventory and member loans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbFile, "db", "library.db", "path to the SQLite database")

	root.AddCommand(
		newServeCmd(),
		newAddBookCmd(),
		newListBooksCmd(),
		newSearchCmd(),
		newAddMemberCmd(),
		newBorrowCmd(),
		newReturnCmd(),
		newOverdueCmd(),
		newActiveCmd(),
		newHistoryCmd(),
	)
	return root
}

// withManager opens the database for the duration of one command.
func withManager(fn func(mgr *library.LibraryManager) error) error {
	mgr, err := library.NewLibraryManager(dbFile)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer mgr.Close()
	return fn(mgr)
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(mgr *library.LibraryManager) error {
				adminEmail := os.Getenv("LIBRARY_ADMIN_EMAIL")
				adminPassword := os.Getenv("LIBRARY_ADMIN_PASSWORD")
				if adminEmail != "" && adminPassword != "" {
					if err := mgr.EnsureAdmin("Super Admin", adminEmail, adminPassword); err != nil {
						return err
					}
				}

				var activity cache.RequestCacher
				if client := config.SetupRedis(); client != nil {
					activity = cache.NewRedisRequestCacher(client, service.MaxActivityEntries)
				}

				routes := service.SetupRoutes(service.NewServer(mgr, activity))
				return routes.Run(addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newAddBookCmd() *cobra.Command {
	var book library.Book
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a title to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(mgr *library.LibraryManager) error {
				created, err := mgr.AddBook(book)
				if err != nil {
					return err
				}
				fmt.Printf("Added book ID %d: %s by %s (%d copies)\n",
					created.ID, created.Title, created.Author, created.StockCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&book.Title, "title", "", "book title")
	cmd.Flags().StringVar(&book.Author, "author", "", "book author")
	cmd.Flags().StringVar(&book.ISBN, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&book.Category, "category", "", "category")
	cmd.Flags().IntVar(&book.PublicationYear, "year", 0, "publication year")
	cmd.Flags().IntVar(&book.StockCount, "stock", 1, "number of copies")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("author")
	return cmd
}

func newListBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-books",
		Short: "List the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(mgr *library.LibraryManager) error {
				books, err := mgr.GetAllBooks()
				if err != nil {
					return err
				}
				printBooks(books)
				return nil
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search by title, author or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(mgr *library.LibraryManager) error {
				books, err := mgr.SearchBooks(args[0])
				if err != nil {
					return err
				}
				printBooks(books)
				return nil
			})
		},
	}
}

func newAddMemberCmd() *cobra.Command {
	var (
		name  string
		email string
		admin bool
	)
	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Register a library member",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(fmt.Sprintf("Enter password for %s: ", email))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			role := library.RoleMember
			if admin {
				role = library.RoleAdmin
			}
			return withManager(func(mgr *library.LibraryManager) error {
				id, err := mgr.AddMember(name, email, password, role)
				if err != nil {
					return err
				}
				fmt.Printf("Added member '%s' with ID %d\n", name, id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "member name")
	cmd.Flags().StringVar(&email, "email", "", "member email")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newBorrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <bookID> <memberID>",
		Short: "Lend a copy to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, memberID, err := parseIDPair(args)
			if err != nil {
				return err
			}
			return withManager(func(mgr *library.LibraryManager) error {
				loan, err := mgr.BorrowBook(bookID, memberID)
				if err != nil {
					return err
				}
				fmt.Printf("Loan %d created, due %s\n", loan.ID, loan.DueDate.Format("2006-01-02"))
				return nil
			})
		},
	}
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loanID>",
		Short: "Return a borrowed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid loan ID %q", args[0])
			}
			return withManager(func(mgr *library.LibraryManager) error {
				loan, err := mgr.ReturnLoan(loanID)
				if err != nil {
					return err
				}
				if loan.ReturnedLate() {
					fmt.Printf("Loan %d returned late (was due %s)\n", loan.ID, loan.DueDate.Format("2006-01-02"))
				} else {
					fmt.Printf("Loan %d returned\n", loan.ID)
				}
				return nil
			})
		},
	}
}

func newOverdueCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff := time.Now()
			if asOf != "" {
				parsed, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD")
				}
				cutoff = parsed
			}
			return withManager(func(mgr *library.LibraryManager) error {
				loans, err := mgr.OverdueLoans(cutoff)
				if err != nil {
					return err
				}
				printLoans(loans)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation date (defaults to today)")
	return cmd
}

func newActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List all open loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(mgr *library.LibraryManager) error {
				loans, err := mgr.OpenLoans()
				if err != nil {
					return err
				}
				printLoans(loans)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <memberID>",
		Short: "Show a member's loan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid member ID %q", args[0])
			}
			return withManager(func(mgr *library.LibraryManager) error {
				loans, err := mgr.LoansForMember(memberID)
				if err != nil {
					return err
				}
				printLoans(loans)
				return nil
			})
		},
	}
}

func parseIDPair(args []string) (int64, int64, error) {
	first, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid ID %q", args[0])
	}
	second, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid ID %q", args[1])
	}
	return first, second, nil
}

func printBooks(books []*library.Book) {
	fmt.Printf("%-5s %-35s %-25s %-15s %-9s %s\n", "ID", "Title", "Author", "Category", "Available", "Stock")
	for _, b := range books {
		fmt.Printf("%-5d %-35s %-25s %-15s %-9d %d\n",
			b.ID, b.Title, b.Author, b.Category, b.AvailableCount, b.StockCount)
	}
}

func printLoans(loans []*library.Loan) {
	fmt.Printf("%-5s %-7s %-9s %-12s %-12s %s\n", "ID", "Book", "Member", "Borrowed", "Due", "Returned")
	for _, l := range loans {
		returned := "-"
		if l.ReturnDate != nil {
			returned = l.ReturnDate.Format("2006-01-02")
		}
		fmt.Printf("%-5d %-7d %-9d %-12s %-12s %s\n",
			l.ID, l.BookID, l.MemberID,
			l.BorrowDate.Format("2006-01-02"), l.DueDate.Format("2006-01-02"), returned)
	}
}
