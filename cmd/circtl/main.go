// circtl is the operator CLI: schema setup, seed data, catalog and member
// administration, and the consistency audit.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"libcirc/internal/audit"
	"libcirc/internal/catalog"
	"libcirc/internal/membership"
	"libcirc/internal/postgres"
)

var databaseURL string

func main() {
	root := &cobra.Command{
		Use:   "circtl",
		Short: "Operator tooling for the library circulation service",
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url",
		os.Getenv("DATABASE_URL"), "PostgreSQL connection string")

	root.AddCommand(
		migrateCmd(),
		seedCmd(),
		addBookCmd(),
		lockMemberCmd(),
		unlockMemberCmd(),
		auditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	return postgres.Open(databaseURL)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Println("schema applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample books and members for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			return seed(cmd.Context(), db)
		},
	}
}

func seed(ctx context.Context, db *sqlx.DB) error {
	books := catalog.NewService(db)
	members := membership.NewService(db)

	sampleBooks := []catalog.NewBook{
		{Title: "Dế Mèn Phiêu Lưu Ký", Author: "Tô Hoài", Category: "Fiction", TotalCopies: 3},
		{Title: "Số Đỏ", Author: "Vũ Trọng Phụng", Category: "Fiction", TotalCopies: 2},
		{Title: "The Pragmatic Programmer", Author: "Hunt & Thomas", Category: "Technology", TotalCopies: 5},
		{Title: "Pride and Prejudice", Author: "Jane Austen", Category: "Classics", TotalCopies: 4},
	}
	for _, b := range sampleBooks {
		book, err := books.AddBook(ctx, b)
		if err != nil {
			return fmt.Errorf("seed book %q: %w", b.Title, err)
		}
		fmt.Printf("book %s  %s\n", book.ID, book.Title)
	}

	sampleMembers := []struct{ email, name string }{
		{"an.nguyen@example.com", "Nguyễn Văn An"},
		{"binh.tran@example.com", "Trần Thị Bình"},
	}
	for _, m := range sampleMembers {
		member, err := members.Register(ctx, m.email, m.name, "changeme-123")
		if err != nil {
			return fmt.Errorf("seed member %q: %w", m.email, err)
		}
		fmt.Printf("member %s  %s\n", member.ID, member.Email)
	}

	return nil
}

func addBookCmd() *cobra.Command {
	var input catalog.NewBook

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			book, err := catalog.NewService(db).AddBook(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Printf("added %s  %s by %s (%d copies)\n",
				book.ID, book.Title, book.Author, book.TotalCopies)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "book title")
	cmd.Flags().StringVar(&input.Author, "author", "", "book author")
	cmd.Flags().StringVar(&input.Category, "category", "", "book category")
	cmd.Flags().IntVar(&input.TotalCopies, "copies", 1, "number of copies")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func lockMemberCmd() *cobra.Command {
	return setStatusCmd("lock-member", "Lock a member account",
		func(ctx context.Context, svc membership.Service, id uuid.UUID) error {
			return svc.Lock(ctx, id)
		})
}

func unlockMemberCmd() *cobra.Command {
	return setStatusCmd("unlock-member", "Unlock a member account",
		func(ctx context.Context, svc membership.Service, id uuid.UUID) error {
			return svc.Unlock(ctx, id)
		})
}

func setStatusCmd(use, short string, apply func(context.Context, membership.Service, uuid.UUID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <member-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid member ID: %w", err)
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := apply(cmd.Context(), membership.NewService(db), id); err != nil {
				return err
			}
			fmt.Println("done")
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Verify availability counters against open loan records",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			report, err := audit.NewAuditor(db, logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("checked %d books\n", report.BooksChecked)
			if report.Consistent() {
				fmt.Println("all availability counters consistent")
				return nil
			}
			for _, f := range report.Findings {
				fmt.Printf("VIOLATION %s %q: available=%d expected=%d (total=%d, open loans=%d)\n",
					f.BookID, f.Title, f.AvailableCopies, f.ExpectedAvailable,
					f.TotalCopies, f.OpenLoans)
			}
			return fmt.Errorf("%d violations found", len(report.Findings))
		},
	}
}
