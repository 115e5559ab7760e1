package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"libraryapi/internal/book"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errSeedCount = errors.New("--count must be positive")

var (
	seedGenres  = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	seedAuthors = []string{"Ursula Le Guin", "Octavia Butler", "Italo Calvino", "Toni Morrison", "Stanislaw Lem", "Jorge Luis Borges"}
	seedWords   = []string{"Algorithm", "Database", "Network", "Security", "Design", "Architecture", "Performance", "Testing", "Deployment", "Monitoring"}
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		count int
		owner string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample books owned by one user",
		Long: `Insert sample books owned by one user.

Each book is committed on its own so created_at follows insertion order and
GET /books lists the last seeded title first. created_at has millisecond
precision; rows inserted within the same millisecond fall back to book_id
order. A failure leaves the books inserted before it in place.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errSeedCount
			}
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("--owner must be a UUID: %w", err)
			}

			ctx := cmd.Context()
			pool, err := a.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a.logger.Info("seeding books", "count", count, "owner", ownerID)
			repo := book.NewPostgresRepo(pool, a.cfg.Database.Timeout, a.logger)
			if err := seedBooks(ctx, repo, ownerID, count); err != nil {
				return fmt.Errorf("seed books: %w", err)
			}

			printf(cmd.OutOrStdout(), "inserted %d books owned by %s\n", count, ownerID)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 50, "number of books to insert")
	cmd.Flags().StringVar(&owner, "owner", "", "owning user id (UUID)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

type bookCreator interface {
	Create(ctx context.Context, event book.CreateBook) (book.Book, error)
}

func seedBooks(ctx context.Context, repo bookCreator, ownerID uuid.UUID, count int) error {
	for i := range count {
		if _, err := repo.Create(ctx, sampleBook(i, ownerID)); err != nil {
			return fmt.Errorf("book %d: %w", i+1, err)
		}
	}
	return nil
}

func sampleBook(i int, ownerID uuid.UUID) book.CreateBook {
	word := seedWords[rand.IntN(len(seedWords))]
	genre := seedGenres[rand.IntN(len(seedGenres))]
	return book.CreateBook{
		Title:       fmt.Sprintf("Book Title %d - %s", i+1, word),
		Author:      seedAuthors[rand.IntN(len(seedAuthors))],
		ISBN:        fmt.Sprintf("978-%08d", i+1),
		Description: fmt.Sprintf("A %s book about %s.", genre, word),
		OwnedBy:     ownerID,
	}
}
