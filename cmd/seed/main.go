// Package main seeds a demo user whose books are built from the default
// splash quotes, one book per author.
//
// Usage:
//
//	go run ./cmd/seed [global flags] [username [password]]
//	go run ./cmd/seed -remote=sqlite -remote-path=/tmp/docs.db demo s3cret
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/di"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/playback"
	"github.com/icberg-810202/tilecatread/internal/service"
)

func main() {
	cfg, args, err := config.Load("seed", os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	username, password := "demo", "demo-password"
	if len(args) > 0 {
		username = args[0]
	}
	if len(args) > 1 {
		password = args[1]
	}

	injector := di.NewClientContainer(cfg, os.Stderr)
	defer injector.Shutdown() //nolint:errcheck // process exit

	manager := do.MustInvoke[*service.Manager](injector)
	ctx := context.Background()

	if _, err := manager.RegisterUser(ctx, username, password); err != nil {
		if !domainerrors.Is(err, domainerrors.ErrDuplicateUser) {
			log.Fatalf("Failed to register %s: %v", username, err)
		}
		if _, err := manager.AuthenticateUser(ctx, username, password); err != nil {
			log.Fatalf("User %s exists and login failed: %v", username, err)
		}
		fmt.Printf("User %s already exists, adding to their books\n", username)
	}

	books, quotes := 0, 0
	for _, group := range groupByAuthor(playback.DefaultQuotes) {
		book, err := manager.AddBook(ctx, "", service.BookInput{
			Name:   "Sayings of " + group.author,
			Author: group.author,
		})
		if err != nil {
			log.Fatalf("Failed to add book for %s: %v", group.author, err)
		}
		books++

		for _, text := range group.texts {
			q, err := manager.AddQuote(ctx, book.ID, service.QuoteInput{Text: text, Tags: []string{"seed"}})
			if err != nil {
				log.Fatalf("Failed to add quote: %v", err)
			}
			quotes++

			if _, err := manager.ToggleQuoteSelection(ctx, book.ID, q.ID); err != nil {
				log.Fatalf("Failed to select quote: %v", err)
			}
		}
	}

	fmt.Printf("Seeded %s with %d books and %d quotes\n", username, books, quotes)
}

type authorGroup struct {
	author string
	texts  []string
}

// groupByAuthor keeps first-seen author order.
func groupByAuthor(quotes []domain.DefaultQuote) []authorGroup {
	var groups []authorGroup
	index := map[string]int{}
	for _, q := range quotes {
		i, ok := index[q.Author]
		if !ok {
			i = len(groups)
			index[q.Author] = i
			groups = append(groups, authorGroup{author: q.Author})
		}
		groups[i].texts = append(groups[i].texts, q.Text)
	}
	return groups
}
