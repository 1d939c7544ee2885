package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"storynest/internal/client"
	"storynest/internal/config"
	"storynest/internal/engine"
	"storynest/internal/models"
)

// A terminal story player. It drives the same navigator and checkpoint
// machinery as the graphical player builds, against a running server.
func main() {
	serverURL := flag.String("server", "http://localhost:8080", "StoryNest server URL")
	token := flag.String("token", os.Getenv("READER_TOKEN"), "reader bearer token")
	book := flag.String("book", "", "book id or slug to read")
	flag.Parse()

	if *token == "" {
		log.Fatal("a reader token is required (-token or READER_TOKEN)")
	}

	cfg := config.Load()
	api := client.New(*serverURL, *token)
	ctx := context.Background()

	if *book == "" {
		listCatalog(ctx, api)
		return
	}

	content, err := api.GetBookContent(ctx, *book)
	if err != nil {
		log.Fatalf("Failed to load book %q: %v", *book, err)
	}

	binding := api.Bind(*book)
	sync := engine.NewCheckpointSync(binding, *book, len(content.Pages), cfg.CheckpointDebounce)
	defer sync.Close()

	restored := sync.Load(ctx)
	nav := engine.NewNavigator(engine.NavigatorConfig{
		BookID:    content.Book.ID,
		Pages:     content.Pages,
		Mode:      content.Book.QuizMode,
		Sink:      sync,
		Recorder:  binding,
		Completer: binding,
		FlipDelay: cfg.FlipSettle,
	})
	nav.Restore(restored.Spread.PageNumber(), restored.Answers)

	fmt.Printf("%s by %s\n", content.Book.Title, content.Book.Author)
	fmt.Println("Commands: n(ext), p(rev), a <answer>, q(uit)")
	render(nav, content.Pages)

	scanner := bufio.NewScanner(os.Stdin)
	for nav.Phase() != engine.PhaseComplete {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "n":
			nav.Next()
		case line == "p":
			nav.Prev()
		case strings.HasPrefix(line, "a "):
			answer := strings.TrimSpace(strings.TrimPrefix(line, "a "))
			if nav.SubmitAnswer(answer) {
				fmt.Println("Correct!")
			} else {
				fmt.Println("Not quite.")
			}
		case line == "q":
			return
		default:
			continue
		}
		waitForSettle(nav)
		render(nav, content.Pages)
	}

	if nav.Phase() == engine.PhaseComplete {
		fmt.Println("The end! Great reading.")
		if nav.NewlyAwarded() {
			fmt.Println("You earned a new award!")
		}
	}
}

func listCatalog(ctx context.Context, api *client.Client) {
	books, err := api.ListBooks(ctx)
	if err != nil {
		log.Fatalf("Failed to list books: %v", err)
	}
	for _, b := range books {
		fmt.Printf("%4d  %-24s %s (%d pages)\n", b.ID, b.Slug, b.Title, b.PageCount)
	}
}

// waitForSettle blocks while a page turn animates, so the prompt always
// reflects a settled spread.
func waitForSettle(nav *engine.Navigator) {
	for nav.Phase() == engine.PhaseFlipping {
		time.Sleep(10 * time.Millisecond)
	}
}

func render(nav *engine.Navigator, pages []models.Page) {
	spread := nav.Spread()

	fmt.Printf("\n-- page %d of %d --\n", nav.CurrentPageNumber(), len(pages))
	fmt.Println(pages[spread.LeftIndex].Text)
	if spread.RightUnlocked && spread.RightIndex() < len(pages) {
		fmt.Println(pages[spread.RightIndex()].Text)
	}

	if nav.Phase() == engine.PhaseGated {
		// The gate targets the next page in reading order.
		gated := spread.RightIndex()
		if spread.RightUnlocked {
			gated = spread.LeftIndex + 2
		}
		if q := pages[gated].Question; q != nil {
			fmt.Printf("Question: %s\n", q.Prompt)
			for i, choice := range q.Choices {
				fmt.Printf("  %d. %s\n", i+1, choice)
			}
		}
	}
}
