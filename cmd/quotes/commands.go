package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/backup"
	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/domain"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/search"
	"github.com/icberg-810202/tilecatread/internal/service"
	"github.com/icberg-810202/tilecatread/internal/watcher"
)

var errMissingArg = errors.New("missing required argument")

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: -%s", errMissingArg, name)
	}
	return nil
}

func splitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Session

func runRegister(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("register")
	username := fs.String("u", "", "Username")
	password := fs.String("p", "", "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := env.manager.RegisterUser(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "registered %s\n", user.Username)
	return nil
}

func runLogin(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("login")
	username := fs.String("u", "", "Username")
	password := fs.String("p", "", "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := env.manager.AuthenticateUser(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "logged in as %s\n", user.Username)
	return nil
}

func runLogout(ctx context.Context, env *cmdEnv, _ []string) error {
	if err := env.manager.LogoutUser(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.out, "logged out")
	return nil
}

func runWhoami(_ context.Context, env *cmdEnv, _ []string) error {
	user := env.manager.CurrentUser()
	if user == "" {
		fmt.Fprintln(env.out, "not logged in")
		return nil
	}
	fmt.Fprintln(env.out, user)
	return nil
}

func runDevice(_ context.Context, env *cmdEnv, _ []string) error {
	fmt.Fprintln(env.out, env.manager.DeviceID())
	return nil
}

// Books

func runBooks(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("books")
	query := fs.String("q", "", "Filter by name or author")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		books []domain.Book
		err   error
	)
	if *query != "" {
		books, err = env.manager.SearchBooks(ctx, *query)
	} else {
		books, err = env.manager.UserBooks(ctx, "")
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAUTHOR\tQUOTES\tSELECTED")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", b.ID, b.Name, b.Author, len(b.Quotes), b.Selected)
	}
	return tw.Flush()
}

func runBookAdd(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("book-add")
	name := fs.String("name", "", "Book name")
	author := fs.String("author", "", "Author")
	if err := fs.Parse(args); err != nil {
		return err
	}

	book, err := env.manager.AddBook(ctx, "", service.BookInput{Name: *name, Author: *author})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "added book %s (%s by %s)\n", book.ID, book.Name, book.Author)
	return nil
}

func runBookUpdate(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("book-update")
	bookID := fs.String("id", "", "Book id")
	name := fs.String("name", "", "New name")
	author := fs.String("author", "", "New author")
	selected := fs.String("selected", "", "Mark the book selected (true or false)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *bookID); err != nil {
		return err
	}

	var patch service.BookPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "author":
			patch.Author = author
		}
	})
	if *selected != "" {
		v, err := strconv.ParseBool(*selected)
		if err != nil {
			return fmt.Errorf("invalid -selected %q", *selected)
		}
		patch.Selected = &v
	}

	book, err := env.manager.UpdateBook(ctx, *bookID, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "updated book %s (%s by %s)\n", book.ID, book.Name, book.Author)
	return nil
}

func runBookDelete(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("book-delete")
	bookID := fs.String("id", "", "Book id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *bookID); err != nil {
		return err
	}

	if err := env.manager.DeleteBook(ctx, *bookID); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "deleted book %s\n", *bookID)
	return nil
}

// Quotes

func runQuotes(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("quotes")
	bookID := fs.String("book", "", "Book id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("book", *bookID); err != nil {
		return err
	}

	quotes, err := env.manager.BookQuotes(ctx, *bookID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAGE\tTAGS\tTEXT")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.ID, q.Page, strings.Join(q.Tags, ","), q.Text)
	}
	return tw.Flush()
}

func quoteFlags(name string) (*flag.FlagSet, *string, *string, *string, *string) {
	fs := newFlags(name)
	bookID := fs.String("book", "", "Book id")
	text := fs.String("text", "", "Quote text")
	page := fs.String("page", "", "Page reference")
	tags := fs.String("tags", "", "Comma separated tags")
	return fs, bookID, text, page, tags
}

func runQuoteAdd(ctx context.Context, env *cmdEnv, args []string) error {
	fs, bookID, text, page, tags := quoteFlags("quote-add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("book", *bookID); err != nil {
		return err
	}

	q, err := env.manager.AddQuote(ctx, *bookID, service.QuoteInput{Text: *text, Page: *page, Tags: splitTags(*tags)})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "added quote %s\n", q.ID)
	return nil
}

func runQuoteUpdate(ctx context.Context, env *cmdEnv, args []string) error {
	fs, bookID, text, page, tags := quoteFlags("quote-update")
	quoteID := fs.String("id", "", "Quote id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("book", *bookID); err != nil {
		return err
	}
	if err := required("id", *quoteID); err != nil {
		return err
	}

	q, err := env.manager.UpdateQuote(ctx, *bookID, *quoteID, service.QuoteInput{Text: *text, Page: *page, Tags: splitTags(*tags)})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "updated quote %s\n", q.ID)
	return nil
}

func runQuoteDelete(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("quote-delete")
	bookID := fs.String("book", "", "Book id")
	quoteID := fs.String("id", "", "Quote id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("book", *bookID); err != nil {
		return err
	}
	if err := required("id", *quoteID); err != nil {
		return err
	}

	if err := env.manager.DeleteQuote(ctx, *bookID, *quoteID); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "deleted quote %s\n", *quoteID)
	return nil
}

func runSearch(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("search")
	limit := fs.Int("limit", 0, "Maximum number of hits")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := env.manager.SearchQuotes(ctx, strings.Join(fs.Args(), " "), *limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "%d hits for %q (%dms)\n", res.Total, res.Query, res.TookMs)
	for _, h := range res.Hits {
		text := h.Text
		if hl, ok := h.Highlights["text"]; ok && hl != "" {
			text = search.PlainHighlight(hl, "*", "*")
		}
		fmt.Fprintf(env.out, "\n%s / %s  [%s %s]\n  %s\n", h.BookName, h.Author, h.BookID, h.QuoteID, text)
	}
	return nil
}

// Device selection and playback

func runSelectBooks(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("select-books")
	deviceID := fs.String("device", "", "Device id (default this device)")
	show := fs.Bool("show", false, "Print the current selection instead of replacing it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deviceID == "" {
		*deviceID = env.manager.DeviceID()
	}

	if *show {
		ids, err := env.manager.SelectedBooksForDevice(ctx, *deviceID, "")
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(env.out, id)
		}
		return nil
	}

	sel, err := env.manager.SaveSelectedBooksForDevice(ctx, *deviceID, fs.Args())
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "device %s: %d books selected\n", *deviceID, len(sel.SelectedBookIDs))
	return nil
}

func runMode(ctx context.Context, env *cmdEnv, args []string) error {
	if len(args) == 0 {
		settings, err := env.manager.PlaybackSettings(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out, "%s (%d quotes selected)\n", settings.Mode, len(settings.SelectedQuotes))
		return nil
	}

	settings, err := env.manager.SetPlaybackMode(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "playback mode set to %s\n", settings.Mode)
	return nil
}

func runToggle(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("toggle")
	bookID := fs.String("book", "", "Book id")
	quoteID := fs.String("quote", "", "Quote id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("book", *bookID); err != nil {
		return err
	}
	if err := required("quote", *quoteID); err != nil {
		return err
	}

	selected, err := env.manager.ToggleQuoteSelection(ctx, *bookID, *quoteID)
	if err != nil {
		return err
	}
	if selected {
		fmt.Fprintf(env.out, "quote %s selected\n", *quoteID)
	} else {
		fmt.Fprintf(env.out, "quote %s deselected\n", *quoteID)
	}
	return nil
}

func runMigrateSettings(ctx context.Context, env *cmdEnv, _ []string) error {
	res, err := env.manager.MigratePlaybackSettings(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "migrated %d legacy selections, dropped %d\n", res.Migrated, res.Dropped)
	return nil
}

func runSplash(ctx context.Context, env *cmdEnv, _ []string) error {
	q, err := env.manager.Splash(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(env.out, q.Text)
	attribution := q.Author
	if q.BookName != "" {
		attribution = fmt.Sprintf("%s, %s", q.Author, q.BookName)
	}
	if q.Page != "" {
		attribution += ", p. " + q.Page
	}
	fmt.Fprintf(env.out, "  -- %s\n", attribution)
	return nil
}

// Backup

func restoreFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := newFlags(name)
	mode := fs.String("mode", string(backup.RestoreModeReplace), "Restore mode (replace, merge)")
	strategy := fs.String("strategy", "", "Merge strategy (keep_local, keep_backup, newest)")
	return fs, mode, strategy
}

func runExport(ctx context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("export")
	output := fs.String("o", "", "Output file, - for stdout (default the exports directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	envelope, filename, err := env.manager.ExportData(ctx)
	if err != nil {
		return err
	}

	switch *output {
	case "":
		dir := do.MustInvoke[*backup.Dir](env.injector)
		path, err := dir.Write(envelope, envelope.ExportDate)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out, "exported %d books, %d quotes to %s\n", envelope.Counts.Books, envelope.Counts.Quotes, path)
	case "-":
		data, err := backup.Encode(envelope)
		if err != nil {
			return err
		}
		_, err = env.out.Write(append(data, '\n'))
		return err
	default:
		data, err := backup.Encode(envelope)
		if err != nil {
			return err
		}
		path := *output
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			path = filepath.Join(path, filename)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(env.out, "exported %d books, %d quotes to %s\n", envelope.Counts.Books, envelope.Counts.Quotes, path)
	}
	return nil
}

func runImport(ctx context.Context, env *cmdEnv, args []string) error {
	fs, mode, strategy := restoreFlags("import")
	backupID := fs.String("id", "", "Restore an export from the exports directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts := backup.RestoreOptions{
		Mode:          backup.RestoreMode(*mode),
		MergeStrategy: backup.MergeStrategy(*strategy),
	}

	var (
		res backup.RestoreResult
		err error
	)
	switch {
	case *backupID != "":
		envelope, readErr := do.MustInvoke[*backup.Dir](env.injector).Read(*backupID)
		if readErr != nil {
			return readErr
		}
		res, err = env.manager.Restore(ctx, envelope, opts)
	case fs.NArg() == 1:
		payload, readErr := os.ReadFile(fs.Arg(0))
		if readErr != nil {
			return fmt.Errorf("read backup: %w", readErr)
		}
		res, err = env.manager.ImportData(ctx, payload, opts)
	default:
		return fmt.Errorf("%w: backup file or -id", errMissingArg)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(env.out, "imported (%s): %d added, %d updated, %d kept, %d books total\n",
		res.Mode, res.Added, res.Updated, res.Kept, res.Books)
	return nil
}

func runBackups(_ context.Context, env *cmdEnv, _ []string) error {
	dir := do.MustInvoke[*backup.Dir](env.injector)
	backups, err := dir.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintf(env.out, "no exports in %s\n", dir.Path())
		return nil
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tCREATED")
	for _, b := range backups {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", b.ID, b.Size, b.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func runBackupDelete(_ context.Context, env *cmdEnv, args []string) error {
	fs := newFlags("backup-delete")
	backupID := fs.String("id", "", "Export id as printed by backups")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *backupID); err != nil {
		return err
	}

	if err := do.MustInvoke[*backup.Dir](env.injector).Delete(*backupID); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "deleted export %s\n", *backupID)
	return nil
}

func runWatchImports(ctx context.Context, env *cmdEnv, args []string) error {
	cfg := do.MustInvoke[*config.Config](env.injector)
	log := do.MustInvoke[*logger.Logger](env.injector)

	fs, mode, strategy := restoreFlags("watch-imports")
	dir := fs.String("dir", filepath.Join(cfg.App.DataDir, "inbox"), "Directory to watch for backup files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		*dir = fs.Arg(0)
	}

	opts := backup.RestoreOptions{Mode: backup.RestoreMode(*mode), MergeStrategy: backup.MergeStrategy(*strategy)}
	if !opts.Mode.Valid() || !opts.MergeStrategy.Valid() {
		return fmt.Errorf("invalid restore options %q/%q", *mode, *strategy)
	}

	inbox := watcher.NewInbox(*dir, nil, func(ctx context.Context, path string) error {
		envelope, err := backup.ReadFile(path)
		if err != nil {
			return err
		}
		res, err := env.manager.Restore(ctx, envelope, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out, "imported %s: %d added, %d updated, %d books total\n",
			filepath.Base(path), res.Added, res.Updated, res.Books)
		return nil
	}, watcher.Options{}, log.Component("inbox"))

	fmt.Fprintf(env.out, "watching %s for backups (Ctrl-C to stop)\n", *dir)
	if err := inbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
