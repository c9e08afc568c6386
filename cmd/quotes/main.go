// Package main is the quotes client: a command-line front end over the data
// manager.
//
// Usage:
//
//	quotes [global flags] <command> [command flags]
//
// Run quotes help for the command list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/di"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/service"
)

// command runs one subcommand against an initialized manager.
type command struct {
	usage string
	run   func(ctx context.Context, env *cmdEnv, args []string) error
}

// cmdEnv is what every command receives.
type cmdEnv struct {
	injector do.Injector
	manager  *service.Manager
	out      io.Writer
}

var commands = map[string]command{
	"register":         {"register -u NAME -p PASSWORD", runRegister},
	"login":            {"login -u NAME -p PASSWORD", runLogin},
	"logout":           {"logout", runLogout},
	"whoami":           {"whoami", runWhoami},
	"books":            {"books [-q QUERY]", runBooks},
	"book-add":         {"book-add -name NAME [-author AUTHOR]", runBookAdd},
	"book-update":      {"book-update -id ID [-name NAME] [-author AUTHOR] [-selected true|false]", runBookUpdate},
	"book-delete":      {"book-delete -id ID", runBookDelete},
	"quotes":           {"quotes -book ID", runQuotes},
	"quote-add":        {"quote-add -book ID -text TEXT [-page PAGE] [-tags a,b]", runQuoteAdd},
	"quote-update":     {"quote-update -book ID -id ID -text TEXT [-page PAGE] [-tags a,b]", runQuoteUpdate},
	"quote-delete":     {"quote-delete -book ID -id ID", runQuoteDelete},
	"search":           {"search [-limit N] QUERY", runSearch},
	"select-books":     {"select-books [-device ID] [BOOK_ID...]", runSelectBooks},
	"mode":             {"mode [sequential|random|single]", runMode},
	"toggle":           {"toggle -book ID -quote ID", runToggle},
	"migrate-settings": {"migrate-settings", runMigrateSettings},
	"splash":           {"splash", runSplash},
	"export":           {"export [-o FILE]", runExport},
	"import":           {"import [-mode replace|merge] [-strategy keep_local|keep_backup|newest] (FILE | -id BACKUP_ID)", runImport},
	"backups":          {"backups", runBackups},
	"backup-delete":    {"backup-delete -id BACKUP_ID", runBackupDelete},
	"watch-imports":    {"watch-imports [-mode replace|merge] [-strategy ...] [DIR]", runWatchImports},
	"device":           {"device", runDevice},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	// Diagnostics stay quiet unless asked for; command output owns stdout.
	if os.Getenv("LOG_LEVEL") == "" {
		argv = append([]string{"-log-level=warn"}, argv...)
	}

	cfg, args, err := config.Load("quotes", argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "quotes: %v\n", err)
		return 2
	}

	if len(args) == 0 || args[0] == "help" {
		printUsage(stdout)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "quotes: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	injector := di.NewClientContainer(cfg, stderr)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			fmt.Fprintf(stderr, "quotes: shutdown: %v\n", err)
		}
	}()

	manager, err := do.Invoke[*service.Manager](injector)
	if err != nil {
		fmt.Fprintf(stderr, "quotes: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := &cmdEnv{injector: injector, manager: manager, out: stdout}
	if err := cmd.run(ctx, env, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "quotes %s: %v\n", args[0], err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps failures the user can fix to 2 and everything else to 1.
func exitCode(err error) int {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		switch de.Code {
		case domainerrors.CodeValidation, domainerrors.CodeNotLoggedIn,
			domainerrors.CodeInvalidCredentials, domainerrors.CodeDuplicateUser,
			domainerrors.CodeFormat:
			return 2
		}
	}
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: quotes [global flags] <command> [command flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}
