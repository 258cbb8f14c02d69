package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/auth"
	"github.com/Gustavo032/leankeep-api-guard/internal/config"
	"github.com/Gustavo032/leankeep-api-guard/internal/console"
)

var errNestedConsole = errors.New("already inside the console")

func newConsoleCmd(a *App) *cobra.Command {
	var historyFile string

	consoleCmd := &cobra.Command{
		Use:     "console",
		Aliases: []string{"repl", "shell"},
		Short:   "Start an interactive console",
		Long: `Start an interactive console that runs lkp commands against one session.

Commands are typed without the leading 'lkp'. The prompt shows the API host,
[AUTH REQUIRED] when a login is needed and [REVEAL] when redaction is off.
While the console is open the token expiry is checked periodically and a
logout in another terminal ends this session too.

Examples:
  lkp console
  lkp » env set --empresa-id 42
  lkp » auth login --login ana@example.com
  lkp » occurrences list -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.inREPL {
				return errNestedConsole
			}
			return a.runConsole(cmd, historyFile)
		},
	}
	consoleCmd.Flags().StringVar(&historyFile, "history-file", "", "Command history file (default: $TMPDIR/.lkp_console_history)")

	return consoleCmd
}

func (a *App) runConsole(cmd *cobra.Command, historyFile string) error {
	a.inREPL = true
	a.stdout, a.stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
	defer func() { a.inREPL = false }()

	opts := []console.Option{
		console.WithOutput(cmd.OutOrStdout()),
		console.WithCompletions(completionsFor(cmd.Root())),
	}
	if historyFile != "" {
		opts = append(opts, console.WithHistoryFile(historyFile))
	}
	if a.cfg.Storage.Backend == config.StorageFile && a.fileStorage != nil {
		opts = append(opts, console.WithSlotWatcher(a.fileStorage))
	}

	// the watcher's callback needs the console, which needs the watcher
	var c *console.Console
	watcher := auth.NewWatcher(a.store,
		auth.WithInterval(a.cfg.ExpiryCheckInterval),
		auth.WithOnExpired(func() { c.OnExpired() }),
	)
	opts = append(opts, console.WithBackground(func(ctx context.Context) error {
		watcher.Start(ctx)
		return nil
	}))

	c = console.New(a.store, a.execLine, opts...)
	defer watcher.Stop()

	watcher.Check()
	return c.Run(cmd.Context())
}

// execLine runs one console line through a fresh command tree bound to the
// same App, so flags start from their defaults on every line.
func (a *App) execLine(ctx context.Context, args []string) error {
	saved := a.flags
	defer func() { a.flags = saved }()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.out())
	root.SetErr(a.errOut())
	// the console reports the error itself
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

func completionsFor(root *cobra.Command) []console.Completion {
	var items []console.Completion
	for _, c := range root.Commands() {
		if c.Hidden || c.Name() == "help" || c.Name() == "completion" || c.Name() == "console" {
			continue
		}
		items = append(items, console.Completion{
			Name:     c.Name(),
			Children: completionsFor(c),
		})
	}
	return items
}
