package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"golang.org/x/sync/errgroup"

	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

// errExit ends the loop without an error.
var errExit = errors.New("exit")

// Session is the part of *session.Store the console uses.
type Session interface {
	Key() string
	Snapshot() session.State
	Logout()
	RestoreFromStorage()
	Subscribe(fn func(session.State)) func()
}

// Executor runs one console line, already split into arguments, as a
// command. A returned error is printed and the console keeps going.
type Executor func(ctx context.Context, args []string) error

// BackgroundTask runs for the console's lifetime and returns when ctx is
// cancelled.
type BackgroundTask func(ctx context.Context) error

// SlotWatcher reports changes to a storage slot; *session.FileStorage
// implements it.
type SlotWatcher interface {
	Watch(ctx context.Context, key string, onChange func(removed bool)) error
}

// Completion is one node of the tab-completion tree.
type Completion struct {
	Name     string
	Children []Completion
}

// Option configures a Console.
type Option func(*Console)

// WithOutput redirects console messages (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(c *Console) {
		c.out = w
	}
}

// WithHistoryFile sets the readline history file. An empty path disables
// history.
func WithHistoryFile(path string) Option {
	return func(c *Console) {
		c.historyFile = path
	}
}

// WithCompletions sets the command tree offered on TAB.
func WithCompletions(items []Completion) Option {
	return func(c *Console) {
		c.completions = items
	}
}

// WithBackground adds a task that runs alongside the prompt, such as the
// expiry watcher.
func WithBackground(task BackgroundTask) Option {
	return func(c *Console) {
		c.background = append(c.background, task)
	}
}

// WithSlotWatcher follows the storage slot so a logout or login in another
// process is picked up.
func WithSlotWatcher(w SlotWatcher) Option {
	return func(c *Console) {
		c.slotWatcher = w
	}
}

// Console is the interactive prompt. Each line is run as an lkp command
// against the same in-process session.
type Console struct {
	session     Session
	exec        Executor
	out         io.Writer
	historyFile string
	completions []Completion
	background  []BackgroundTask
	slotWatcher SlotWatcher
	useUnicode  bool

	mu sync.Mutex
	rl *readline.Instance
}

// New creates a Console.
func New(s Session, exec Executor, opts ...Option) *Console {
	c := &Console{
		session:     s,
		exec:        exec,
		out:         os.Stdout,
		historyFile: filepath.Join(os.TempDir(), ".lkp_console_history"),
		useUnicode:  detectUnicodeSupport(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads lines until EOF, "exit" or ctx cancellation. Background tasks
// and the slot watcher run until the prompt ends.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:              c.buildPrompt(c.session.Snapshot()),
		HistoryFile:         c.historyFile,
		AutoComplete:        buildCompleter(c.completions),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
		Stdout:              c.out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}

	c.mu.Lock()
	c.rl = rl
	c.mu.Unlock()

	unsubscribe := c.session.Subscribe(func(st session.State) {
		c.setPrompt(c.buildPrompt(st))
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	c.startWorkers(g, gctx)

	// Readline blocks on input; closing it is the only way to interrupt.
	g.Go(func() error {
		<-gctx.Done()
		return rl.Close()
	})

	fmt.Fprintln(c.out, "lkp console. Type 'help' for available commands. Use TAB for completion.")

	loopErr := c.loop(gctx, rl)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("Console", err, "Background task failed")
	}
	return loopErr
}

// startWorkers launches the background tasks and the slot watcher on g.
func (c *Console) startWorkers(g *errgroup.Group, ctx context.Context) {
	for _, task := range c.background {
		g.Go(func() error {
			return task(ctx)
		})
	}
	if c.slotWatcher != nil {
		g.Go(func() error {
			// without the watch the console still works, only without
			// cross-process updates
			if err := c.slotWatcher.Watch(ctx, c.session.Key(), c.onSlotChange); err != nil {
				logging.Warn("Console", "Not following session storage: %v", err)
			}
			return nil
		})
	}
}

func (c *Console) loop(ctx context.Context, rl *readline.Instance) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		if err := c.handleLine(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(c.out, "Goodbye!")
				return nil
			}
			fmt.Fprintln(c.out, cli.FormatError(err))
		}
	}
}

// handleLine runs one input line. Builtins are handled here; everything
// else goes to the executor.
func (c *Console) handleLine(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return errExit
	case "?":
		args = append([]string{"help"}, args[1:]...)
	case "lkp":
		// tolerate lines pasted from a shell
		args = args[1:]
		if len(args) == 0 {
			return nil
		}
	}

	return c.exec(ctx, args)
}

// onSlotChange reconciles the in-memory session with the storage slot.
// A removed slot while a token is held means another process logged out.
func (c *Console) onSlotChange(removed bool) {
	if removed {
		if c.session.Snapshot().HasToken() {
			c.session.Logout()
			c.notify(cli.FormatWarning("Session ended in another terminal."))
		}
		return
	}
	c.session.RestoreFromStorage()
}

// OnExpired is the expiry watcher's callback.
func (c *Console) OnExpired() {
	c.notify(cli.FormatWarning("Session expired. Please log in again."))
}

// notify prints a message above the prompt without garbling the input line.
func (c *Console) notify(msg string) {
	c.mu.Lock()
	rl := c.rl
	c.mu.Unlock()

	if rl == nil {
		fmt.Fprintln(c.out, msg)
		return
	}
	fmt.Fprintf(rl.Stdout(), "\r\033[K%s\n", msg)
	rl.Refresh()
}

func (c *Console) setPrompt(prompt string) {
	c.mu.Lock()
	rl := c.rl
	c.mu.Unlock()

	if rl != nil {
		rl.SetPrompt(prompt)
		rl.Refresh()
	}
}

func buildCompleter(items []Completion) *readline.PrefixCompleter {
	children := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	}
	children = append(children, completionItems(items)...)
	return readline.NewPrefixCompleter(children...)
}

func completionItems(items []Completion) []readline.PrefixCompleterInterface {
	out := make([]readline.PrefixCompleterInterface, 0, len(items))
	for _, item := range items {
		out = append(out, readline.PcItem(item.Name, completionItems(item.Children)...))
	}
	return out
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
