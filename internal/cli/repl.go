package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/hession/storesearch/internal/config"
	"github.com/hession/storesearch/internal/history"
	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/logger"
)

const Version = "0.1.0"

// Run starts the CLI interactive interface
func Run(cfg *config.Config) error {
	printWelcome()

	store := OpenHistory(cfg)
	if store != nil {
		defer store.Close()
	}

	client := itunes.NewClient(cfg.Store.BaseURL, cfg.Store.UserAgent, cfg.Timeout())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptFor(cfg.Category()),
		HistoryFile:       getHistoryFilePath(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		AutoComplete:      commandCompleter(),
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	session := NewSession(cfg, client, store, rl.Stdout())
	defer session.Close()

	return runREPL(rl, session)
}

// OpenHistory opens the history store, or returns nil when history is
// disabled or cannot be opened.
func OpenHistory(cfg *config.Config) history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		logger.Warn("search history unavailable", "path", cfg.History.DBPath, "error", err)
		return nil
	}
	return store
}

// printWelcome prints welcome message
func printWelcome() {
	fmt.Printf("\n%s - Search the iTunes Store\n", titleColor.Sprintf("StoreSearch v%s", Version))
	fmt.Println(dimColor.Sprint("Type /help for help, /exit to quit"))
	fmt.Println()
}

func promptFor(cat itunes.Category) string {
	return okColor.Sprintf("[%s] ", cat) + "Search: "
}

// getHistoryFilePath returns the input history file path
func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	historyDir := filepath.Join(homeDir, ".storesearch")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return ""
	}
	return filepath.Join(historyDir, "input_history")
}

func commandCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commandSuggestions))
	for _, c := range commandSuggestions {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}

var commandSuggestions = []string{
	"/all", "/music", "/software", "/ebooks",
	"/category", "/results", "/detail", "/history", "/config", "/help", "/exit",
}

// runREPL runs the interactive REPL with readline support
func runREPL(rl *readline.Instance, session *Session) error {
	stopWatch := watchTerminate(func() { rl.Close() })
	defer stopWatch()

	for {
		rl.SetPrompt(promptFor(session.Category()))

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Println(warnColor.Sprint("Press Ctrl+D or type /exit to quit"))
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println(titleColor.Sprint("Goodbye!"))
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if !session.Handle(line) {
			fmt.Println(titleColor.Sprint("Goodbye!"))
			return nil
		}
	}
}

// watchTerminate calls onSignal when SIGTERM arrives. The returned func
// stops watching and waits for the watcher goroutine to exit.
func watchTerminate(onSignal func()) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	exited := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGTERM)

	go func() {
		defer close(exited)
		select {
		case <-sigChan:
			onSignal()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
		<-exited
	}
}
