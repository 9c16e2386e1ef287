package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/hession/storesearch/internal/artwork"
	"github.com/hession/storesearch/internal/config"
	"github.com/hession/storesearch/internal/history"
	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/logger"
	"github.com/hession/storesearch/internal/search"
)

// Session ties the coordinator to a text console. Output may come from the
// REPL goroutine or from coordinator and artwork callbacks, so every write
// goes through print.
type Session struct {
	cfg    *config.Config
	coord  *search.Coordinator
	store  history.Store
	loader *artwork.Loader
	tag    language.Tag

	outMu sync.Mutex
	out   io.Writer

	mu       sync.Mutex
	category itunes.Category

	detail artwork.Slot
}

// NewSession creates a session. store may be nil when history is disabled.
func NewSession(cfg *config.Config, fetcher search.Fetcher, store history.Store, out io.Writer) *Session {
	s := &Session{
		cfg:      cfg,
		store:    store,
		loader:   artwork.NewLoader(cfg.Store.UserAgent, cfg.Timeout()),
		tag:      cfg.LanguageTag(),
		out:      out,
		category: cfg.Category(),
	}
	s.coord = search.NewCoordinator(fetcher,
		search.WithLocale(s.tag),
		search.WithObserver(s.onState),
		search.WithErrorHandler(s.onError),
	)
	return s
}

// Category returns the category new searches use.
func (s *Session) Category() itunes.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// State returns the coordinator state.
func (s *Session) State() search.State {
	return s.coord.State()
}

// Close stops pending artwork loads and the coordinator.
func (s *Session) Close() {
	s.detail.Release()
	s.coord.Close()
}

func (s *Session) print(fn func(w io.Writer)) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fn(s.out)
}

func (s *Session) printf(format string, args ...any) {
	s.print(func(w io.Writer) { fmt.Fprintf(w, format, args...) })
}

// onState runs on the coordinator goroutine.
func (s *Session) onState(st search.State) {
	switch st.Kind {
	case search.Loading:
		s.detail.Reuse()
		s.print(func(w io.Writer) { RenderRows(w, st) })
	case search.Results, search.Empty:
		s.print(func(w io.Writer) { RenderRows(w, st) })
	}
	if st.Kind.Settled() && s.store != nil {
		if err := RecordState(s.store, st); err != nil {
			logger.Warn("failed to record search", "error", err)
		}
	}
}

func (s *Session) onError(message string) {
	s.printf("%s %s\n", errColor.Sprint(search.AlertTitle), message)
}

// Handle processes one input line. It returns false when the user asked to
// exit.
func (s *Session) Handle(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}
	if !strings.HasPrefix(input, "/") {
		s.coord.Submit(line, s.Category())
		return true
	}
	return s.handleCommand(input)
}

// handleCommand handles built-in commands, returns true to continue loop, false to exit
func (s *Session) handleCommand(cmd string) bool {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help":
		s.print(printHelp)

	case "/exit", "/quit", "/q":
		return false

	case "/all", "/music", "/software", "/ebooks":
		cat, _ := itunes.ParseCategory(strings.TrimPrefix(command, "/"))
		s.switchCategory(cat)

	case "/category":
		if len(args) == 0 {
			s.printf("Category: %s\n", s.Category())
			break
		}
		cat, err := parseCategoryArg(args[0])
		if err != nil {
			s.printf("%s\n", warnColor.Sprintf("%v", err))
			break
		}
		s.switchCategory(cat)

	case "/results":
		st := s.coord.State()
		if st.Kind == search.Idle || st.Kind == search.NetworkError {
			s.printf("%s\n", dimColor.Sprint("No results to show"))
			break
		}
		s.print(func(w io.Writer) { RenderRows(w, st) })

	case "/detail":
		s.showDetail(args)

	case "/history":
		s.showHistory(args)

	case "/config":
		s.printf("%s\n", s.cfg.String())

	default:
		s.printf("%s\n", warnColor.Sprintf("Unknown command: %s", cmd))
		s.printf("Type /help for available commands\n")
	}
	return true
}

// parseCategoryArg accepts a category name or its segment index.
func parseCategoryArg(arg string) (itunes.Category, error) {
	if idx, err := strconv.Atoi(arg); err == nil {
		return itunes.CategoryFromIndex(idx), nil
	}
	return itunes.ParseCategory(arg)
}

// switchCategory changes the category and searches the last text again.
func (s *Session) switchCategory(cat itunes.Category) {
	s.mu.Lock()
	s.category = cat
	s.mu.Unlock()

	s.printf("%s\n", dimColor.Sprintf("Category: %s", cat))
	s.coord.Resubmit(cat)
}

func (s *Session) showDetail(args []string) {
	if len(args) != 1 {
		s.printf("%s\n", warnColor.Sprint("Usage: /detail <number>"))
		return
	}
	n, err := strconv.Atoi(args[0])
	st := s.coord.State()
	if err != nil || !search.Selectable(st, n-1) {
		s.printf("%s\n", warnColor.Sprintf("No result number %s", args[0]))
		return
	}

	r := st.ResultSet.Results[n-1]
	s.print(func(w io.Writer) { renderDetail(w, r, s.tag) })

	url := r.ArtworkLargeURL
	if url == "" {
		url = r.ArtworkSmallURL
	}
	if url == "" {
		s.detail.Reuse()
		return
	}
	s.loader.Load(&s.detail, url, func(data []byte) {
		info, err := artwork.Describe(data)
		if err != nil {
			logger.Debug("artwork not decoded", "url", url, "error", err)
			return
		}
		s.printf("  Artwork: %s\n", info)
	})
}

func (s *Session) showHistory(args []string) {
	if s.store == nil {
		s.printf("%s\n", dimColor.Sprint("Search history is disabled"))
		return
	}

	if len(args) > 0 && args[0] == "delete" {
		if len(args) != 2 {
			s.printf("%s\n", warnColor.Sprint("Usage: /history delete <id>"))
			return
		}
		if err := s.store.Delete(args[1]); err != nil {
			s.printf("%s\n", errColor.Sprintf("Failed to delete history entry: %v", err))
			return
		}
		s.printf("%s\n", okColor.Sprint("History entry deleted"))
		return
	}

	if len(args) > 0 && args[0] == "clear" {
		if err := s.store.Clear(); err != nil {
			s.printf("%s\n", errColor.Sprintf("Failed to clear history: %v", err))
			return
		}
		s.printf("%s\n", okColor.Sprint("Search history cleared"))
		return
	}

	limit := s.cfg.History.MaxEntries
	var (
		entries []*history.Entry
		err     error
	)
	if len(args) > 0 {
		entries, err = s.store.Find(strings.Join(args, " "), limit)
	} else {
		entries, err = s.store.Recent(limit)
	}
	if err != nil {
		s.printf("%s\n", errColor.Sprintf("Failed to load history: %v", err))
		return
	}
	s.print(func(w io.Writer) { renderHistory(w, entries) })
}

// RecordState stores a settled search in store.
func RecordState(store history.Store, st search.State) error {
	if !st.Kind.Settled() {
		return nil
	}
	return store.Record(&history.Entry{
		Term:        strings.TrimSpace(st.Submission.Text),
		Category:    st.Submission.Category.String(),
		Outcome:     st.Kind.String(),
		ResultCount: st.ResultSet.Len(),
	})
}

// printHelp prints help information
func printHelp(w io.Writer) {
	fmt.Fprintf(w, `
%s

%s
  <text>             - Search the iTunes Store
  /all /music        - Switch category and search again
  /software /ebooks
  /category [name]   - Show or switch the category (name or 0-3)
  /results           - Show the current results again
  /detail <n>        - Show details for result n
  /history [text]    - Show recent searches, optionally filtered
  /history delete <id> - Delete one search from history
  /history clear     - Clear search history
  /config            - Show current configuration
  /help              - Show this help message
  /exit              - Exit program

%s
  - Use Up/Down arrow keys to browse input history
  - Use Tab to complete commands
  - Press Ctrl+C to cancel current input

`, titleColor.Sprint("StoreSearch Help"), warnColor.Sprint("Commands:"), warnColor.Sprint("Input Tips:"))
}
