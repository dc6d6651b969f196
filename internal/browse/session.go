// Package browse runs an interactive, line based artworks table on a
// terminal.
package browse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/artic-table/internal/render"
	"github.com/Sternrassler/artic-table/pkg/client"
	"github.com/Sternrassler/artic-table/pkg/pagination"
	"github.com/Sternrassler/artic-table/pkg/selection"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

const helpText = `commands:
  n, next            next page
  p, prev            previous page
  g, page N          go to page N
  t, toggle ID...    toggle rows
  a, all [on|off]    header checkbox: check or clear every row on this page
  s, select N        select the first N rows, continuing on later pages
  selected           list selected ids
  r, refresh         redraw the table
  h, help            show this help
  q, quit            exit`

// Session reads commands and redraws the table after every change.
type Session struct {
	driver *pagination.Driver
	table  *render.Table
	out    io.Writer
	logger zerolog.Logger
	id     string

	// dirty is set by selector events and cleared by redraw.
	dirty       bool
	unsubscribe func()
}

// New creates a session writing to out.
func New(driver *pagination.Driver, out io.Writer, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		driver: driver,
		table:  render.New(),
		out:    out,
		logger: logger.With().Str("component", "browse").Str("session_id", id).Logger(),
		id:     id,
	}
	s.unsubscribe = driver.Subscribe(func(selection.Event) {
		s.dirty = true
	})
	return s
}

// ID returns the session id used in log entries.
func (s *Session) ID() string {
	return s.id
}

// Run loads the first page and processes commands from in until quit, end
// of input or ctx cancellation.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	defer s.unsubscribe()

	s.logger.Info().Msg("Browse session started")
	defer s.logger.Info().Msg("Browse session ended")

	s.report(s.driver.Load(ctx, 1))
	s.redraw()
	s.prompt()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if err := s.Execute(ctx, line); errors.Is(err, ErrQuit) {
				return nil
			}
			s.prompt()
		}
	}
}

// Execute runs a single command line. Command failures are printed, not
// returned; only ErrQuit is returned.
func (s *Session) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	s.logger.Debug().Str("command", cmd).Strs("args", args).Msg("Command")

	switch cmd {
	case "q", "quit", "exit":
		return ErrQuit

	case "h", "help", "?":
		fmt.Fprintln(s.out, helpText)
		return nil

	case "r", "refresh":
		s.redraw()
		return nil

	case "n", "next":
		s.navigate(s.driver.Next(ctx))

	case "p", "prev":
		s.navigate(s.driver.Prev(ctx))

	case "g", "page":
		page, ok := s.positive(args, "page number")
		if !ok {
			return nil
		}
		s.navigate(s.driver.GoTo(ctx, page))

	case "t", "toggle":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "usage: toggle ID...")
			return nil
		}
		for _, arg := range args {
			id, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintf(s.out, "not an id: %q\n", arg)
				continue
			}
			s.driver.Toggle(id, !s.driver.IsSelected(id))
		}

	case "a", "all":
		checked := !s.driver.AllChecked()
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "on":
				checked = true
			case "off":
				checked = false
			default:
				fmt.Fprintln(s.out, "usage: all [on|off]")
				return nil
			}
		}
		s.driver.ToggleAll(checked)

	case "s", "select":
		n, ok := s.positive(args, "number of rows")
		if !ok {
			return nil
		}
		tr, err := s.driver.RequestSelection(ctx, n)
		s.report(err)
		if err == nil && tr.Shortfall > 0 {
			fmt.Fprintf(s.out, "only %d rows available, %d not selected\n", n-int(tr.Shortfall), tr.Shortfall)
		}

	case "selected":
		ids := s.driver.Selected()
		if len(ids) == 0 {
			fmt.Fprintln(s.out, "nothing selected")
			return nil
		}
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(s.out, "%d selected: %s\n", len(ids), strings.Join(strs, " "))
		return nil

	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", cmd)
		return nil
	}

	if s.dirty {
		s.redraw()
	}
	return nil
}

// navigate redraws after a successful page change.
func (s *Session) navigate(err error) {
	if s.report(err) {
		s.redraw()
	}
}

// positive parses the first argument as a positive integer. Anything else
// prints a hint and leaves the state untouched.
func (s *Session) positive(args []string, what string) (int, bool) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "expected a %s\n", what)
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		fmt.Fprintf(s.out, "%s must be a positive number\n", what)
		return 0, false
	}
	return n, true
}

// report prints err for the user and reports whether it was nil. Stale
// responses are not errors from the user's point of view.
func (s *Session) report(err error) bool {
	var fe *client.FetchError
	switch {
	case err == nil:
		return true
	case errors.Is(err, pagination.ErrStaleResponse):
		return false
	case errors.Is(err, pagination.ErrNoPage):
		fmt.Fprintln(s.out, "no such page")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(s.out, "cancelled")
	case errors.As(err, &fe):
		fmt.Fprintf(s.out, "failed to load page %d: %v\n", fe.Page, fe.Err)
	default:
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *Session) redraw() {
	s.dirty = false

	page := s.driver.Page()
	view := s.driver.View()
	state := s.driver.State()

	if err := s.table.Page(s.out, page, s.driver.IsSelected, s.driver.AllChecked()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to render table")
		return
	}

	status := render.Status{
		CurrentPage: view.CurrentPage,
		TotalPages:  view.TotalPages,
		Selected:    state.Selection.Count(),
		Pending:     int(state.Pending),
		Loading:     s.driver.Loading(),
	}
	if page != nil {
		status.Total = page.Pagination.Total
	}
	fmt.Fprintln(s.out, status.String())
}

func (s *Session) prompt() {
	fmt.Fprint(s.out, "> ")
}
