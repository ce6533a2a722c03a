// Package console is a terminal Transport and chat loop for trying flows
// locally. Keyboards are printed as numbered menus; typing the number presses
// the button.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/storeflow/internal/presentation/tui"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Transport prints deliveries to a writer.
type Transport struct {
	mu       sync.Mutex
	out      io.Writer
	render   func(string) (string, error)
	profile  termenv.Profile
	keyboard []domain.Button
	userID   string
}

type Option func(*Transport)

// WithMarkdown forces Markdown rendering on or off. By default it is on when
// the output is a terminal.
func WithMarkdown(enabled bool) Option {
	return func(t *Transport) {
		if !enabled {
			t.render = nil
			return
		}
		t.render = newRenderer()
	}
}

// WithUser limits output to messages addressed to userID and admin messages.
func WithUser(userID string) Option {
	return func(t *Transport) {
		t.userID = userID
	}
}

// New creates a console transport writing to out.
func New(out io.Writer, opts ...Option) *Transport {
	t := &Transport{out: out, profile: termenv.Ascii}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.render = newRenderer()
		t.profile = termenv.ColorProfile()
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newRenderer() func(string) (string, error) {
	return tui.NewRenderer()
}

func (t *Transport) DeliverNode(ctx context.Context, userID string, d domain.Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.addressed(userID) {
		return nil
	}
	if d.Image != "" {
		fmt.Fprintln(t.out, t.dim("[image] "+d.Image))
	}
	t.print(d.Text, d.ParseMode)
	t.menu(d.Rows)
	return nil
}

func (t *Transport) RequestContact(ctx context.Context, userID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.addressed(userID) {
		return nil
	}
	t.print(text, domain.ParsePlain)
	t.menu(nil)
	fmt.Fprintln(t.out, t.dim("(share a contact with /contact <phone>)"))
	return nil
}

func (t *Transport) RequestLocation(ctx context.Context, userID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.addressed(userID) {
		return nil
	}
	t.print(text, domain.ParsePlain)
	t.menu(nil)
	fmt.Fprintln(t.out, t.dim("(locations cannot be shared from the console)"))
	return nil
}

func (t *Transport) SendMessage(ctx context.Context, userID, text string, rows [][]domain.Button) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.addressed(userID) {
		return nil
	}
	t.print(text, domain.ParsePlain)
	t.menu(rows)
	return nil
}

func (t *Transport) SendAdminMessage(ctx context.Context, text string, rows [][]domain.Button) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tag := t.profile.String("[admin]").Foreground(t.profile.Color("#f472b6")).Bold()
	fmt.Fprintf(t.out, "%s %s\n", tag, text)
	for _, row := range rows {
		for _, b := range row {
			fmt.Fprintf(t.out, "  - %s %s\n", b.Label, t.dim(b.Target))
		}
	}
	return nil
}

// Choice returns the n-th button (1-based) of the last keyboard shown.
func (t *Transport) Choice(n int) (domain.Button, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 1 || n > len(t.keyboard) {
		return domain.Button{}, false
	}
	return t.keyboard[n-1], true
}

func (t *Transport) addressed(userID string) bool {
	return t.userID == "" || t.userID == userID
}

func (t *Transport) print(text string, mode domain.ParseMode) {
	if t.render != nil && mode != domain.ParseHTML {
		if out, err := t.render(text); err == nil {
			fmt.Fprint(t.out, out)
			return
		}
	}
	fmt.Fprintln(t.out, text)
}

// menu prints rows as numbered entries and remembers them for Choice.
// An empty keyboard clears the previous one.
func (t *Transport) menu(rows [][]domain.Button) {
	t.keyboard = t.keyboard[:0]
	for _, row := range rows {
		var parts []string
		for _, b := range row {
			t.keyboard = append(t.keyboard, b)
			label := t.profile.String(b.Label).Foreground(t.profile.Color("#818cf8")).String()
			parts = append(parts, fmt.Sprintf("[%d] %s", len(t.keyboard), label))
		}
		fmt.Fprintln(t.out, "  "+strings.Join(parts, "  "))
	}
}

func (t *Transport) dim(s string) string {
	return t.profile.String(s).Faint().String()
}

// note prints a dimmed hint line.
func (t *Transport) note(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.dim(s))
}
