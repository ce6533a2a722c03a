package console

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/input"
)

// Conversation is the part of the engine the chat loop drives.
type Conversation interface {
	HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error)
	HandlePress(ctx context.Context, userID string, p domain.Press) error
	EnterNode(ctx context.Context, userID, code string) error
}

// Chat reads lines from in and plays them as userID until EOF, /quit or ctx
// is done. Text answers the pending input first; otherwise a number presses
// a button of the last menu. /start goes home, /go CODE enters a node and
// /contact PHONE shares a contact.
func Chat(ctx context.Context, in io.Reader, t *Transport, conv Conversation, userID string) error {
	if err := conv.EnterNode(ctx, userID, ""); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line, err := input.Sanitize(strings.TrimSpace(scanner.Text()))
		if err != nil {
			t.note("(" + err.Error() + ")")
			continue
		}
		if line == "" {
			continue
		}

		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "/quit", "/exit":
			return nil
		case "/start":
			err = conv.EnterNode(ctx, userID, "")
		case "/go":
			err = conv.EnterNode(ctx, userID, strings.TrimSpace(arg))
		case "/contact":
			_, err = conv.HandleMessage(ctx, userID, domain.Message{Contact: &domain.Contact{PhoneNumber: strings.TrimSpace(arg)}})
		default:
			err = play(ctx, t, conv, userID, line)
		}
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}

func play(ctx context.Context, t *Transport, conv Conversation, userID, line string) error {
	handled, err := conv.HandleMessage(ctx, userID, domain.Message{Text: line})
	if err != nil || handled {
		return err
	}

	if n, err := strconv.Atoi(line); err == nil {
		if b, ok := t.Choice(n); ok {
			if p, ok := b.Press(); ok {
				return conv.HandlePress(ctx, userID, p)
			}
			t.note("open " + b.Target)
			return nil
		}
	}
	t.note("(pick an option from the menu)")
	return nil
}
