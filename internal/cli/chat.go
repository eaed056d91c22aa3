package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/slotflow/internal/presentation/tui"
	"gopkg.in/yaml.v3"
)

// endOfInput is appended to the input stream; the router maps it to the
// end of the session once every earlier line has been handled.
const endOfInput = "\x04"

// ChatOptions configures an interactive session.
type ChatOptions struct {
	ConversationID string
	In             io.Reader
	Out            io.Writer
	// Render formats replies. Nil prints them as-is.
	Render tui.Renderer
	// Signals lets the session react to Ctrl+C: the first press prints a
	// hint, the second leaves.
	Signals bool
}

// Chat reads one message per line from In, feeds it to the engine and
// prints the replies. Lines starting with "/" are commands:
//
//	/quit    leave the session
//	/reset   forget the conversation
//	/state   print the saved state as YAML
//
// Chat returns nil on /quit, io.EOF when In is exhausted and the context
// error when ctx is cancelled.
func Chat(parent context.Context, app *App, opts ChatOptions) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s := &chatSession{
		app:    app,
		id:     opts.ConversationID,
		out:    opts.Out,
		render: opts.Render,
		cancel: cancel,
	}
	if s.render == nil {
		s.render = tui.Plain
	}

	if st, err := app.Engine.Conversation(ctx, s.id); err == nil && st.CurrentStep != "" {
		printSystemMessage(s.out, "Resuming '%s' at %s.", s.id, st.CurrentStep)
	} else {
		printSystemMessage(s.out, "Conversation '%s' active. Type /quit to leave.", s.id)
	}
	s.prompt()

	router := newChatRouter(s, opts)
	if err := router.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out)
	if s.eof {
		return io.EOF
	}
	return parent.Err()
}

// newChatRouter wires the session into a lifecycle router: mapped commands,
// a passthrough handler for messages and the shutdown bridge.
func newChatRouter(s *chatSession, opts ChatOptions) *lifecycle.Router {
	quit := lifecycle.ShutdownEvent{Reason: "manual"}
	return lifecycle.NewInteractiveRouter(
		lifecycle.WithSignal(opts.Signals),
		lifecycle.WithInputOptions(
			lifecycle.WithInputReader(&eofMarker{r: opts.In}),
			lifecycle.WithInputMappings(map[string]lifecycle.Event{
				"/quit": quit,
				"/exit": quit,
			}),
		),
		lifecycle.WithCommand("/reset", lifecycle.HandlerFunc(s.reset)),
		lifecycle.WithCommand("/state", lifecycle.HandlerFunc(s.state)),
		lifecycle.WithCommand(endOfInput, lifecycle.HandlerFunc(s.endOfInput)),
		lifecycle.WithDefaultHandler(lifecycle.HandlerFunc(s.message)),
		lifecycle.WithInterruptHandler(lifecycle.HandlerFunc(func(context.Context, lifecycle.Event) error {
			fmt.Fprintln(s.out)
			printSystemMessage(s.out, "Press Ctrl+C again or type /quit to leave.")
			s.prompt()
			return nil
		})),
		lifecycle.WithShutdown(s.cancel),
	)
}

type chatSession struct {
	app    *App
	id     string
	out    io.Writer
	render tui.Renderer
	cancel context.CancelFunc
	// eof is only touched by the router's dispatch goroutine.
	eof bool
}

func (s *chatSession) prompt() {
	fmt.Fprint(s.out, "> ")
}

func (s *chatSession) message(ctx context.Context, e lifecycle.Event) error {
	ev, ok := e.(lifecycle.LineEvent)
	if !ok {
		return lifecycle.ErrNotHandled
	}
	line := strings.TrimSpace(ev.Line)
	if line == "" || ctx.Err() != nil {
		return nil
	}
	defer s.prompt()

	st, _, err := s.app.Engine.Handle(ctx, s.id, line)
	if err != nil {
		printSystemMessage(s.out, "Error: %v", err)
	}
	if st == nil {
		return nil
	}
	if s.app.Outbox == nil {
		printSystemMessage(s.out, "Reply delivered to transport.")
		return nil
	}
	for _, reply := range s.app.Outbox.Drain(s.id) {
		text, rErr := s.render(reply)
		if rErr != nil {
			text = reply
		}
		fmt.Fprintln(s.out, text)
	}
	return nil
}

func (s *chatSession) reset(ctx context.Context, _ lifecycle.Event) error {
	if ctx.Err() != nil {
		return nil
	}
	defer s.prompt()
	if err := s.app.Engine.Reset(ctx, s.id); err != nil {
		printSystemMessage(s.out, "Reset failed: %v", err)
		return nil
	}
	printSystemMessage(s.out, "Conversation '%s' reset.", s.id)
	return nil
}

func (s *chatSession) state(ctx context.Context, _ lifecycle.Event) error {
	if ctx.Err() != nil {
		return nil
	}
	defer s.prompt()
	if err := printState(ctx, s.app, s.id, s.out); err != nil {
		printSystemMessage(s.out, "%v", err)
	}
	return nil
}

func (s *chatSession) endOfInput(ctx context.Context, _ lifecycle.Event) error {
	if ctx.Err() == nil {
		s.eof = true
	}
	s.cancel()
	return nil
}

// eofMarker passes r through and, once r is exhausted, yields a single
// endOfInput line before reporting io.EOF itself.
type eofMarker struct {
	r    io.Reader
	tail *strings.Reader
}

func (m *eofMarker) Read(p []byte) (int, error) {
	if m.tail == nil {
		n, err := m.r.Read(p)
		if err != io.EOF {
			return n, err
		}
		m.tail = strings.NewReader("\n" + endOfInput + "\n")
		if n > 0 {
			return n, nil
		}
	}
	return m.tail.Read(p)
}

func printState(ctx context.Context, app *App, id string, out io.Writer) error {
	st, err := app.Engine.Conversation(ctx, id)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return err
	}
	return enc.Close()
}
