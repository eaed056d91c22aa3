package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type pausedLister interface {
	Paused(ctx context.Context, step string) ([]string, error)
}

// ListConversations returns stored conversation ids. A non-empty step keeps
// only the conversations paused there.
func ListConversations(ctx context.Context, app *App, step string) ([]string, error) {
	if step == "" {
		return app.Engine.Conversations(ctx)
	}
	if pl, ok := app.Store.(pausedLister); ok {
		return pl.Paused(ctx, step)
	}

	ids, err := app.Engine.Conversations(ctx)
	if err != nil {
		return nil, err
	}
	var paused []string
	for _, id := range ids {
		st, err := app.Engine.Conversation(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", id, err)
		}
		if st.CurrentStep == step {
			paused = append(paused, id)
		}
	}
	return paused, nil
}

// WriteConversation prints one conversation as "json" or "yaml".
func WriteConversation(ctx context.Context, app *App, id, format string, w io.Writer) error {
	st, err := app.Engine.Conversation(ctx, id)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
