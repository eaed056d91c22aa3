package nodes

import (
	"context"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
)

func stateWith(message string, history ...string) *domain.State {
	st := domain.NewState("conv-1")
	for i, h := range history {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		st.AppendTurn(role, h)
	}
	st.BeginTurn(message)
	return st
}

func fixedExtractor(ex domain.Extraction, err error) ports.Extractor {
	return ports.ExtractorFunc(func(context.Context, []domain.Turn, string) (domain.Extraction, error) {
		return ex, err
	})
}

func slowExtractor(d time.Duration) ports.Extractor {
	return ports.ExtractorFunc(func(ctx context.Context, _ []domain.Turn, _ string) (domain.Extraction, error) {
		select {
		case <-time.After(d):
			return domain.Extraction{Value: "late"}, nil
		case <-ctx.Done():
			return domain.Extraction{}, ctx.Err()
		}
	})
}

// tableExtractor returns a fixed extraction per message.
func tableExtractor(table map[string]domain.Extraction) ports.Extractor {
	return ports.ExtractorFunc(func(_ context.Context, _ []domain.Turn, msg string) (domain.Extraction, error) {
		return table[msg], nil
	})
}
