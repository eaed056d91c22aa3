package flows

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/graph"
	"github.com/aretw0/slotflow/pkg/httpcall"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/aretw0/slotflow/pkg/ports"
)

// BookingConfig configures NewBooking.
type BookingConfig struct {
	Transport ports.Transport
	Catalog   ports.RequestBuilder

	// Extractor and Priority drive name extraction. Extractor may be nil.
	Extractor ports.Extractor
	Priority  nodes.Priority
	// NameThreshold defaults to DefaultNameThreshold.
	NameThreshold      float64
	ExtractionTimeout  time.Duration
	PrimaryConfidence  float64
	FallbackConfidence float64

	Doer        ports.Doer
	RetryCount  int
	CallTimeout time.Duration
	Backoff     httpcall.Backoff
	Hooks       domain.LifecycleHooks
	Logger      *slog.Logger
}

// NewBooking assembles the reference booking graph: capture the customer's
// name, let them pick a service from the catalog and confirm the choice.
func NewBooking(cfg BookingConfig, opts ...graph.Option) (*graph.Graph, error) {
	nodeOpts := []nodes.Option{nodes.WithLogger(cfg.Logger)}

	known, err := nodes.NewCondition("has_name", ports.PredicateFunc(func(st *domain.State) (bool, error) {
		return graph.Has("customer.first_name")(st), nil
	}), nodeOpts...)
	if err != nil {
		return nil, err
	}
	services, err := NewServiceSelection("service_selection", ServiceSelectionConfig{
		Catalog:    cfg.Catalog,
		Transport:  cfg.Transport,
		Doer:       cfg.Doer,
		RetryCount: cfg.RetryCount,
		Timeout:    cfg.CallTimeout,
		Backoff:    cfg.Backoff,
		Hooks:      cfg.Hooks,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	send, err := nodes.NewDispatch("send_confirmation", nodes.DispatchConfig{
		Message:   ConfirmationMessage(SelectedServicePath),
		Transport: cfg.Transport,
	}, nodeOpts...)
	if err != nil {
		return nil, err
	}

	confirmed := fieldpath.MustParse(BookingConfirmedPath)
	confirm := nodes.Func("confirm_booking", func(ctx context.Context, st *domain.State) error {
		if err := send.Run(ctx, st); err != nil {
			return err
		}
		if !st.HasError(domain.TagSendFailed) && !st.HasError(domain.TagMessageBuilderError) {
			st.Set(confirmed, true)
		}
		return nil
	})

	b := graph.New()
	b.Add(known).
		When(graph.ConditionIs(true), services.Name()).Label("name known").
		Go(NameCaptureEntry)
	if err := AddNameCapture(b, NameCaptureConfig{
		Primary:   cfg.Extractor,
		Priority:  cfg.Priority,
		Timeout:   cfg.ExtractionTimeout,
		Threshold: cfg.NameThreshold,
		Transport: cfg.Transport,
		Logger:    cfg.Logger,

		PrimaryConfidence:  cfg.PrimaryConfidence,
		FallbackConfidence: cfg.FallbackConfidence,
	}, services.Name()); err != nil {
		return nil, err
	}
	b.Add(services).
		When(awaitingConfirmation, confirm.Name()).Label("service selected").
		Go(graph.END)
	b.Add(confirm)
	b.Resume(services.Step(), services.Name())

	if cfg.Logger != nil {
		opts = append([]graph.Option{graph.WithLogger(cfg.Logger)}, opts...)
	}
	return b.Build(opts...)
}

// awaitingConfirmation holds once a service is selected until the
// confirmation has been delivered.
func awaitingConfirmation(st *domain.State) bool {
	return graph.Has(SelectedServicePath)(st) && !graph.Has(BookingConfirmedPath)(st)
}
