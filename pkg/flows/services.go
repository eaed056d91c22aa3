package flows

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/httpcall"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Slots and markers used by the service selection group.
const (
	StepServiceSelection = "awaiting_service_selection"

	ServicesResponsePath = "services_response"
	ServiceOptionsPath   = "service_options"
	SelectedServicePath  = "selected_service"
	// BookingConfirmedPath is set once the confirmation has been sent.
	BookingConfirmedPath = "booking_confirmed"
	SelectionErrorPath   = "selection_error"
)

// ErrNoServices is returned when a catalog response carries no service list.
var ErrNoServices = errors.New("no service list in response")

// ServiceSelectionConfig configures NewServiceSelection.
type ServiceSelectionConfig struct {
	// Catalog builds the request that fetches the service list.
	Catalog   ports.RequestBuilder
	Transport ports.Transport

	Doer       ports.Doer
	RetryCount int
	Timeout    time.Duration
	Backoff    httpcall.Backoff
	Hooks      domain.LifecycleHooks
	Logger     *slog.Logger
}

// CatalogRequest fetches the catalog with a GET on endpoint. When the state holds
// vehicle.type it is sent as the vehicle_type query parameter.
func CatalogRequest(endpoint string) ports.RequestBuilder {
	vehicle := fieldpath.MustParse("vehicle.type")
	return ports.RequestBuilderFunc(func(st *domain.State) (domain.Request, error) {
		req := domain.Request{Method: http.MethodGet, URL: endpoint}
		if v, ok := st.Get(vehicle).(string); ok && v != "" {
			req.Query = url.Values{"vehicle_type": {v}}
		}
		return req, nil
	})
}

// UnwrapServices finds the service list in the shapes catalog backends
// return: {message: {services}}, {services}, {data: {services}}, {message: [...]}
// or a bare list.
var UnwrapServices = ports.TransformerFunc(func(value any, _ *domain.State) (any, error) {
	if list := asList(value); list != nil {
		return list, nil
	}
	body, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNoServices
	}
	for _, raw := range []string{"message.services", "services", "data.services", "message"} {
		if list := asList(fieldpath.Get(body, fieldpath.MustParse(raw))); list != nil {
			return list, nil
		}
	}
	return nil, ErrNoServices
})

// NewServiceSelection builds the service selection group. On a fresh visit it
// fetches the catalog, shows it and pauses at StepServiceSelection. The reply
// is resolved by a numbered selector; an invalid reply is answered with the
// selection error and the group stays paused.
func NewServiceSelection(name string, cfg ServiceSelectionConfig) (*nodes.Group, error) {
	if cfg.Catalog == nil || cfg.Transport == nil {
		return nil, fmt.Errorf("%w: %s: catalog and transport are required", nodes.ErrInvalidConfig, name)
	}
	opts := []nodes.Option{nodes.WithLogger(cfg.Logger)}

	fetch, err := nodes.NewCall("fetch_services", nodes.CallConfig{
		Request:    cfg.Catalog,
		ResultPath: ServicesResponsePath,
		Doer:       cfg.Doer,
		RetryCount: cfg.RetryCount,
		Timeout:    cfg.Timeout,
		Backoff:    cfg.Backoff,
		Hooks:      cfg.Hooks,
	}, opts...)
	if err != nil {
		return nil, err
	}
	unwrap, err := nodes.NewTransform("extract_services", nodes.TransformConfig{
		Transformer: UnwrapServices,
		Source:      ServicesResponsePath,
		Target:      ServiceOptionsPath,
		OnEmpty:     nodes.EmptyDefault,
	}, opts...)
	if err != nil {
		return nil, err
	}
	show, err := nodes.NewDispatch("show_catalog", nodes.DispatchConfig{
		Message:   CatalogMessage(ServiceOptionsPath),
		Transport: cfg.Transport,
	}, opts...)
	if err != nil {
		return nil, err
	}
	sendError, err := nodes.NewDispatch("send_selection_error", nodes.DispatchConfig{
		Message:   ErrorMessage(SelectionErrorPath, ""),
		Transport: cfg.Transport,
	}, opts...)
	if err != nil {
		return nil, err
	}
	sel, err := NewSelector(SelectionConfig{
		Options:  ServiceOptionsPath,
		Selected: SelectedServicePath,
		Error:    SelectionErrorPath,
		LabelKey: "product_name",
	})
	if err != nil {
		return nil, err
	}

	options := fieldpath.MustParse(ServiceOptionsPath)
	selected := fieldpath.MustParse(SelectedServicePath)
	return nodes.NewGroup(name, nodes.GroupConfig{
		Step: StepServiceSelection,
		Ready: ports.PredicateFunc(func(st *domain.State) (bool, error) {
			return len(asList(st.Get(options))) > 0, nil
		}),
		Completed: ports.PredicateFunc(func(st *domain.State) (bool, error) {
			return fieldpath.Exists(st.Slots, selected), nil
		}),
		Fresh:  []nodes.Node{fetch, unwrap, show},
		Select: sel,
		Retry:  []nodes.Node{sendError},
	}, opts...)
}
