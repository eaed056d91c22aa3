package flows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fallback"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/graph"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Slots, markers and node names used by the name capture flow.
const (
	StepName = "awaiting_name"

	CustomerPath      = "customer"
	NameCapturePath   = "name_capture"
	NameCandidatePath = "name_capture.candidate"
	NameMetaPath      = "name_capture.meta"

	NameCaptureEntry = "reset_name_capture"

	DefaultNameThreshold = 0.7
)

// NameCaptureConfig configures AddNameCapture.
type NameCaptureConfig struct {
	// Primary is optional; the regex name fallback is always available.
	Primary   ports.Extractor
	Priority  nodes.Priority
	Timeout   time.Duration
	Threshold float64
	Transport ports.Transport
	// Zero confidences select the extraction defaults.
	PrimaryConfidence  float64
	FallbackConfidence float64
	// Greeting is sent once a name is known; Prompt asks for it otherwise.
	Greeting ports.MessageBuilder
	Prompt   ports.MessageBuilder
	Logger   *slog.Logger
}

// DefaultGreeting greets the customer by first name.
var DefaultGreeting = ports.MessageBuilderFunc(func(st *domain.State) (string, error) {
	first, _ := fieldpath.Get(st.Slots, fieldpath.MustParse("customer.first_name")).(string)
	if first == "" {
		return "", fmt.Errorf("customer has no first name")
	}
	return fmt.Sprintf("Nice to meet you, %s!", first), nil
})

// DefaultPrompt asks for the customer's name.
var DefaultPrompt = ports.MessageBuilderFunc(func(*domain.State) (string, error) {
	return "Before we continue, may I have your name?", nil
})

// AddNameCapture adds the name capture nodes to b:
//
//	reset -> extract -> gate -(low)-> scan -> merge -> greet -> next
//	                         -(high)--------^        \-> ask (pauses at StepName)
//
// A low-confidence or missing extraction is retried against recent history.
// The candidate only reaches customer through the confidence merge, so an
// acknowledgement like "thanks" cannot overwrite a name captured earlier.
// Replies to the prompt resume at NameCaptureEntry.
func AddNameCapture(b *graph.Builder, cfg NameCaptureConfig, next string) error {
	if cfg.Transport == nil {
		return fmt.Errorf("%w: name capture: transport is required", nodes.ErrInvalidConfig)
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultNameThreshold
	}
	if cfg.Greeting == nil {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.Prompt == nil {
		cfg.Prompt = DefaultPrompt
	}
	opts := []nodes.Option{nodes.WithLogger(cfg.Logger)}

	extract, err := nodes.NewExtract("extract_name", nodes.ExtractConfig{
		Field:        NameCandidatePath,
		Primary:      cfg.Primary,
		Fallback:     fallback.Name{},
		Priority:     cfg.Priority,
		Timeout:      cfg.Timeout,
		MetadataPath: NameMetaPath,
		Record:       true,

		PrimaryConfidence:  cfg.PrimaryConfidence,
		FallbackConfidence: cfg.FallbackConfidence,
	}, opts...)
	if err != nil {
		return err
	}
	gate, err := nodes.NewGate("name_gate", nodes.GateConfig{
		ConfidencePath: NameMetaPath + ".confidence",
		Threshold:      cfg.Threshold,
	}, opts...)
	if err != nil {
		return err
	}
	scanner := cfg.Primary
	if scanner == nil {
		scanner = ports.FallbackExtractor(fallback.Name{})
	}
	scan, err := nodes.NewScan("scan_name", nodes.ScanConfig{
		Extractor:     scanner,
		Field:         NameCandidatePath,
		SkipIfExists:  true,
		Timeout:       cfg.Timeout,
		UserTurnsOnly: true,
		Record:        true,
	}, opts...)
	if err != nil {
		return err
	}
	merge, err := nodes.NewMerge("merge_name", nodes.MergeConfig{
		Path:   CustomerPath,
		Source: nameSource(),
	}, opts...)
	if err != nil {
		return err
	}
	greet, err := nodes.NewDispatch("greet_customer", nodes.DispatchConfig{
		Message:   cfg.Greeting,
		Transport: cfg.Transport,
	}, opts...)
	if err != nil {
		return err
	}
	prompt, err := nodes.NewDispatch("prompt_name", nodes.DispatchConfig{
		Message:   cfg.Prompt,
		Transport: cfg.Transport,
	}, opts...)
	if err != nil {
		return err
	}

	capture := fieldpath.MustParse(NameCapturePath)
	b.Add(nodes.Func(NameCaptureEntry, func(_ context.Context, st *domain.State) error {
		fieldpath.Delete(st.Slots, capture)
		if st.CurrentStep == StepName {
			st.Resolve()
		}
		return nil
	})).Go(extract.Name())
	b.Add(extract).Go(gate.Name())
	b.Add(gate).
		When(graph.Decision(gate.Name(), nodes.DecisionLow), scan.Name()).Label("low confidence").
		Go(merge.Name())
	b.Add(scan).Go(merge.Name())
	b.Add(merge).
		When(graph.Has("customer.first_name"), greet.Name()).Label("name known").
		Go("ask_name")
	b.Add(greet).Go(next)
	b.Add(nodes.Func("ask_name", func(ctx context.Context, st *domain.State) error {
		if err := prompt.Run(ctx, st); err != nil {
			return err
		}
		st.Pause(StepName)
		return nil
	}))
	b.Resume(StepName, NameCaptureEntry)
	return nil
}

// nameSource stages the candidate for the merge. A scanned candidate carries
// its scan confidence; otherwise the extraction confidence applies.
func nameSource() nodes.MergeSource {
	candidate := fieldpath.MustParse(NameCandidatePath)
	scanConf := candidate.WithSuffix("_scan_metadata").Child("confidence")
	extractConf := fieldpath.MustParse(NameMetaPath + ".confidence")
	return func(st *domain.State) (nodes.MergeInput, bool) {
		rec, ok := st.Get(candidate).(map[string]any)
		if !ok || len(rec) == 0 {
			return nodes.MergeInput{}, false
		}
		conf, ok := fieldpath.Float(st.Slots, scanConf)
		if !ok {
			conf, _ = fieldpath.Float(st.Slots, extractConf)
		}
		return nodes.MergeInput{Data: rec, Confidence: conf, Turn: st.Turn}, true
	}
}
