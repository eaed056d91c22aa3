package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/httpcall"
	"github.com/aretw0/slotflow/pkg/ports"
)

// CallConfig configures a Call node.
type CallConfig struct {
	Request ports.RequestBuilder
	// ResultPath receives the parsed payload; <ResultPath>_metadata receives
	// {status_code, url, method, attempt}.
	ResultPath string
	// Parser defaults to DefaultParser.
	Parser    ports.ResponseParser
	OnFailure FailurePolicy

	// Doer defaults to a plain *http.Client.
	Doer       ports.Doer
	RetryCount int
	Timeout    time.Duration
	Backoff    httpcall.Backoff
	Hooks      domain.LifecycleHooks
}

// DefaultParser decodes a JSON body and falls back to the raw text.
var DefaultParser = ports.ResponseParserFunc(func(resp *domain.Response) (any, error) {
	if len(resp.Body) == 0 {
		return nil, nil
	}
	if json.Valid(resp.Body) {
		var v any
		if err := json.Unmarshal(resp.Body, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return string(resp.Body), nil
})

// Call performs an external request and stores the parsed result.
type Call struct {
	base
	builder   ports.RequestBuilder
	parser    ports.ResponseParser
	result    fieldpath.Path
	meta      fieldpath.Path
	onFailure FailurePolicy
	exec      *httpcall.Executor
}

// NewCall validates cfg and builds the node. OnFailure defaults to FailLog and
// RetryCount to httpcall.DefaultAttempts.
func NewCall(name string, cfg CallConfig, opts ...Option) (*Call, error) {
	result, err := parsePath("result path", cfg.ResultPath)
	if err != nil {
		return nil, err
	}
	if cfg.Request == nil {
		return nil, configError("call %s: request builder is required", name)
	}
	if cfg.OnFailure == "" {
		cfg.OnFailure = FailLog
	}
	if !cfg.OnFailure.valid() {
		return nil, configError("call %s: unknown failure policy %q", name, cfg.OnFailure)
	}
	if cfg.RetryCount < 0 {
		return nil, configError("call %s: negative retry count", name)
	}
	if cfg.Parser == nil {
		cfg.Parser = DefaultParser
	}

	n := &Call{
		base:      newBase(name, opts),
		builder:   cfg.Request,
		parser:    cfg.Parser,
		result:    result,
		meta:      result.WithSuffix("_metadata"),
		onFailure: cfg.OnFailure,
	}

	execOpts := []httpcall.Option{
		httpcall.WithLogger(n.logger),
		httpcall.WithHooks(cfg.Hooks),
		httpcall.WithBackoff(cfg.Backoff),
	}
	if cfg.Doer != nil {
		execOpts = append(execOpts, httpcall.WithDoer(cfg.Doer))
	}
	if cfg.RetryCount > 0 {
		execOpts = append(execOpts, httpcall.WithAttempts(cfg.RetryCount))
	}
	if cfg.Timeout > 0 {
		execOpts = append(execOpts, httpcall.WithTimeout(cfg.Timeout))
	}
	n.exec = httpcall.New(execOpts...)
	return n, nil
}

func (n *Call) Run(ctx context.Context, st *domain.State) error {
	log := n.logger.With("conversation_id", st.ConversationID, "path", n.result.String())

	req, err := n.builder.BuildRequest(st)
	if err != nil {
		tag := domain.TagRequestBuilderError(n.result.String())
		st.AddError(tag)
		log.Error("request builder failed", "error", err)
		if n.onFailure == FailRaise {
			return n.fail(tag, err)
		}
		return nil
	}

	res, err := n.exec.Do(ctx, httpcall.Call{Node: n.name, ConversationID: st.ConversationID, Request: req})
	var payload any
	if err == nil {
		payload, err = n.parser.ParseResponse(res.Response)
		if err != nil {
			err = fmt.Errorf("parse response: %w", err)
		}
	}
	if err != nil {
		tag := domain.TagCallFailed(n.result.String())
		st.AddError(tag)
		log.Error("external call failed", "attempts", res.Attempts, "error", err)
		switch n.onFailure {
		case FailClear:
			st.Set(n.result, nil)
		case FailRaise:
			return n.fail(tag, err)
		}
		return nil
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	st.Set(n.result, payload)
	st.Set(n.meta, map[string]any{
		"status_code": res.Response.StatusCode,
		"url":         req.URL,
		"method":      strings.ToUpper(method),
		"attempt":     res.Attempts,
	})
	log.Info("external call succeeded", "status", res.Response.StatusCode, "attempt", res.Attempts)
	return nil
}
