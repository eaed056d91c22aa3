package nodes

import (
	"context"
	"fmt"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/fieldpath"
	"github.com/aretw0/slotflow/pkg/ports"
)

// Validation status values written under <path>.validation_status.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// ValidateConfig configures a Validate node.
type ValidateConfig struct {
	Validator ports.Validator
	// Path is the record to validate, e.g. "customer".
	Path string
	// Fields restricts validation to a subset of the record.
	Fields    []string
	OnFailure FailurePolicy
}

// ErrValidation is wrapped in the *NodeError returned under FailRaise.
type ErrValidation struct {
	Violations []domain.Violation
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("%d validation violation(s)", len(e.Violations))
}

// Validate checks a record against a schema.
type Validate struct {
	base
	validator ports.Validator
	path      fieldpath.Path
	status    fieldpath.Path
	fields    []string
	onFailure FailurePolicy
}

// NewValidate validates cfg and builds the node. OnFailure defaults to FailLog.
func NewValidate(name string, cfg ValidateConfig, opts ...Option) (*Validate, error) {
	path, err := parsePath("path", cfg.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Validator == nil {
		return nil, configError("validate %s: validator is required", name)
	}
	if cfg.OnFailure == "" {
		cfg.OnFailure = FailLog
	}
	if !cfg.OnFailure.valid() {
		return nil, configError("validate %s: unknown failure policy %q", name, cfg.OnFailure)
	}
	return &Validate{
		base:      newBase(name, opts),
		validator: cfg.Validator,
		path:      path,
		status:    path.Child("validation_status"),
		fields:    cfg.Fields,
		onFailure: cfg.OnFailure,
	}, nil
}

func (n *Validate) Run(ctx context.Context, st *domain.State) error {
	log := n.logger.With("conversation_id", st.ConversationID, "path", n.path.String())

	record := fieldpath.Record(st.Slots, n.path)
	if record == nil {
		st.AddError(domain.TagValidationNoData(n.path.String()))
		log.Warn("no data to validate")
		return nil
	}

	subject := record
	if len(n.fields) > 0 {
		subject = make(map[string]any, len(n.fields))
		for _, f := range n.fields {
			if v, ok := record[f]; ok {
				subject[f] = v
			}
		}
	}

	violations, err := n.validator.Validate(ctx, copyRecord(subject))
	if err != nil {
		tag := domain.TagValidationError(n.path.String())
		st.AddError(tag)
		log.Error("validator failed", "error", err)
		if n.onFailure == FailRaise {
			return n.fail(tag, err)
		}
		return nil
	}

	if len(violations) > 0 {
		for _, v := range violations {
			st.AddError(domain.TagValidationFailed(n.path.String(), v.Field, v.Kind))
		}
		log.Warn("validation failed", "violations", len(violations), "policy", string(n.onFailure))

		switch n.onFailure {
		case FailClear:
			st.Set(n.path, nil)
		case FailRaise:
			st.Set(n.status, StatusFailed)
			return n.fail(domain.TagValidationFailed(n.path.String(), violations[0].Field, violations[0].Kind), &ErrValidation{Violations: violations})
		default:
			st.Set(n.status, StatusFailed)
		}
		return nil
	}

	merged := copyRecord(record)
	if norm, ok := n.validator.(ports.Normalizer); ok {
		normalized, err := norm.Normalize(copyRecord(subject))
		if err != nil {
			log.Warn("normalization failed, keeping raw record", "error", err)
		} else {
			// Only keys that were validated are written back, so fields the
			// record never had stay absent.
			for k, v := range normalized {
				if _, ok := subject[k]; ok {
					merged[k] = v
				}
			}
		}
	}
	merged["validation_status"] = StatusPassed
	st.Set(n.path, merged)
	log.Info("validation passed")
	return nil
}
