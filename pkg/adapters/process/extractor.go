// Package process runs an external command as the primary extractor.
//
// The command receives a JSON Request on stdin and must print a
// domain.Extraction as JSON on stdout:
//
//	{"message": "I'm Ravi", "history": [{"role": "user", "content": "hi"}]}
//	{"fields": {"first_name": "Ravi"}, "confidence": 0.92}
//
// Anything else on stdout, a non-zero exit or a timeout is an extraction
// failure, which lets the caller fall back to its deterministic matcher.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
)

// EnvPrefix namespaces the variables set from Config.Env.
const EnvPrefix = "SLOTFLOW_ARG_"

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = time.Second

// maxStderr bounds how much stderr is quoted in errors.
const maxStderr = 512

// ErrNoCommand is returned by New without a command.
var ErrNoCommand = errors.New("process extractor: command is required")

// Config describes the command to run.
type Config struct {
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args"`
	Dir     string            `yaml:"dir" json:"dir"`
	Env     map[string]string `yaml:"env" json:"env"`
}

// Request is written to the command's stdin.
type Request struct {
	Message string        `json:"message"`
	History []domain.Turn `json:"history"`
}

// Extractor implements ports.Extractor by running a process per call.
type Extractor struct {
	cfg Config
	env []string
}

// New creates an Extractor. Env keys become SLOTFLOW_ARG_<KEY> variables.
func New(cfg Config) (*Extractor, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, ErrNoCommand
	}
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+v)
	}
	return &Extractor{cfg: cfg, env: env}, nil
}

// Extract runs the command once. The context bounds its lifetime.
func (e *Extractor) Extract(ctx context.Context, history []domain.Turn, message string) (domain.Extraction, error) {
	if history == nil {
		history = []domain.Turn{}
	}
	in, err := json.Marshal(Request{Message: message, History: history})
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.cfg.Command, e.cfg.Args...)
	cmd.Dir = e.cfg.Dir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(cmd.Environ(), e.env...)
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Extraction{}, ctxErr
		}
		return domain.Extraction{}, fmt.Errorf("%s failed: %w: %s", e.cfg.Command, err, truncate(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return domain.Extraction{}, nil
	}
	var ex domain.Extraction
	if err := json.Unmarshal(out, &ex); err != nil {
		return domain.Extraction{}, fmt.Errorf("%s printed invalid output: %w", e.cfg.Command, err)
	}
	if ex.Confidence < 0 || ex.Confidence > 1 {
		return domain.Extraction{}, fmt.Errorf("%s reported confidence %v outside [0,1]", e.cfg.Command, ex.Confidence)
	}
	return ex, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}
