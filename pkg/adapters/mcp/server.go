// Package mcp exposes a slotflow Engine as a Model Context Protocol server,
// so an agent can drive conversations as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ConversationsURI lists the stored conversation ids.
const ConversationsURI = "slotflow://conversations"

const shutdownTimeout = 5 * time.Second

// TurnResponse is the structured result of send_message and get_conversation.
type TurnResponse struct {
	State   *domain.State    `json:"state" jsonschema_description:"The saved conversation state"`
	Diff    *domain.TurnDiff `json:"diff,omitempty" jsonschema_description:"What the message changed"`
	Replies []string         `json:"replies,omitempty" jsonschema_description:"Messages sent to the user during the turn"`
	Waiting string           `json:"waiting,omitempty" jsonschema_description:"The step awaiting the user's answer, empty when not paused"`
}

// Engine is the part of *slotflow.Engine the server needs.
type Engine interface {
	Handle(ctx context.Context, conversationID, message string) (*domain.State, *domain.TurnDiff, error)
	Conversation(ctx context.Context, conversationID string) (*domain.State, error)
	Reset(ctx context.Context, conversationID string) error
	Conversations(ctx context.Context) ([]string, error)
}

// Server wraps the Engine in an MCP server.
type Server struct {
	engine    Engine
	replies   func(conversationID string) []string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithReplies attaches outbound messages, e.g. memory.Outbox.Drain, to send_message results.
func WithReplies(fn func(conversationID string) []string) Option {
	return func(s *Server) { s.replies = fn }
}

// WithLogger sets the logger. Stdio servers must not log to stdout.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("slotflow-mcp", strings.TrimSpace(slotflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over server-sent events until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	lifecycle.Go(ctx, func(context.Context) error {
		s.logger.Info("mcp_listening", "transport", "sse", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
		return nil
	})

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send one user message to a conversation and run the workflow until it pauses or finishes."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Stable conversation id, e.g. a phone number")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Read the saved state of a conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetConversation))

	s.mcpServer.AddTool(mcp.NewTool("reset_conversation",
		mcp.WithDescription("Forget a conversation so the next message starts fresh."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("conversation_id", "")
		if err := s.engine.Reset(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("conversation %s reset", id)), nil
	})
}

func (s *Server) handleSendMessage(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	id, _ := args["conversation_id"].(string)
	message, _ := args["message"].(string)

	state, diff, err := s.engine.Handle(ctx, id, message)
	if state == nil {
		s.logger.Warn("mcp_send_message_rejected", "conversation_id", id, "error", err)
		return TurnResponse{}, fmt.Errorf("message rejected: %w", err)
	}
	resp := TurnResponse{State: state, Diff: diff, Waiting: state.CurrentStep}
	if s.replies != nil {
		resp.Replies = s.replies(id)
	}
	if err != nil {
		s.logger.Error("mcp_send_message_failed", "conversation_id", id, "error", err)
		return resp, err
	}
	return resp, nil
}

func (s *Server) handleGetConversation(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	id, _ := args["conversation_id"].(string)
	state, err := s.engine.Conversation(ctx, id)
	if err != nil {
		return TurnResponse{}, err
	}
	return TurnResponse{State: state, Waiting: state.CurrentStep}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ConversationsURI, "Stored conversations",
		mcp.WithMIMEType("application/json"),
	), s.readConversations)
}

func (s *Server) readConversations(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.engine.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConversationsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
