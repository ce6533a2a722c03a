// Package mcp exposes a storeflow flow to AI agents as a Model Context
// Protocol server. Agents can validate and draw the graph, and play a
// simulated conversation whose replies are returned instead of delivered.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/storeflow"
	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/internal/presentation/graph"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/input"
	"github.com/aretw0/storeflow/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// GraphURI is the resource holding the Mermaid graph of the flow.
const GraphURI = "storeflow://graph"

// Engine is the part of the storeflow engine the simulator drives.
type Engine interface {
	StartNode() string
	EnterNode(ctx context.Context, userID, code string) error
	HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error)
	HandlePressData(ctx context.Context, userID, data string) error
	Validate(ctx context.Context) (*storeflow.Report, error)
}

// SimulationResponse is what the engine sent back during one tool call.
type SimulationResponse struct {
	Handled bool    `json:"handled" jsonschema_description:"False when the message did not fit the current node"`
	Replies []Reply `json:"replies" jsonschema_description:"Messages the user and admins would have received"`
}

// ValidationResponse mirrors a validation report.
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	config    ports.ConfigurationStore
	replies   *transcript
	logger    *slog.Logger
	mcpServer *server.MCPServer

	// mu keeps one simulation at a time so replies are not interleaved.
	mu sync.Mutex
}

type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server. newEngine must build the engine over
// the transport it is given, which records replies for the tool results.
func NewServer(config ports.ConfigurationStore, newEngine func(ports.Transport) Engine, opts ...Option) *Server {
	s := &Server{
		config:    config,
		replies:   &transcript{},
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("storeflow-mcp", strings.TrimSpace(storeflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = newEngine(s.replies)
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("enter_node",
		mcp.WithDescription("Enter a node as a simulated user. Without node_code the start node is entered."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Simulated user id")),
		mcp.WithString("node_code", mcp.Description("Node to enter (optional)")),
		mcp.WithOutputSchema[SimulationResponse](),
	), mcp.NewStructuredToolHandler(s.handleEnterNode))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a text message as a simulated user, e.g. the answer to an input node."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Simulated user id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[SimulationResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("press_button",
		mcp.WithDescription("Press a button returned by a previous call, using its data."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Simulated user id")),
		mcp.WithString("data", mcp.Required(), mcp.Description("The data of the button")),
		mcp.WithOutputSchema[SimulationResponse](),
	), mcp.NewStructuredToolHandler(s.handlePressButton))

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Check the flow for dangling targets and other configuration errors."),
		mcp.WithOutputSchema[ValidationResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the flow as a Mermaid graph."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := s.graph(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	})
}

func (s *Server) handleEnterNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SimulationResponse, error) {
	userID, _ := args["user_id"].(string)
	code, _ := args["node_code"].(string)
	if userID == "" {
		return SimulationResponse{}, errors.New("user_id is required")
	}
	return s.simulate(func() (bool, error) {
		return true, s.engine.EnterNode(ctx, userID, code)
	})
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SimulationResponse, error) {
	userID, _ := args["user_id"].(string)
	text, _ := args["text"].(string)
	if userID == "" {
		return SimulationResponse{}, errors.New("user_id is required")
	}

	clean, err := input.Sanitize(text)
	if err != nil {
		s.logger.Warn("MCP message rejected", "err", err, "size", len(text))
		return SimulationResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return s.simulate(func() (bool, error) {
		return s.engine.HandleMessage(ctx, userID, domain.Message{Text: clean})
	})
}

func (s *Server) handlePressButton(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SimulationResponse, error) {
	userID, _ := args["user_id"].(string)
	data, _ := args["data"].(string)
	if userID == "" {
		return SimulationResponse{}, errors.New("user_id is required")
	}
	return s.simulate(func() (bool, error) {
		return true, s.engine.HandlePressData(ctx, userID, data)
	})
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResponse, error) {
	report, err := s.engine.Validate(ctx)
	if err != nil {
		return ValidationResponse{}, fmt.Errorf("validate failed: %w", err)
	}
	return ValidationResponse{
		Valid:    len(report.Errors) == 0,
		Errors:   nonNil(report.Errors),
		Warnings: nonNil(report.Warnings),
	}, nil
}

func (s *Server) simulate(run func() (bool, error)) (SimulationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replies.reset()
	handled, err := run()
	if err != nil {
		return SimulationResponse{}, err
	}
	replies := s.replies.take()
	s.logger.Debug("MCP simulation done", "handled", handled, "replies", len(replies))
	return SimulationResponse{Handled: handled, Replies: replies}, nil
}

func (s *Server) graph(ctx context.Context) (string, error) {
	nodes, err := s.config.ListEnabledNodes(ctx)
	if err != nil {
		return "", err
	}
	return graph.GenerateMermaid(nodes, s.engine.StartNode()), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Flow graph",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.graph(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to draw graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     text,
			},
		}, nil
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
