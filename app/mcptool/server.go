package mcptool

import (
	"careerai/app/service/advisor"
	"careerai/app/service/profile"
	"careerai/app/service/roadmap"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const version = "1.0.0"

type Server struct {
	advisor *advisor.Service
	roadmap *roadmap.Service
	mcp     *mcpserver.MCPServer
}

func NewServer(advisorService *advisor.Service, roadmapService *roadmap.Service) *Server {
	s := &Server{
		advisor: advisorService,
		roadmap: roadmapService,
		mcp:     mcpserver.NewMCPServer("careerai", version, mcpserver.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(
		do.MustInvoke[*advisor.Service](di),
		do.MustInvoke[*roadmap.Service](di),
	), nil
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcpgo.NewTool("career_advice",
			mcpgo.WithDescription("Ask the career counsellor. Pass the student's latest message and, optionally, the earlier conversation as a JSON array of objects with role (user or assistant) and text fields."),
			mcpgo.WithString("message", mcpgo.Required(), mcpgo.Description("Latest student message")),
			mcpgo.WithString("history", mcpgo.Description("JSON array of earlier turns, oldest first")),
		),
		s.careerAdvice,
	)

	s.mcp.AddTool(
		mcpgo.NewTool("list_roadmap_items",
			mcpgo.WithDescription("List a user's saved roadmap items, newest first."),
			mcpgo.WithString("user_id", mcpgo.Required(), mcpgo.Description("Owner of the roadmap")),
		),
		s.listRoadmapItems,
	)

	s.mcp.AddTool(
		mcpgo.NewTool("add_roadmap_item",
			mcpgo.WithDescription("Save a step to a user's roadmap. The item is marked as ai-generated."),
			mcpgo.WithString("user_id", mcpgo.Required(), mcpgo.Description("Owner of the roadmap")),
			mcpgo.WithString("title", mcpgo.Required(), mcpgo.Description("Short step title")),
			mcpgo.WithString("description", mcpgo.Description("What to do")),
			mcpgo.WithString("priority", mcpgo.Enum("high", "medium", "low")),
			mcpgo.WithString("estimated_time", mcpgo.Description("e.g. 2 weeks")),
		),
		s.addRoadmapItem,
	)
}

type turnArg struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func parseHistory(raw string) ([]profile.Turn, error) {
	if raw == "" {
		return nil, nil
	}

	var args []turnArg
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid history JSON: %w", err)
	}

	turns := make([]profile.Turn, 0, len(args))
	for _, arg := range args {
		role, ok := profile.ParseRole(arg.Role)
		if !ok {
			continue
		}
		turns = append(turns, profile.Turn{Role: role, Text: arg.Text})
	}
	return turns, nil
}

func (s *Server) careerAdvice(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	history, err := parseHistory(req.GetString("history", ""))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	reply, err := s.advisor.GenerateReply(ctx, message, history)
	if errors.Is(err, advisor.ErrUnavailable) {
		return mcpgo.NewToolResultError(advisor.UnavailableMessage(err)), nil
	}
	if err != nil {
		return nil, err
	}

	return mcpgo.NewToolResultText(reply.Reply), nil
}

func (s *Server) listRoadmapItems(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	items, err := s.roadmap.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return jsonResult(items), nil
}

func (s *Server) addRoadmapItem(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	item, err := s.roadmap.Create(ctx, userID, roadmap.CreateInput{
		Title:         title,
		Description:   req.GetString("description", ""),
		Priority:      roadmap.Priority(req.GetString("priority", "")),
		EstimatedTime: req.GetString("estimated_time", ""),
		Source:        roadmap.SourceAIGenerated,
	})
	if errors.Is(err, roadmap.ErrInvalid) || errors.Is(err, roadmap.ErrUnauthenticated) {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Roadmap item added over MCP", "id", item.ID)

	return jsonResult(item), nil
}

func jsonResult(v any) *mcpgo.CallToolResult {
	result, err := json.Marshal(v)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcpgo.NewToolResultText(string(result))
}
