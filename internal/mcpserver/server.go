// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the companion's catalog and progress tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hours/internal/apperr"
	"github.com/starford/hours/internal/filter"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/overlay"
	"github.com/starford/hours/internal/progress"
)

// PrinciplesURI is the resource listing the principles.
const PrinciplesURI = "boh://principles"

// Progress is the progress store the tools read and update.
type Progress interface {
	View(ctx context.Context) (*progress.View, error)
	UserData(ctx context.Context) (models.UserData, error)
	SetSkillLevel(ctx context.Context, id string, level int) (models.Skill, error)
}

// Server wraps the MCP server with the companion tools.
type Server struct {
	mcp      *server.MCPServer
	progress Progress
}

// New creates a new MCP server with all tools registered.
func New(p Progress, version string) *Server {
	s := &Server{progress: p}

	s.mcp = server.NewMCPServer(
		"Hours",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List catalog items. With principles given, items are ordered by the first "+
			"listed principle they have, then by amount, highest first."),
		mcp.WithBoolean("known", mcp.Description("Only items the player knows")),
		mcp.WithString("principles", mcp.Description("Comma-separated principles, e.g. lantern,forge")),
		mcp.WithString("aspects", mcp.Description("Comma-separated aspect ids; items need at least one")),
		mcp.WithBoolean("include_zero", mcp.Description("Treat a principle with value 0 as present")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("list_skills",
		mcp.WithDescription("List skills with the player's levels. Without principles, only learned skills are listed."),
		mcp.WithString("principles", mcp.Description("Comma-separated principles")),
		mcp.WithBoolean("by_level", mcp.Description("Sort by level, highest first")),
	), s.listSkills)

	s.mcp.AddTool(mcp.NewTool("list_workstations",
		mcp.WithDescription("List workstations, slots in index order, filtered by principles and slot aspects."),
		mcp.WithString("principles", mcp.Description("Comma-separated principles")),
		mcp.WithString("aspects", mcp.Description("Comma-separated aspect ids")),
	), s.listWorkstations)

	s.mcp.AddTool(mcp.NewTool("get_user_data",
		mcp.WithDescription("Return the player's known items, learned skills and known recipes."),
	), s.getUserData)

	s.mcp.AddTool(mcp.NewTool("set_skill_level",
		mcp.WithDescription("Set a skill's level. Level 0 forgets the skill."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Skill id, e.g. s.bells_and_brazen_bells")),
		mcp.WithNumber("level", mcp.Required(), mcp.Description("New level, 0 or more")),
	), s.setSkillLevel)

	s.mcp.AddResource(
		mcp.NewResource(PrinciplesURI, "Principles",
			mcp.WithResourceDescription("The principles in canonical order."),
			mcp.WithMIMEType("application/json"),
		),
		s.readPrinciplesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePrinciples(s string) ([]models.Principle, error) {
	var out []models.Principle
	for _, name := range splitList(s) {
		p, err := models.ParsePrinciple(strings.ToLower(name))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principles, err := parsePrinciples(req.GetString("principles", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.progress.View(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := filter.Items(view.Items, filter.Spec{
		Known:       req.GetBool("known", false),
		Principles:  principles,
		Aspects:     splitList(req.GetString("aspects", "")),
		IncludeZero: req.GetBool("include_zero", false),
	})
	if items == nil {
		items = []models.Item{}
	}
	return jsonResult(items)
}

func (s *Server) listSkills(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principles, err := parsePrinciples(req.GetString("principles", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.progress.View(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	skills := overlay.SortSkills(filter.Skills(view.Skills, principles), req.GetBool("by_level", false))
	if skills == nil {
		skills = []models.Skill{}
	}
	return jsonResult(skills)
}

func (s *Server) listWorkstations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principles, err := parsePrinciples(req.GetString("principles", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.progress.View(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws := filter.Workstations(view.Catalog.Workstations, principles, splitList(req.GetString("aspects", "")))
	if ws == nil {
		ws = []models.Workstation{}
	}
	return jsonResult(ws)
}

func (s *Server) getUserData(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ud, err := s.progress.UserData(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ud)
}

func (s *Server) setSkillLevel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	level, err := req.RequireInt("level")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	skill, err := s.progress.SetSkillLevel(ctx, id, level)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown skill: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(skill)
}

func (s *Server) readPrinciplesResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	view, err := s.progress.View(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(view.Catalog.Principles)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PrinciplesURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
