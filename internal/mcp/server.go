// Package mcp provides the stdio MCP server exposing family tree tools to
// agents.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/silsilah/internal/buildinfo"
	"github.com/go-ports/silsilah/internal/family"
	"github.com/go-ports/silsilah/internal/models"
	"github.com/go-ports/silsilah/internal/render"
	"github.com/go-ports/silsilah/internal/service"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

const treeDescription = `Build the family tree from every stored member. Returns the root strategy and the nested forest as JSON, or an indented text tree when format is "text". Members that could not be placed are listed under "unplaced".`

const addDescription = `Add a family member. The id is allocated (M1, M2, ...) when omitted. Parents and spouses are referenced by member id; they do not need to exist yet.`

// NewServer creates and registers all family tools on a new MCP server.
// It is separate from Serve so that tests can obtain a configured server
// without committing to the stdio transport.
func NewServer(svc *service.Service) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("silsilah", buildinfo.Version)
	registerTools(s, svc)
	return s
}

// Serve runs the stdio MCP server on in/out until in closes or ctx ends.
func Serve(ctx context.Context, svc *service.Service, in io.Reader, out io.Writer) error {
	return mcpserver.NewStdioServer(NewServer(svc)).Listen(ctx, in, out)
}

// registerTools wires all four MCP tools into the server.
func registerTools(s *mcpserver.MCPServer, svc *service.Service) {
	s.AddTool(mcp.NewTool("family_tree",
		mcp.WithDescription(treeDescription),
		mcp.WithString("format",
			mcp.Description("json (default) or text."),
			mcp.Enum("json", "text"),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTree(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("member_add",
		mcp.WithDescription(addDescription),
		mcp.WithString("name", mcp.Description("Full name."), mcp.Required()),
		mcp.WithString("id", mcp.Description("Member id. Allocated when omitted.")),
		mcp.WithString("gender", mcp.Description("male (default) or female."), mcp.Enum("male", "female")),
		mcp.WithNumber("birth_year", mcp.Description("Year of birth.")),
		mcp.WithNumber("death_year", mcp.Description("Year of death.")),
		mcp.WithBoolean("is_deceased", mcp.Description("Whether the member has died.")),
		mcp.WithString("father_id", mcp.Description("Member id of the father.")),
		mcp.WithString("mother_id", mcp.Description("Member id of the mother.")),
		mcp.WithArray("spouse_ids",
			mcp.Description("Member ids of spouses."),
			mcp.WithStringItems(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAdd(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("member_generation",
		mcp.WithDescription("Return the generation level of a member: 0 for a member with no known parent, otherwise one more than the parent's level."),
		mcp.WithString("member", mcp.Description("Member id (e.g. M12) or document id."), mcp.Required()),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGeneration(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("member_search",
		mcp.WithDescription("Find members whose name contains the query, case-insensitively."),
		mcp.WithString("query", mcp.Description("Part of a name."), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearch(ctx, svc, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleTree(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	forest, err := svc.Tree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if req.GetString("format", "json") == "text" {
		var buf bytes.Buffer
		r := render.New(&buf, render.ThemeLight, svc.Translator())
		if err := r.Forest(forest.Roots); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := r.Summary(forest.Report, forest.Members); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}

	body := map[string]any{
		"strategy": forest.Report.Strategy,
		"members":  forest.Members,
		"roots":    forest.Roots,
	}
	if len(forest.Report.Unplaced) > 0 {
		body["unplaced"] = forest.Report.Unplaced
	}
	return jsonResult(body)
}

func handleAdd(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	in := &models.MemberInput{
		ID:         req.GetString("id", ""),
		Name:       name,
		Gender:     req.GetString("gender", ""),
		BirthYear:  optionalYear(args, "birth_year"),
		DeathYear:  optionalYear(args, "death_year"),
		IsDeceased: req.GetBool("is_deceased", false),
		FatherID:   req.GetString("father_id", ""),
		MotherID:   req.GetString("mother_id", ""),
		SpouseIDs:  req.GetStringSlice("spouse_ids", make([]string, 0)),
	}

	res, err := svc.AddMember(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func handleGeneration(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, level, err := svc.Generation(ctx, req.GetString("member", ""))
	if errors.Is(err, family.ErrParentCycle) {
		return mcp.NewToolResultError(fmt.Sprintf("%v (level %d reached before the cycle)", err, level)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"id":         m.ID,
		"doc_id":     m.DocID,
		"name":       m.Name,
		"generation": level,
	})
}

func handleSearch(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clampLimit(req.GetInt("limit", defaultSearchLimit))
	members, err := svc.Search(ctx, req.GetString("query", ""), limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	clean := make([]map[string]any, 0, len(members))
	for i := range members {
		m := &members[i]
		clean = append(clean, map[string]any{
			"id":          m.ID,
			"doc_id":      m.DocID,
			"name":        m.Name,
			"gender":      m.Gender,
			"birth_year":  m.BirthYear,
			"is_deceased": m.IsDeceased,
		})
	}
	return jsonResult(clean)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// optionalYear reads a numeric argument, returning nil when it is absent,
// not a number, or zero.
func optionalYear(args map[string]any, key string) *int {
	var y int
	switch v := args[key].(type) {
	case float64:
		y = int(v)
	case int:
		y = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil
		}
		y = int(n)
	default:
		return nil
	}
	if y == 0 {
		return nil
	}
	return &y
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultSearchLimit
	case n > maxSearchLimit:
		return maxSearchLimit
	default:
		return n
	}
}
