// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the samkit evidence operations as tools over stdio, so a language
// model driver can decide which extraction to run.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/samkit/internal/workspace"
	"github.com/joshuapare/samkit/pkg/sam"
)

// SchemasURI is the resource holding the active record layouts.
const SchemasURI = "samkit://schemas"

// Server wraps the MCP server with samkit tools.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
}

func partitionArg() mcp.ToolOption {
	return mcp.WithNumber("partition_id", mcp.Required(), mcp.Description("1-based partition index, as in /p1"))
}

func ridArg() mcp.ToolOption {
	return mcp.WithNumber("rid", mcp.Required(), mcp.Description("Account relative identifier, e.g. 500 for Administrator"))
}

// New creates a new MCP server with all samkit tools registered.
func New(ws *workspace.Workspace, version string) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"samkit",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_volume_information",
		mcp.WithDescription("Report the evidence container's kind and size."),
	), s.volumeInfo)

	s.mcp.AddTool(mcp.NewTool("get_partitions_with_windows",
		mcp.WithDescription("Scan the container's partitions and list those whose root looks like a Windows installation, with their root listing."),
	), s.partitions)

	s.mcp.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List a directory inside a partition."),
		partitionArg(),
		mcp.WithString("path", mcp.Description("Forward-slash path inside the partition (default /)")),
	), s.listDirectory)

	s.mcp.AddTool(mcp.NewTool("extract_sam",
		mcp.WithDescription("Copy the SAM hive of a partition into the work directory. Later lookups read the copy."),
		partitionArg(),
	), s.extractHive("SAM"))

	s.mcp.AddTool(mcp.NewTool("extract_security",
		mcp.WithDescription("Copy the SECURITY hive of a partition into the work directory."),
		partitionArg(),
	), s.extractHive("SECURITY"))

	s.mcp.AddTool(mcp.NewTool("get_usernames_and_rids",
		mcp.WithDescription("List account names and their RIDs from a partition's SAM hive."),
		partitionArg(),
	), s.usernames)

	s.mcp.AddTool(mcp.NewTool("get_user_f_value_data_with_rid",
		mcp.WithDescription("Decode the fixed-layout F value of an account: logon times, counters, RID and account control mask."),
		partitionArg(), ridArg(),
	), s.fValue)

	s.mcp.AddTool(mcp.NewTool("get_user_f_value_flags_with_rid",
		mcp.WithDescription("Decode the userAccountControl flags stored in an account's F value."),
		partitionArg(), ridArg(),
	), s.flags)

	s.mcp.AddTool(mcp.NewTool("get_user_v_value_data_with_rid",
		mcp.WithDescription("Decode the V value of an account: username, full name, comments, home directory and similar strings."),
		partitionArg(), ridArg(),
	), s.vValue)

	s.mcp.AddTool(mcp.NewTool("get_user_emails",
		mcp.WithDescription("Collect and parse the mail files in an account's Windows Mail store."),
		partitionArg(), ridArg(),
	), s.emails)

	s.mcp.AddResource(
		mcp.NewResource(SchemasURI, "Record schemas",
			mcp.WithResourceDescription("F value, V value and account control flag layouts used by the decoders."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readSchemas,
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

func partitionOf(req mcp.CallToolRequest) (int, error) {
	p, err := req.RequireInt("partition_id")
	if err != nil {
		return 0, err
	}
	if p < 1 {
		return 0, fmt.Errorf("partition_id must be at least 1, got %d", p)
	}
	return p, nil
}

func ridOf(req mcp.CallToolRequest) (sam.RID, error) {
	r, err := req.RequireInt("rid")
	if err != nil {
		return 0, err
	}
	if r < 0 || int64(r) > math.MaxUint32 {
		return 0, fmt.Errorf("rid %d out of range", r)
	}
	return sam.RID(r), nil
}

func (s *Server) volumeInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.ws.VolumeInfo(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) partitions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.ws.Partitions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) listDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := partitionOf(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.ws.List(ctx, p, req.GetString("path", "/"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) extractHive(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := partitionOf(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		x, err := s.ws.ExtractHive(ctx, p, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(x)
	}
}

func (s *Server) usernames(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := partitionOf(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names, err := s.ws.ListAccounts(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(names)
}

// accountRequest reads the partition_id and rid arguments.
func accountRequest(req mcp.CallToolRequest) (int, sam.RID, error) {
	p, err := partitionOf(req)
	if err != nil {
		return 0, 0, err
	}
	rid, err := ridOf(req)
	if err != nil {
		return 0, 0, err
	}
	return p, rid, nil
}

func (s *Server) fValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, rid, err := accountRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.ws.UserFValue(ctx, p, rid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) flags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, rid, err := accountRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.ws.UserFlags(ctx, p, rid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) vValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, rid, err := accountRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.ws.UserVValue(ctx, p, rid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) emails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, rid, err := accountRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	arts, err := s.ws.UserEmails(ctx, p, rid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(arts)
}

func (s *Server) readSchemas(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := yaml.Marshal(s.ws.Config().Schemas)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemasURI,
			MIMEType: "application/yaml",
			Text:     string(out),
		},
	}, nil
}
