// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes fuma tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fuma/internal/bruno"
	"github.com/starford/fuma/internal/docservice"
	"github.com/starford/fuma/internal/rules"
)

const formatURI = "fuma://component-format"

// Server wraps the MCP server with fuma tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all fuma tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"fuma-content",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("compile_mdx",
		mcp.WithDescription("Compile an MDX source to HTML. Registered component tags are "+
			"returned with their decoded properties. Read the component contract first via "+
			"the get_component_contract tool or the "+formatURI+" resource."),
		mcp.WithString("source", mcp.Required(), mcp.Description("MDX source, optionally starting with YAML frontmatter")),
	), s.compileMDX)

	s.mcp.AddTool(mcp.NewTool("bundle_collection",
		mcp.WithDescription("Bundle the served collection into a JSON tree of folders and files."),
	), s.bundleCollection)

	s.mcp.AddTool(mcp.NewTool("parse_bru",
		mcp.WithDescription("Parse a Bruno .bru request file and return its normalised content object."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw .bru file content")),
		mcp.WithString("path", mcp.Description("Optional source path recorded as meta.sourcePath")),
	), s.parseBru)

	s.mcp.AddTool(mcp.NewTool("list_docs",
		mcp.WithDescription("List the MDX documents under the served root."),
	), s.listDocs)

	s.mcp.AddTool(mcp.NewTool("read_doc",
		mcp.WithDescription("Read the raw source of an MDX document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. guides/intro.mdx)")),
	), s.readDoc)

	s.mcp.AddTool(mcp.NewTool("get_component_contract",
		mcp.WithDescription("Returns the component tag format contract and the registered component ids. "+
			"Call this before writing MDX that uses components."),
	), s.getComponentContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Component Format Contract",
			mcp.WithResourceDescription("How components are written as MDX tags."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) compileMDX(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Compile(source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	components := res.Components
	if components == nil {
		components = []*rules.ComponentNode{}
	}
	return jsonResult(map[string]any{
		"html":        res.Content,
		"frontmatter": res.Frontmatter,
		"components":  components,
	})
}

func (s *Server) bundleCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	col, err := s.svc.Collection(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(col)
}

func (s *Server) parseBru(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := req.GetString("path", "")
	obj, err := bruno.Decode(path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(obj)
}

func (s *Server) listDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListDocs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(items))
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDoc(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(doc.Source), nil
}

func (s *Server) contract() string {
	ids := s.svc.ComponentIDs()
	if len(ids) == 0 {
		return ComponentFormatContract + "\n## Registered components\n\nNone.\n"
	}
	var b strings.Builder
	b.WriteString(ComponentFormatContract)
	b.WriteString("\n## Registered components\n\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "- `%s`\n", id)
	}
	return b.String()
}

func (s *Server) getComponentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.contract()), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     s.contract(),
		},
	}, nil
}
