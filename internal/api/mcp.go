package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/profileai/internal/export"
	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/session"
	"github.com/kalambet/profileai/internal/templates"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session *session.Session
	Exports ExportService // optional; if nil, export_resume and share_resume return an error
}

// NewMCPServer creates an MCP server with the resume editing tools and the
// current document resource registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"profileai",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("profileai: edit the resume being built, choose a template and preview it."),
		server.WithRecovery(),
	)

	kinds := mcp.Enum("experience", "education", "skills")

	s.AddTool(
		mcp.NewTool("update_personal_info",
			mcp.WithDescription("Set one personal info field of the resume."),
			mcp.WithString("field", mcp.Description("One of fullName, email, phone, address, summary"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
		),
		mcpUpdatePersonalInfo(deps),
	)

	s.AddTool(
		mcp.NewTool("add_entry",
			mcp.WithDescription("Append an empty entry to a resume section and return its id."),
			mcp.WithString("kind", mcp.Description("Section to add to"), kinds, mcp.Required()),
		),
		mcpAddEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("update_entry",
			mcp.WithDescription("Set one field of an existing entry."),
			mcp.WithString("kind", mcp.Description("Section of the entry"), kinds, mcp.Required()),
			mcp.WithString("id", mcp.Description("Entry id"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Field name, e.g. jobTitle, degree, level"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value; skill level is a number 0-100"), mcp.Required()),
		),
		mcpUpdateEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_entry",
			mcp.WithDescription("Delete an entry from a resume section."),
			mcp.WithString("kind", mcp.Description("Section of the entry"), kinds, mcp.Required()),
			mcp.WithString("id", mcp.Description("Entry id"), mcp.Required()),
		),
		mcpRemoveEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("select_template",
			mcp.WithDescription("Choose the template used for previews and exports. An empty id clears the choice."),
			mcp.WithString("template_id", mcp.Description("Template id from list_templates")),
		),
		mcpSelectTemplate(deps),
	)

	s.AddTool(
		mcp.NewTool("list_templates",
			mcp.WithDescription("List resume templates, optionally filtered by a search query and category."),
			mcp.WithString("query", mcp.Description("Case-insensitive match on title or category")),
			mcp.WithString("category", mcp.Description("Category name, or \"all\"")),
		),
		mcpListTemplates(),
	)

	s.AddTool(
		mcp.NewTool("preview_resume",
			mcp.WithDescription("Render the current resume with a template."),
			mcp.WithString("template_id", mcp.Description("Template id; defaults to the selected template")),
			mcp.WithString("format", mcp.Description("text (default), html or json"), mcp.Enum("text", "html", "json")),
		),
		mcpPreviewResume(deps),
	)

	s.AddTool(
		mcp.NewTool("export_resume",
			mcp.WithDescription("Queue a simulated export of the resume."),
			mcp.WithString("format", mcp.Description("pdf, docx or doc"), mcp.Required()),
		),
		mcpRequest(deps, export.KindExport, "format"),
	)

	s.AddTool(
		mcp.NewTool("share_resume",
			mcp.WithDescription("Queue a simulated share of the resume."),
			mcp.WithString("channel", mcp.Description("link or email"), mcp.Required()),
		),
		mcpRequest(deps, export.KindShare, "channel"),
	)

	s.AddResource(
		mcp.NewResource(
			"resume://current",
			"Current Resume",
			mcp.WithResourceDescription("The resume being edited, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceResume(deps),
	)

	return s
}

func mcpUpdatePersonalInfo(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if _, err := deps.Session.UpdatePersonalFields(map[string]any{field: value}); err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", field, value)), nil
	}
}

func mcpAddEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := mcpKind(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		_, id, err := deps.Session.AddEntry(kind)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(id), nil
	}
}

func mcpUpdateEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := mcpKind(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		doc, err := deps.Session.UpdateEntry(kind, id, map[string]any{field: value})
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if !session.HasEntry(doc, kind, id) {
			return mcpText(fmt.Sprintf("No %s entry with id %s (nothing changed)", kind, id)), nil
		}
		return mcpText(fmt.Sprintf("Set %s.%s = %s", kind, field, value)), nil
	}
}

func mcpRemoveEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := mcpKind(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		_, found, err := deps.Session.RemoveEntry(kind, id)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if !found {
			return mcpText(fmt.Sprintf("No %s entry with id %s (nothing changed)", kind, id)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s entry %s", kind, id)), nil
	}
}

func mcpSelectTemplate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("template_id", "")
		if id == "" {
			deps.Session.SetSelectedTemplate("")
			return mcpText("Template selection cleared"), nil
		}
		t, ok := templates.Lookup(id)
		if !ok {
			return mcpError(fmt.Sprintf("unknown template %q", id)), nil
		}
		deps.Session.SetSelectedTemplate(t.ID)
		return mcpText(fmt.Sprintf("Selected template %s (%s)", t.ID, t.Title)), nil
	}
}

func mcpListTemplates() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		found := templates.Search(req.GetString("query", ""), req.GetString("category", ""))

		type templateResult struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Category string `json:"category"`
		}
		results := make([]templateResult, len(found))
		for i, t := range found {
			results[i] = templateResult{ID: t.ID, Title: t.Title, Category: t.Category}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal templates: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPreviewResume(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc := deps.Session.Document()
		id := req.GetString("template_id", doc.SelectedTemplate)
		tree := templates.Render(id, doc)

		switch format := req.GetString("format", "text"); format {
		case "text", "":
			var sb strings.Builder
			if err := templates.RenderText(&sb, tree); err != nil {
				return mcpError(fmt.Sprintf("render failed: %v", err)), nil
			}
			return mcpText(sb.String()), nil
		case "html":
			out, err := templates.RenderHTML(tree)
			if err != nil {
				return mcpError(fmt.Sprintf("render failed: %v", err)), nil
			}
			return mcpText(out), nil
		case "json":
			b, err := json.Marshal(tree)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal preview: %v", err)), nil
			}
			return mcpText(string(b)), nil
		default:
			return mcpError(fmt.Sprintf("unsupported format %q", format)), nil
		}
	}
}

func mcpRequest(deps MCPDeps, kind export.Kind, targetArg string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Exports == nil {
			return mcpError("exports are not available"), nil
		}
		target, err := req.RequireString(targetArg)
		if err != nil {
			return mcpError(targetArg + " is required"), nil
		}

		st, err := deps.Exports.Request(deps.Session.Document(), kind, target)
		var missing *resume.MissingFieldsError
		if errors.As(err, &missing) {
			return mcpError(missing.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to queue %s: %v", kind, err)), nil
		}
		return mcpText(fmt.Sprintf("Queued %s %s (job %s)", kind, st.Target, st.ID)), nil
	}
}

func mcpResourceResume(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := resume.Encode(deps.Session.Document())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resume: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpKind(req mcp.CallToolRequest) (session.Kind, error) {
	name, err := req.RequireString("kind")
	if err != nil {
		return "", errors.New("kind is required")
	}
	return session.ParseKind(name)
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
