package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/clipfeed/internal/content"
	"github.com/kalambet/clipfeed/internal/ingest"
	"github.com/kalambet/clipfeed/internal/pipeline"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/storage"
)

const anonymousProfileURI = "viewer://anonymous/profile"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles *profile.Manager
	Feeder   *pipeline.Feeder
	Ingest   *ingest.Service
}

// NewMCPServer creates an MCP server exposing feed ranking as tools.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"clipfeed",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("clipfeed ranks short and long-form videos for a viewer. Record what the viewer watches, then ask for a feed."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_feed",
			mcp.WithDescription("Return a ranked feed of public items for a viewer."),
			mcp.WithString("viewer_id", mcp.Description("Viewer identifier; empty means the anonymous viewer")),
			mcp.WithString("region", mcp.Description("Viewer region code used for regional boosting")),
			mcp.WithString("preset", mcp.Description("Weight preset: balanced, personal, trending, explore or local")),
			mcp.WithString("type", mcp.Description("Restrict to item type: video or short")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of items (default 20)")),
		),
		mcpGetFeed(deps),
	)

	s.AddTool(
		mcp.NewTool("record_interaction",
			mcp.WithDescription("Record a viewer interaction and update their interest profile."),
			mcp.WithString("viewer_id", mcp.Description("Viewer identifier; empty means the anonymous viewer")),
			mcp.WithString("content_id", mcp.Description("Item the viewer interacted with"), mcp.Required()),
			mcp.WithString("kind", mcp.Description("view, like, comment or subscribe"), mcp.Required()),
			mcp.WithString("channel_id", mcp.Description("Channel of the item")),
			mcp.WithString("category", mcp.Description("Category of the item")),
			mcp.WithArray("tags", mcp.Description("Tags of the item")),
		),
		mcpRecordInteraction(deps),
	)

	s.AddTool(
		mcp.NewTool("related_content",
			mcp.WithDescription("List public items similar to a given item."),
			mcp.WithString("item_id", mcp.Description("Target item"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 12)")),
		),
		mcpRelatedContent(deps),
	)

	s.AddTool(
		mcp.NewTool("popular_on_channel",
			mcp.WithDescription("List a channel's public items ordered by popularity rank."),
			mcp.WithString("channel_id", mcp.Description("Channel identifier"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpPopularOnChannel(deps),
	)

	s.AddResource(
		mcp.NewResource(
			anonymousProfileURI,
			"Anonymous viewer profile",
			mcp.WithResourceDescription("Interest summary of the anonymous viewer as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpGetFeed(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typ, err := content.ParseType(req.GetString("type", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		res, err := deps.Feeder.Feed(ctx, pipeline.FeedRequest{
			ViewerID: req.GetString("viewer_id", ""),
			Region:   req.GetString("region", ""),
			Preset:   req.GetString("preset", ""),
			Type:     typ,
			Limit:    req.GetInt("limit", 0),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("feed failed: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpRecordInteraction(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contentID, err := req.RequireString("content_id")
		if err != nil || contentID == "" {
			return mcpError("content_id is required"), nil
		}
		rawKind, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		kind, err := profile.ParseKind(rawKind)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		viewerID := req.GetString("viewer_id", "")
		ev := profile.InteractionEvent{
			ContentID: contentID,
			ChannelID: req.GetString("channel_id", ""),
			Category:  req.GetString("category", ""),
			Tags:      req.GetStringSlice("tags", nil),
			Kind:      kind,
		}
		p, err := deps.Ingest.Apply(ctx, viewerID, ev)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to record interaction: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Recorded %s of %s for %s (%d recent interactions)",
			kind, contentID, profile.ViewerKey(viewerID), len(p.RecentInteractions))), nil
	}
}

func mcpRelatedContent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemID, err := req.RequireString("item_id")
		if err != nil || itemID == "" {
			return mcpError("item_id is required"), nil
		}
		got, err := deps.Feeder.Related(ctx, itemID, req.GetInt("limit", 0))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("item %s not found", itemID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("related lookup failed: %v", err)), nil
		}
		return mcpJSON(got)
	}
}

func mcpPopularOnChannel(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channelID, err := req.RequireString("channel_id")
		if err != nil || channelID == "" {
			return mcpError("channel_id is required"), nil
		}
		got, err := deps.Feeder.Popular(ctx, channelID, req.GetInt("limit", 0))
		if err != nil {
			return mcpError(fmt.Sprintf("popularity lookup failed: %v", err)), nil
		}
		return mcpJSON(got)
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s, err := deps.Profiles.Summary(ctx, "", 10)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
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

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
