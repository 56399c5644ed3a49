package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/clipfeed/internal/config"
)

type feedItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	ChannelID string  `json:"channel_id"`
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	Rank      float64 `json:"rank"`
}

func (it feedItem) detail() string {
	parts := []string{it.Title}
	if it.Category != "" {
		parts = append(parts, "["+it.Category+"]")
	}
	if it.ChannelID != "" {
		parts = append(parts, "@"+it.ChannelID)
	}
	return strings.Join(parts, " ")
}

// splitTags turns "a, b,,c" into [a b c].
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// --- feed ---

type feedOptions struct {
	viewer  string
	region  string
	preset  string
	typ     string
	limit   int
	weights map[string]float64
	asJSON  bool
}

func (o feedOptions) query() string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("viewer_id", o.viewer)
	set("region", o.region)
	set("preset", o.preset)
	set("type", o.typ)
	if o.limit > 0 {
		q.Set("limit", strconv.Itoa(o.limit))
	}
	for k, v := range o.weights {
		q.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return q.Encode()
}

func runFeed(ctx context.Context, c *apiClient, w io.Writer, o feedOptions) error {
	path := "/feed"
	if qs := o.query(); qs != "" {
		path += "?" + qs
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}

	var res struct {
		Items           []feedItem `json:"items"`
		Preset          string     `json:"preset"`
		Candidates      int        `json:"candidates"`
		ProfileDegraded bool       `json:"profile_degraded"`
	}
	if o.asJSON {
		var raw json.RawMessage
		if err := decodeJSON(resp, &raw); err != nil {
			return err
		}
		return printJSON(w, raw)
	}
	if err := decodeJSON(resp, &res); err != nil {
		return err
	}

	if res.ProfileDegraded {
		printWarning("profile unavailable, feed is not personalized")
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No items.")
		return nil
	}
	for i, it := range res.Items {
		printRanked(w, i+1, it.ID, it.Score, it.detail())
	}
	fmt.Fprintln(w, colorize(colorDim, fmt.Sprintf("preset %s, %d candidates", res.Preset, res.Candidates)))
	return nil
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show a ranked feed for a viewer",
	Long: `Show a ranked feed for a viewer.

Examples:
  clipfeed feed --viewer alice
  clipfeed feed --viewer alice --preset explore --type short
  clipfeed feed --region DE --interest 0.2 --regional 0.8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := feedOptions{weights: map[string]float64{}}
		o.viewer, _ = cmd.Flags().GetString("viewer")
		o.region, _ = cmd.Flags().GetString("region")
		o.preset, _ = cmd.Flags().GetString("preset")
		o.typ, _ = cmd.Flags().GetString("type")
		o.limit, _ = cmd.Flags().GetInt("limit")
		o.asJSON, _ = cmd.Flags().GetBool("json")
		for _, k := range []string{"interest", "trending", "discovery", "regional"} {
			if cmd.Flags().Changed(k) {
				o.weights[k], _ = cmd.Flags().GetFloat64(k)
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runFeed(cmd.Context(), client, cmd.OutOrStdout(), o)
	},
}

func init() {
	feedCmd.Flags().String("viewer", "", "viewer id (empty for anonymous)")
	feedCmd.Flags().String("region", "", "viewer region code")
	feedCmd.Flags().String("preset", "", "weight preset (balanced, personal, trending, explore, local)")
	feedCmd.Flags().String("type", "", "restrict to video or short")
	feedCmd.Flags().Int("limit", 0, "maximum number of items (server default when 0)")
	feedCmd.Flags().Bool("json", false, "print the raw response")
	for _, k := range []string{"interest", "trending", "discovery", "regional"} {
		feedCmd.Flags().Float64(k, 0, "override the preset's "+k+" weight")
	}
}

// --- record ---

var recordCmd = &cobra.Command{
	Use:   "record <content-id> <kind>",
	Short: "Record a viewer interaction (view, like, comment, subscribe)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, _ := cmd.Flags().GetString("viewer")
		channel, _ := cmd.Flags().GetString("channel")
		category, _ := cmd.Flags().GetString("category")
		tags, _ := cmd.Flags().GetString("tags")
		async, _ := cmd.Flags().GetBool("async")

		req := map[string]any{
			"viewer_id":  viewer,
			"content_id": args[0],
			"kind":       args[1],
			"channel_id": channel,
			"category":   category,
		}
		if t := splitTags(tags); t != nil {
			req["tags"] = t
		}
		if cmd.Flags().Changed("watched") {
			secs, _ := cmd.Flags().GetFloat64("watched")
			req["watch_duration_seconds"] = secs
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runRecord(cmd.Context(), client, req, async)
	},
}

func runRecord(ctx context.Context, c *apiClient, req map[string]any, async bool) error {
	path := "/interactions"
	if async {
		path += "?async=true"
	}
	resp, err := c.post(ctx, path, req)
	if err != nil {
		return err
	}
	var result map[string]any
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	if result["status"] == "queued" {
		printSuccess("Queued %s of %s for %v (job %v)", req["kind"], req["content_id"], result["viewer_key"], result["job_id"])
		return nil
	}
	printSuccess("Recorded %s of %s for %v", req["kind"], req["content_id"], result["viewer_key"])
	return nil
}

func init() {
	recordCmd.Flags().String("viewer", "", "viewer id (empty for anonymous)")
	recordCmd.Flags().String("channel", "", "channel of the item")
	recordCmd.Flags().String("category", "", "category of the item")
	recordCmd.Flags().String("tags", "", "comma-separated tags of the item")
	recordCmd.Flags().Float64("watched", 0, "watch duration in seconds")
	recordCmd.Flags().Bool("async", false, "queue the interaction for the background worker")
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Browse the interaction log",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a viewer's recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, _ := cmd.Flags().GetString("viewer")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runInteractionsList(cmd.Context(), client, cmd.OutOrStdout(), viewer, limit)
	},
}

func runInteractionsList(ctx context.Context, c *apiClient, w io.Writer, viewer string, limit int) error {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if viewer != "" {
		q.Set("viewer_id", viewer)
	}
	resp, err := c.get(ctx, "/interactions?"+q.Encode())
	if err != nil {
		return err
	}
	var rows []struct {
		ContentID string `json:"content_id"`
		Kind      string `json:"kind"`
		Category  string `json:"category"`
		CreatedAt string `json:"created_at"`
	}
	if err := decodeJSON(resp, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No interactions found.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %-9s %s %s\n",
			colorize(colorDim, r.CreatedAt),
			colorize(colorCyan, r.Kind),
			r.ContentID,
			colorize(colorDim, r.Category),
		)
	}
	return nil
}

var interactionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete a viewer's interaction log, keeping the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, _ := cmd.Flags().GetString("viewer")
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This deletes the viewer's interaction log. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runInteractionsClear(cmd.Context(), client, viewer)
	},
}

func runInteractionsClear(ctx context.Context, c *apiClient, viewer string) error {
	path := "/interactions"
	if viewer != "" {
		path += "?viewer_id=" + url.QueryEscape(viewer)
	}
	resp, err := c.delete(ctx, path)
	if err != nil {
		return err
	}
	var result struct {
		ViewerKey string `json:"viewer_key"`
		Deleted   int64  `json:"deleted"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	printSuccess("Deleted %d interaction(s) for %s", result.Deleted, result.ViewerKey)
	return nil
}

func init() {
	interactionsListCmd.Flags().String("viewer", "", "viewer id (empty for anonymous)")
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsClearCmd.Flags().String("viewer", "", "viewer id (empty for anonymous)")
	interactionsClearCmd.Flags().Bool("confirm", false, "confirm the deletion")
	interactionsCmd.AddCommand(interactionsListCmd, interactionsClearCmd)
}

// --- items ---

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the content catalog",
}

// readItems decodes a single JSON object or an array of them.
func readItems(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no items in input")
	}
	if data[0] == '[' {
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parsing item list: %w", err)
		}
		return items, nil
	}
	var item map[string]any
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("parsing item: %w", err)
	}
	return []map[string]any{item}, nil
}

var itemsPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Create or replace items from a JSON file",
	Long: `Create or replace items from a JSON file holding one item or an array.

Examples:
  clipfeed items put --file catalog.json
  cat item.json | clipfeed items put --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		var r io.Reader = cmd.InOrStdin()
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening %s: %w", file, err)
			}
			defer f.Close()
			r = f
		}
		items, err := readItems(r)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runItemsPut(cmd.Context(), client, items)
	},
}

func runItemsPut(ctx context.Context, c *apiClient, items []map[string]any) error {
	var failed int
	for _, it := range items {
		resp, err := c.put(ctx, "/items", it)
		if err == nil {
			err = decodeJSON(resp, nil)
		}
		if err != nil {
			printError("item %v: %v", it["id"], err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(items))
	}
	printSuccess("Stored %d item(s)", len(items))
	return nil
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, _ := cmd.Flags().GetString("channel")
		typ, _ := cmd.Flags().GetString("type")
		public, _ := cmd.Flags().GetBool("public")
		limit, _ := cmd.Flags().GetInt("limit")

		q := url.Values{"limit": {strconv.Itoa(limit)}}
		if channel != "" {
			q.Set("channel_id", channel)
		}
		if typ != "" {
			q.Set("type", typ)
		}
		if public {
			q.Set("public", "true")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/items?"+q.Encode())
		if err != nil {
			return err
		}
		var items []feedItem
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(w, "No items.")
			return nil
		}
		for _, it := range items {
			fmt.Fprintf(w, "%s  %-5s %s\n", colorize(colorCyan, it.ID), it.Type, colorize(colorDim, truncate(it.detail(), 70)))
		}
		return nil
	},
}

var itemsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one item as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/items/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := decodeJSON(resp, &raw); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	},
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an item from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/items/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Deleted item %s", args[0])
		return nil
	},
}

func init() {
	itemsPutCmd.Flags().String("file", "", "JSON file with an item or an array of items (- for stdin)")
	itemsListCmd.Flags().String("channel", "", "only items from this channel")
	itemsListCmd.Flags().String("type", "", "only video or short")
	itemsListCmd.Flags().Bool("public", false, "only public items")
	itemsListCmd.Flags().Int("limit", 50, "maximum number of items")
	itemsCmd.AddCommand(itemsPutCmd, itemsListCmd, itemsShowCmd, itemsDeleteCmd)
}

// --- related / popular ---

func runRanked(ctx context.Context, c *apiClient, w io.Writer, path string, limit int, useRank bool) error {
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	var items []feedItem
	if err := decodeJSON(resp, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return nil
	}
	for i, it := range items {
		score := it.Score
		if useRank {
			score = it.Rank
		}
		printRanked(w, i+1, it.ID, score, it.detail())
	}
	return nil
}

var relatedCmd = &cobra.Command{
	Use:   "related <item-id>",
	Short: "List items similar to an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runRanked(cmd.Context(), client, cmd.OutOrStdout(), "/items/"+url.PathEscape(args[0])+"/related", limit, false)
	},
}

var popularCmd = &cobra.Command{
	Use:   "popular <channel-id>",
	Short: "List a channel's items by popularity rank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runRanked(cmd.Context(), client, cmd.OutOrStdout(), "/channels/"+url.PathEscape(args[0])+"/popular", limit, true)
	},
}

func init() {
	relatedCmd.Flags().Int("limit", 0, "maximum number of results (server default when 0)")
	popularCmd.Flags().Int("limit", 0, "maximum number of results (server default when 0)")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or wipe a viewer's interest profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a viewer's top interests",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, _ := cmd.Flags().GetString("viewer")
		top, _ := cmd.Flags().GetInt("top")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runProfileShow(cmd.Context(), client, cmd.OutOrStdout(), viewer, top, asJSON)
	},
}

type affinity struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

func runProfileShow(ctx context.Context, c *apiClient, w io.Writer, viewer string, top int, asJSON bool) error {
	q := url.Values{"top": {strconv.Itoa(top)}}
	if viewer != "" {
		q.Set("viewer_id", viewer)
	}
	resp, err := c.get(ctx, "/profile?"+q.Encode())
	if err != nil {
		return err
	}
	var raw json.RawMessage
	if err := decodeJSON(resp, &raw); err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, raw)
	}

	var res struct {
		Summary struct {
			ViewerKey         string     `json:"viewer_key"`
			TopCategories     []affinity `json:"top_categories"`
			TopChannels       []affinity `json:"top_channels"`
			TopTags           []affinity `json:"top_tags"`
			InteractionsCount int        `json:"interactions_count"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("decoding profile: %w", err)
	}
	s := res.Summary
	fmt.Fprintf(w, "%s (%d recent interactions)\n", colorize(colorBold, s.ViewerKey), s.InteractionsCount)
	for _, sec := range []struct {
		label string
		rows  []affinity
	}{
		{"Categories", s.TopCategories},
		{"Channels", s.TopChannels},
		{"Tags", s.TopTags},
	} {
		if len(sec.rows) == 0 {
			continue
		}
		names := make([]string, len(sec.rows))
		for i, a := range sec.rows {
			names[i] = fmt.Sprintf("%s %.1f", a.Name, a.Weight)
		}
		fmt.Fprintf(w, "  %s: %s\n", colorize(colorCyan, sec.label), strings.Join(names, ", "))
	}
	return nil
}

var profileWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete a viewer's interest profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, _ := cmd.Flags().GetString("viewer")
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This resets the viewer's personalization. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/profile"
		if viewer != "" {
			path += "?viewer_id=" + url.QueryEscape(viewer)
		}
		resp, err := client.delete(cmd.Context(), path)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Wiped profile %s", result["viewer_key"])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List viewers with a stored profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runProfileList(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runProfileList(ctx context.Context, c *apiClient, w io.Writer) error {
	resp, err := c.get(ctx, "/viewers")
	if err != nil {
		return err
	}
	var keys []string
	if err := decodeJSON(resp, &keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, "No profiles.")
		return nil
	}
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
	return nil
}

func init() {
	profileShowCmd.Flags().String("viewer", "", "viewer id (empty for anonymous)")
	profileShowCmd.Flags().Int("top", 5, "entries per dimension")
	profileShowCmd.Flags().Bool("json", false, "print summary and full profile as JSON")
	profileWipeCmd.Flags().String("viewer", "", "viewer id (empty for anonymous)")
	profileWipeCmd.Flags().Bool("confirm", false, "confirm the wipe")
	profileCmd.AddCommand(profileShowCmd, profileListCmd, profileWipeCmd)
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export stored data",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog and a viewer's profile and interactions as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		viewer, _ := cmd.Flags().GetString("viewer")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		if err := runExport(cmd.Context(), client, w, viewer); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Data exported to %s", output)
		}
		return nil
	},
}

// runExport writes one {"type","data"} record per line.
func runExport(ctx context.Context, c *apiClient, w io.Writer, viewer string) error {
	enc := json.NewEncoder(w)
	emit := func(typ string, data json.RawMessage) error {
		return enc.Encode(map[string]any{"type": typ, "data": data})
	}

	viewerQ := ""
	if viewer != "" {
		viewerQ = "&viewer_id=" + url.QueryEscape(viewer)
	}

	sources := []struct {
		typ  string
		path string
		list bool
	}{
		{"item", "/items?limit=500", true},
		{"profile", "/profile?top=50" + viewerQ, false},
		{"interaction", "/interactions?limit=500" + viewerQ, true},
	}
	for _, src := range sources {
		resp, err := c.get(ctx, src.path)
		if err != nil {
			return err
		}
		if !src.list {
			var raw json.RawMessage
			if err := decodeJSON(resp, &raw); err != nil {
				return err
			}
			if err := emit(src.typ, raw); err != nil {
				return err
			}
			continue
		}
		var rows []json.RawMessage
		if err := decodeJSON(resp, &rows); err != nil {
			return err
		}
		for _, row := range rows {
			if err := emit(src.typ, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataExportCmd.Flags().String("viewer", "", "viewer whose profile and interactions to export")
	dataCmd.AddCommand(dataExportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.ConfigFilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd, configPathCmd)
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show or rotate the API bearer token",
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := config.GetAPIToken(config.NewSecretStore())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var tokenRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Generate a new API bearer token",
	Long:  "Generate a new API bearer token. A running server keeps the old token until restarted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := config.RotateAPIToken(config.NewSecretStore())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		printSuccess("Token rotated; restart the server to apply it")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenShowCmd, tokenRotateCmd)
}
