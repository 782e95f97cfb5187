package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/profileai/internal/config"
	"github.com/kalambet/profileai/internal/export"
	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/session"
	"github.com/kalambet/profileai/internal/storage"
	"github.com/kalambet/profileai/internal/templates"
)

// --- resume ---

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Show or edit the resume",
}

var resumeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current resume as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		doc, err := fetchResume(cmd.Context(), client)
		if err != nil {
			return err
		}
		return printJSON(doc)
	},
}

var resumeSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a personal info field (" + strings.Join(resume.PersonalFields, ", ") + ")",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/resume/personal", map[string]any{field: value})
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Set %s = %s", field, value)
		return nil
	},
}

var resumeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the resume and start over",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete the saved resume. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/resume")
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Resume cleared")
		return nil
	},
}

var resumeImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the resume with a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		if err := resume.ValidateJSON(data); err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := putResume(cmd.Context(), client, data); err != nil {
			return err
		}

		printSuccess("Imported %s", args[0])
		return nil
	},
}

var resumeEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the resume JSON in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		doc, err := fetchResume(cmd.Context(), client)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "profileai-resume-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		if err := resume.ValidateJSON(edited); err != nil {
			return err
		}
		if err := putResume(cmd.Context(), client, edited); err != nil {
			return err
		}

		printSuccess("Resume updated")
		return nil
	},
}

func fetchResume(ctx context.Context, client *apiClient) (resume.Document, error) {
	resp, err := client.get(ctx, "/resume")
	if err != nil {
		return resume.Document{}, err
	}
	var doc resume.Document
	if err := decodeJSON(resp, &doc); err != nil {
		return resume.Document{}, err
	}
	return doc, nil
}

func putResume(ctx context.Context, client *apiClient, data []byte) error {
	resp, err := client.doRaw(ctx, "PUT", "/resume", data)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

var resumeSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema that import and edit validate against",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(resume.Schema())
	},
}

func init() {
	resumeClearCmd.Flags().Bool("confirm", false, "confirm discarding the resume")
	resumeCmd.AddCommand(resumeShowCmd, resumeSetCmd, resumeClearCmd, resumeImportCmd, resumeEditCmd, resumeSchemaCmd)
}

// --- experience / education / skill ---

var (
	experienceCmd = newEntryCmd("experience", session.KindExperience, resume.ExperienceFields)
	educationCmd  = newEntryCmd("education", session.KindEducation, resume.EducationFields)
	skillCmd      = newEntryCmd("skill", session.KindSkills, resume.SkillFields)
)

// newEntryCmd builds the add/set/rm/list subcommands for one entry collection.
func newEntryCmd(use string, kind session.Kind, fields []string) *cobra.Command {
	parent := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Manage %s entries", kind),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s entries", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			doc, err := fetchResume(cmd.Context(), client)
			if err != nil {
				return err
			}
			lines := entryLines(doc, kind)
			if len(lines) == 0 {
				fmt.Printf("No %s entries.\n", kind)
				return nil
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add [field=value ...]",
		Short: fmt.Sprintf("Add a %s entry and print its id", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			if err := session.CheckEntryFields(kind, values); err != nil {
				return err
			}

			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.post(cmd.Context(), "/resume/"+string(kind), nil)
			if err != nil {
				return err
			}
			var created struct {
				ID string `json:"id"`
			}
			if err := decodeJSON(resp, &created); err != nil {
				return err
			}

			if len(values) > 0 {
				if err := patchEntry(cmd.Context(), client, kind, created.ID, values); err != nil {
					discardEntry(cmd.Context(), client, kind, created.ID)
					return err
				}
			}

			fmt.Println(created.ID)
			printSuccess("Added %s entry", use)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: fmt.Sprintf("Set a field (%s)", strings.Join(fields, ", ")),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, field, value := args[0], args[1], args[2]

			client, err := newAPIClient()
			if err != nil {
				return err
			}
			if err := patchEntry(cmd.Context(), client, kind, id, map[string]any{field: value}); err != nil {
				return err
			}

			printSuccess("Set %s = %s", field, value)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: fmt.Sprintf("Remove a %s entry", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.delete(cmd.Context(), "/resume/"+string(kind)+"/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, nil); err != nil {
				return err
			}

			printSuccess("Removed %s", args[0])
			return nil
		},
	}

	parent.AddCommand(list, add, set, rm)
	return parent
}

func patchEntry(ctx context.Context, client *apiClient, kind session.Kind, id string, values map[string]any) error {
	resp, err := client.patch(ctx, "/resume/"+string(kind)+"/"+url.PathEscape(id), values)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// parseAssignments turns ["jobTitle=Engineer", "company=Acme"] into a field map.
// discardEntry removes an entry created by a failed add.
func discardEntry(ctx context.Context, client *apiClient, kind session.Kind, id string) {
	resp, err := client.delete(ctx, "/resume/"+string(kind)+"/"+url.PathEscape(id))
	if err == nil {
		err = decodeJSON(resp, nil)
	}
	if err != nil {
		printWarning("could not remove new %s entry %s: %v", kind, id, err)
	}
}

func parseAssignments(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, a := range args {
		field, value, ok := strings.Cut(a, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", a)
		}
		values[field] = value
	}
	return values, nil
}

func entryLines(doc resume.Document, kind session.Kind) []string {
	var lines []string
	id := func(s string) string { return colorize(colorCyan, s) }
	switch kind {
	case session.KindExperience:
		for _, e := range doc.WorkExperience {
			lines = append(lines, fmt.Sprintf("%s  %s at %s  %s", id(e.ID), orDash(e.JobTitle), orDash(e.Company), strings.TrimSpace(e.StartDate+" - "+e.EndDate)))
		}
	case session.KindEducation:
		for _, e := range doc.Education {
			lines = append(lines, fmt.Sprintf("%s  %s, %s  %s", id(e.ID), orDash(e.Degree), orDash(e.Institution), e.GraduationYear))
		}
	case session.KindSkills:
		for _, e := range doc.Skills {
			lines = append(lines, fmt.Sprintf("%s  %s  %d%%", id(e.ID), orDash(e.Name), e.Level))
		}
	}
	return lines
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// --- templates ---

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Browse and choose resume templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		category, _ := cmd.Flags().GetString("category")

		found := templates.Search(query, category)
		if len(found) == 0 {
			fmt.Println("No templates found.")
			return nil
		}
		for _, t := range found {
			fmt.Printf("%s  %-22s %s\n", colorize(colorCyan, t.ID), t.Title, colorize(colorBold, t.Category))
		}
		return nil
	},
}

var templateUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the template for previews and exports (\"none\" clears it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if id == "none" {
			id = ""
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/resume/template", map[string]string{"templateId": id})
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		if t, ok := templates.Lookup(id); ok {
			printSuccess("Using template %s (%s)", t.Title, t.ID)
		} else {
			printSuccess("Template selection cleared")
		}
		return nil
	},
}

var templateCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List template categories",
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range templates.Categories() {
			fmt.Println(c)
		}
	},
}

func init() {
	templateListCmd.Flags().String("query", "", "match on title or category")
	templateListCmd.Flags().String("category", templates.AllCategories,
		"category filter ("+strings.Join(templates.Categories(), ", ")+")")
	templateCmd.AddCommand(templateListCmd, templateUseCmd, templateCategoriesCmd)
}

// --- preview ---

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the resume with a template",
	RunE: func(cmd *cobra.Command, args []string) error {
		templateID, _ := cmd.Flags().GetString("template")
		format, _ := cmd.Flags().GetString("format")
		sample, _ := cmd.Flags().GetBool("sample")
		output, _ := cmd.Flags().GetString("output")

		q := url.Values{}
		q.Set("format", format)
		if templateID != "" {
			q.Set("template", templateID)
		}
		if sample {
			q.Set("sample", "true")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/preview?"+q.Encode())
		if err != nil {
			return err
		}
		body, err := readBody(resp)
		if err != nil {
			return err
		}

		if output == "" {
			fmt.Print(body)
			return nil
		}
		if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
		printSuccess("Preview written to %s", output)
		return nil
	},
}

func init() {
	previewCmd.Flags().String("template", "", "template id (default: the selected template)")
	previewCmd.Flags().String("format", "text", "text, html or json")
	previewCmd.Flags().Bool("sample", false, "render the sample resume instead of yours")
	previewCmd.Flags().String("output", "", "write to a file instead of stdout")
}

// --- export / share ---

var exportCmd = &cobra.Command{
	Use:       "export <format>",
	Short:     "Export the resume (" + strings.Join(export.Formats, ", ") + ")",
	Args:      cobra.ExactArgs(1),
	ValidArgs: export.Formats,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, "/exports", "format", args[0])
	},
}

var shareCmd = &cobra.Command{
	Use:       "share <channel>",
	Short:     "Share the resume (" + strings.Join(export.Channels, ", ") + ")",
	Args:      cobra.ExactArgs(1),
	ValidArgs: export.Channels,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, "/shares", "channel", args[0])
	},
}

func runRequest(cmd *cobra.Command, path, field, target string) error {
	wait, _ := cmd.Flags().GetBool("wait")

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.post(cmd.Context(), path, map[string]string{field: target})
	if err != nil {
		return err
	}
	var st export.Status
	if err := decodeJSON(resp, &st); err != nil {
		var se *serverError
		if errors.As(err, &se) && se.Type == "missing_fields" {
			for _, f := range se.Fields {
				printWarning("%s is required, set it with: profileai resume set %s <value>", f, f)
			}
		}
		return err
	}

	if !wait {
		printStep("Queued %s %s (job %s)", st.Kind, st.Target, st.ID)
		return nil
	}

	printStep("Processing %s...", st.Target)
	final, err := waitForJob(cmd.Context(), client, st.ID, 250*time.Millisecond)
	if err != nil {
		return err
	}
	if final.Status == storage.JobFailed {
		return fmt.Errorf("%s failed: %s", final.Kind, final.Error)
	}
	printSuccess("%s", doneMessage(final))
	return nil
}

// waitForJob polls a queued request until it leaves the pending/running states.
func waitForJob(ctx context.Context, client *apiClient, id string, interval time.Duration) (export.Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := client.get(ctx, "/exports/"+url.PathEscape(id))
		if err != nil {
			return export.Status{}, err
		}
		var st export.Status
		if err := decodeJSON(resp, &st); err != nil {
			return export.Status{}, err
		}
		if !st.Busy {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return export.Status{}, errors.New("gave up waiting for the job")
		case <-ticker.C:
		}
	}
}

func doneMessage(st export.Status) string {
	if st.Kind == export.KindExport {
		return fmt.Sprintf("Resume downloaded as %s (%s)", strings.ToUpper(st.Target), st.FileName)
	}
	if st.Target == "email" {
		return "Resume shared by email"
	}
	return "Share link generated"
}

func init() {
	exportCmd.Flags().Bool("wait", false, "wait until the export finishes")
	shareCmd.Flags().Bool("wait", false, "wait until the share finishes")
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

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
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

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
