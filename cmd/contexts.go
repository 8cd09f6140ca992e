package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietdv277/cirrus/internal/ui"
)

var contextsCmd = &cobra.Command{
	Use:     "contexts",
	Aliases: []string{"ctx"},
	Short:   "List all configured contexts",
	Long: `List all configured cloud contexts.

The current active context is marked with an asterisk (*).

Examples:
  crs contexts
  crs ctx`,
	RunE: runContexts,
}

func init() {
	rootCmd.AddCommand(contextsCmd)
}

func runContexts(cmd *cobra.Command, args []string) error {
	contexts, names, current, err := contextStore().List()
	if err != nil {
		return fmt.Errorf("failed to list contexts: %w", err)
	}

	if len(contexts) == 0 {
		printAddHint(cmd)
		return nil
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "  %s  %s  %s  %s\n",
		ui.HeaderStyle.Render(fmt.Sprintf("%-20s", "CONTEXT")),
		ui.HeaderStyle.Render(fmt.Sprintf("%-8s", "PROVIDER")),
		ui.HeaderStyle.Render(fmt.Sprintf("%-20s", "PROFILE/PROJECT")),
		ui.HeaderStyle.Render("REGION"))
	_, _ = fmt.Fprintln(out, ui.MutedStyle.Render("  "+strings.Repeat(ui.Horizontal, 75)))

	for _, name := range names {
		ctx := contexts[name]

		marker := "  "
		nameStr := fmt.Sprintf("%-20s", name)
		if name == current {
			marker = "* "
			nameStr = ui.RunningStyle.Render(nameStr)
		}

		credential := ctx.Profile
		if ctx.Project != "" {
			credential = ctx.Project
		}

		region := ctx.Region
		if region == "" {
			region = ui.MutedStyle.Render("-")
		}

		_, _ = fmt.Fprintf(out, "%s%s  %s  %-20s  %s\n",
			marker,
			nameStr,
			ui.ProviderStyle(ctx.Provider).Render(fmt.Sprintf("%-8s", strings.ToUpper(ctx.Provider))),
			credential,
			region)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "  %d contexts configured", len(contexts))
	if current != "" {
		_, _ = fmt.Fprintf(out, ", current: %s", ui.RunningStyle.Render(current))
	}
	_, _ = fmt.Fprintln(out)
	return nil
}
