package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietdv277/cirrus/internal/aws"
	"github.com/vietdv277/cirrus/internal/config"
	"github.com/vietdv277/cirrus/internal/gcp"
	"github.com/vietdv277/cirrus/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current context and authentication status",
	Long: `Display the current active context and verify authentication status
for the configured cloud provider.

Examples:
  crs status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, ctxName, err := activeContext()
	if err != nil {
		return fmt.Errorf("failed to get current context: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Current Status")
	_, _ = fmt.Fprintln(out, ui.MutedStyle.Render(strings.Repeat(ui.Horizontal, 33)))
	_, _ = fmt.Fprintln(out)

	if ctx == nil {
		_, _ = fmt.Fprintln(out, "Context:  "+ui.MutedStyle.Render("(not set)"))
		_, _ = fmt.Fprintln(out)
		printAddHint(cmd)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Context:  %s\n", ui.HeaderStyle.Render(ctxName))
	_, _ = fmt.Fprintf(out, "Provider: %s\n", ui.ProviderStyle(ctx.Provider).Render(strings.ToUpper(ctx.Provider)))

	switch ctx.Provider {
	case config.ProviderAWS:
		displayAWSStatus(cmd, out, ctx)
	case config.ProviderGCP:
		displayGCPStatus(cmd, out, ctx)
	}
	return nil
}

func displayAWSStatus(cmd *cobra.Command, out io.Writer, ctx *config.Context) {
	_, _ = fmt.Fprintf(out, "Profile:  %s\n", ui.AWSStyle.Render(ctx.Profile))
	if ctx.Region != "" {
		_, _ = fmt.Fprintf(out, "Region:   %s\n", ctx.Region)
	}
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprint(out, "Auth:     ")
	identity, err := aws.GetCallerIdentity(cmd.Context(), ctx.Profile, ctx.Region)
	if err != nil {
		_, _ = fmt.Fprintln(out, ui.FailedStyle.Render("✗ Not authenticated"))
		_, _ = fmt.Fprintf(out, "          %s\n", ui.MutedStyle.Render(err.Error()))
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "To authenticate:")
		_, _ = fmt.Fprintf(out, "  aws sso login --profile %s\n", ctx.Profile)
		return
	}

	_, _ = fmt.Fprintln(out, ui.RunningStyle.Render("✓ Authenticated"))
	_, _ = fmt.Fprintf(out, "Account:  %s\n", identity.Account)
	_, _ = fmt.Fprintf(out, "User:     %s\n", identity.UserID)
	if identity.Arn != "" {
		_, _ = fmt.Fprintf(out, "ARN:      %s\n", ui.MutedStyle.Render(identity.Arn))
	}
}

func displayGCPStatus(cmd *cobra.Command, out io.Writer, ctx *config.Context) {
	_, _ = fmt.Fprintf(out, "Project:  %s\n", ui.GCPStyle.Render(ctx.Project))
	if ctx.Region != "" {
		_, _ = fmt.Fprintf(out, "Region:   %s\n", ctx.Region)
	}
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprint(out, "Auth:     ")
	identity, err := gcp.GetCallerIdentity(cmd.Context(), ctx.Project)
	if err != nil {
		_, _ = fmt.Fprintln(out, ui.FailedStyle.Render("✗ Not authenticated"))
		_, _ = fmt.Fprintf(out, "          %s\n", ui.MutedStyle.Render(err.Error()))
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "To authenticate:")
		_, _ = fmt.Fprintln(out, "  gcloud auth application-default login")
		return
	}

	_, _ = fmt.Fprintln(out, ui.RunningStyle.Render("✓ Authenticated"))
	if identity.Email != "" {
		_, _ = fmt.Fprintf(out, "Account:  %s\n", identity.Email)
	}
	if identity.TokenType != "" {
		_, _ = fmt.Fprintf(out, "Type:     %s\n", ui.MutedStyle.Render(identity.TokenType))
	}
}
