package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/cirrus/internal/config"
	"github.com/vietdv277/cirrus/internal/ui"
)

var useCmd = &cobra.Command{
	Use:   "use [context-name]",
	Short: "Set the active context",
	Long: `Set the active cloud context used for region validation, secret
resolution and resource listing.

Context names follow the pattern: <provider>:<name>
Without an argument an interactive selector is shown.

Examples:
  crs use aws:prod          # Switch to AWS production context
  crs use gcp:staging       # Switch to GCP staging context
  crs use                   # Pick a context interactively`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUse,
}

var useAddCmd = &cobra.Command{
	Use:   "add <context-name>",
	Short: "Add a new context",
	Long: `Add a new context configuration.

Examples:
  crs use add aws:prod --profile prod-sso --region ap-southeast-1
  crs use add gcp:staging --project mycompany-staging --region asia-southeast1`,
	Args: cobra.ExactArgs(1),
	RunE: runUseAdd,
}

var useDeleteCmd = &cobra.Command{
	Use:     "delete <context-name>",
	Short:   "Delete a context",
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runUseDelete,
}

var (
	// Flags for use add
	useAddProfile string
	useAddProject string
	useAddRegion  string
)

func init() {
	rootCmd.AddCommand(useCmd)
	useCmd.AddCommand(useAddCmd)
	useCmd.AddCommand(useDeleteCmd)

	useAddCmd.Flags().StringVar(&useAddProfile, "profile", "", "AWS profile name")
	useAddCmd.Flags().StringVar(&useAddProject, "project", "", "GCP project ID")
	useAddCmd.Flags().StringVar(&useAddRegion, "region", "", "Region or zone")
}

func printAddHint(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "No contexts configured. Add one with:")
	_, _ = fmt.Fprintln(out, "  crs use add aws:prod --profile <profile> --region <region>")
	_, _ = fmt.Fprintln(out, "  crs use add gcp:prod --project <project-id> --region <region>")
}

func runUse(cmd *cobra.Command, args []string) error {
	store := contextStore()
	out := cmd.OutOrStdout()

	contexts, names, current, err := store.List()
	if err != nil {
		return err
	}
	if len(contexts) == 0 {
		printAddHint(cmd)
		return nil
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	} else {
		name, err = ui.SelectContext(contexts, current)
		if errors.Is(err, ui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if _, ok := contexts[name]; !ok {
		_, _ = fmt.Fprintf(out, "Context %q not found.\n\nAvailable contexts:\n", name)
		for _, n := range names {
			marker := "  "
			if n == current {
				marker = "* "
			}
			_, _ = fmt.Fprintf(out, "  %s%s\n", marker, n)
		}
		return nil
	}

	if err := store.SetCurrent(name); err != nil {
		return err
	}

	ctx := contexts[name]
	_, _ = fmt.Fprintf(out, "Switched to context: %s\n", name)
	_, _ = fmt.Fprintf(out, "  Provider: %s\n", ctx.Provider)
	if ctx.Profile != "" {
		_, _ = fmt.Fprintf(out, "  Profile:  %s\n", ctx.Profile)
	}
	if ctx.Project != "" {
		_, _ = fmt.Fprintf(out, "  Project:  %s\n", ctx.Project)
	}
	if ctx.Region != "" {
		_, _ = fmt.Fprintf(out, "  Region:   %s\n", ctx.Region)
	}
	return nil
}

func runUseAdd(cmd *cobra.Command, args []string) error {
	contextName := args[0]

	provider, _ := config.ParseContextName(contextName)

	// Auto-detect provider from flags if not in name
	if provider == "" {
		switch {
		case useAddProfile != "":
			provider = config.ProviderAWS
		case useAddProject != "":
			provider = config.ProviderGCP
		default:
			return fmt.Errorf("cannot determine provider. Use format 'aws:name' or 'gcp:name', or provide --profile or --project")
		}
	}

	ctx := &config.Context{
		Provider: provider,
		Profile:  useAddProfile,
		Project:  useAddProject,
		Region:   useAddRegion,
	}
	if provider == config.ProviderAWS {
		ctx.Project = ""
	} else {
		ctx.Profile = ""
	}

	if err := contextStore().Add(contextName, ctx); err != nil {
		return fmt.Errorf("failed to add context: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Context added: %s\n", contextName)
	_, _ = fmt.Fprintln(out, "\nTo use this context:")
	_, _ = fmt.Fprintf(out, "  crs use %s\n", contextName)
	return nil
}

func runUseDelete(cmd *cobra.Command, args []string) error {
	if err := contextStore().Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Context deleted: %s\n", args[0])
	return nil
}
