package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vietdv277/cirrus/internal/app"
	"github.com/vietdv277/cirrus/internal/lifecycle"
	"github.com/vietdv277/cirrus/internal/ui"
	"github.com/vietdv277/cirrus/pkg/types"
)

var clusterCmd = &cobra.Command{
	Use:     "cluster",
	Aliases: []string{"cl", "clusters"},
	Short:   "Manage cluster lifecycle",
	Long: `Create, update, deploy and delete clusters.

Commands that take a cluster name open an interactive selector when the
name is omitted.

Examples:
  crs cluster create acme --region us-east1 --file repos.yaml
  crs cluster list
  crs cluster get acme -o yaml
  crs cluster update acme --region eu-west3
  crs cluster deploy acme --pod front --branch release
  crs cluster activity acme
  crs cluster delete acme --yes`,
}

var clusterCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a cluster from the template",
	Long: `Copy the template into a new cluster directory, substitute the
##name## and ##region## placeholders, write params.json and the repository
env files, then run terraform init and apply.

Any failure removes the cluster directory again.

The --file argument is a YAML or JSON document holding either a
"repositories" list or the list itself:

  repositories:
    - service_name: api
      repo: git@github.com:acme/api.git
      branch: main
      env:
        TOKEN: ssm:/acme/api/token`,
	Args: cobra.ExactArgs(1),
	RunE: runClusterCreate,
}

var clusterListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List clusters",
	Args:    cobra.NoArgs,
	RunE:    runClusterList,
}

var clusterGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Show the parameters of a cluster",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClusterGet,
}

var clusterUpdateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Update cluster parameters and re-apply",
	Long: `Merge new parameters into params.json, rewrite the env files when
repositories change and run terraform apply again.

Examples:
  crs cluster update acme --region eu-west3
  crs cluster update acme --file repos.yaml --no-apply`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClusterUpdate,
}

var clusterDeleteCmd = &cobra.Command{
	Use:     "delete [name]",
	Aliases: []string{"rm"},
	Short:   "Destroy and remove a cluster",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runClusterDelete,
}

var clusterDeployCmd = &cobra.Command{
	Use:   "deploy [name]",
	Short: "Run a pod playbook against a cluster",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClusterDeploy,
}

var clusterActivityCmd = &cobra.Command{
	Use:     "activity [name]",
	Aliases: []string{"log"},
	Short:   "Show the activity log of a cluster",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runClusterActivity,
}

var clusterStatusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show the lifecycle state of a cluster",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClusterStatus,
}

var clusterResourcesCmd = &cobra.Command{
	Use:   "resources [name]",
	Short: "List cloud resources tagged with the cluster name",
	Long: `List the Auto Scaling Groups and load balancers carrying the
tag cluster=<name> in the active context.

Examples:
  crs cluster resources acme
  crs cluster resources acme --context aws:prod -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClusterResources,
}

var (
	clusterRegion  string
	clusterFile    string
	clusterNewName string
	clusterNoApply bool
	clusterYes     bool
	clusterPod     string
	clusterBranch  string
	clusterOutput  string
)

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.AddCommand(
		clusterCreateCmd,
		clusterListCmd,
		clusterGetCmd,
		clusterUpdateCmd,
		clusterDeleteCmd,
		clusterDeployCmd,
		clusterActivityCmd,
		clusterStatusCmd,
		clusterResourcesCmd,
	)

	clusterCreateCmd.Flags().StringVarP(&clusterRegion, "region", "r", "", "cluster region (required)")
	clusterCreateCmd.Flags().StringVarP(&clusterFile, "file", "f", "", "YAML or JSON file with repositories")
	_ = clusterCreateCmd.MarkFlagRequired("region")

	clusterUpdateCmd.Flags().StringVar(&clusterNewName, "name", "", "new name stored in params.json")
	clusterUpdateCmd.Flags().StringVarP(&clusterRegion, "region", "r", "", "new region")
	clusterUpdateCmd.Flags().StringVarP(&clusterFile, "file", "f", "", "YAML or JSON file replacing the repositories")
	clusterUpdateCmd.Flags().BoolVar(&clusterNoApply, "no-apply", false, "only write parameters, skip terraform apply")

	clusterDeleteCmd.Flags().BoolVarP(&clusterYes, "yes", "y", false, "do not ask for confirmation")

	clusterDeployCmd.Flags().StringVar(&clusterPod, "pod", "", "pod to deploy (required)")
	clusterDeployCmd.Flags().StringVar(&clusterBranch, "branch", "", "branch to deploy (default main)")
	_ = clusterDeployCmd.MarkFlagRequired("pod")

	for _, c := range []*cobra.Command{clusterListCmd, clusterGetCmd, clusterResourcesCmd} {
		c.Flags().StringVarP(&clusterOutput, "output", "o", "", "output format (json, yaml)")
	}
}

// readRepositories loads a repositories document: either a mapping with a
// "repositories" key or a bare list
func readRepositories(path string) ([]types.RepoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc struct {
		Repositories []types.RepoConfig `yaml:"repositories"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && doc.Repositories != nil {
		return doc.Repositories, nil
	}

	var list []types.RepoConfig
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: expected a repositories list: %w", path, err)
	}
	if list == nil {
		list = []types.RepoConfig{}
	}
	return list, nil
}

// clusterName returns the name argument or asks for one interactively
func clusterName(a *app.App, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	summaries, err := a.Orchestrator.Summaries()
	if err != nil {
		return "", err
	}
	return ui.SelectCluster(summaries)
}

// failed prints the captured tool output of a lifecycle failure
func failed(cmd *cobra.Command, err error) error {
	if out := strings.TrimSpace(lifecycle.Output(err)); out != "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), ui.MutedStyle.Render(out))
	}
	return err
}

func printStructured(cmd *cobra.Command, format string, v any) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q (supported: json, yaml)", format)
}

func runClusterCreate(cmd *cobra.Command, args []string) error {
	req := types.CreateRequest{Name: args[0], Region: clusterRegion}
	if clusterFile != "" {
		repos, err := readRepositories(clusterFile)
		if err != nil {
			return err
		}
		req.Repositories = repos
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Creating cluster %s in %s...\n", ui.NameStyle.Render(req.Name), req.Region)
	if err := a.Orchestrator.Create(cmd.Context(), req); err != nil {
		return failed(cmd, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.RunningStyle.Render(fmt.Sprintf("✓ Cluster '%s' created successfully.", req.Name)))
	return nil
}

func runClusterList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}

	summaries, err := a.Orchestrator.Summaries()
	if err != nil {
		return err
	}
	if clusterOutput != "" {
		return printStructured(cmd, clusterOutput, summaries)
	}
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No clusters found.")
		return nil
	}
	ui.PrintClusterTable(cmd.OutOrStdout(), summaries)
	return nil
}

func runClusterGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	if clusterOutput == "" || clusterOutput == "json" {
		raw, err := a.Orchestrator.Settings(name)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return err
	}

	params, err := a.Orchestrator.Params(name)
	if err != nil {
		return err
	}
	return printStructured(cmd, clusterOutput, params)
}

func runClusterUpdate(cmd *cobra.Command, args []string) error {
	upd := &types.ClusterUpdate{}
	if cmd.Flags().Changed("name") {
		upd.Name = &clusterNewName
	}
	if cmd.Flags().Changed("region") {
		upd.Region = &clusterRegion
	}
	if clusterFile != "" {
		repos, err := readRepositories(clusterFile)
		if err != nil {
			return err
		}
		upd.Repositories = &repos
	}
	if clusterNoApply {
		apply := false
		upd.Apply = &apply
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	params, err := a.Orchestrator.Update(cmd.Context(), name, upd)
	if err != nil {
		return failed(cmd, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.RunningStyle.Render(fmt.Sprintf("✓ Settings of cluster '%s' updated.", name)))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Region:       %s\n", params.Region)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Repositories: %d\n", len(params.Repositories))
	return nil
}

func runClusterDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	if !clusterYes {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Destroy cluster %s and remove its directory? [y/N] ", ui.NameStyle.Render(name))
		var answer string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
		if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := a.Orchestrator.Delete(cmd.Context(), name); err != nil {
		return failed(cmd, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.RunningStyle.Render(fmt.Sprintf("✓ Cluster '%s' deleted successfully.", name)))
	return nil
}

func runClusterDeploy(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	res, err := a.Orchestrator.Deploy(cmd.Context(), types.DeployRequest{
		Name:   name,
		Pod:    clusterPod,
		Branch: clusterBranch,
	})
	if err != nil {
		return failed(cmd, err)
	}
	if res != nil && res.Stdout != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.MutedStyle.Render(strings.TrimSpace(res.Stdout)))
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.RunningStyle.Render(fmt.Sprintf("✓ Deployment of %s on cluster '%s' completed.", clusterPod, name)))
	return nil
}

func runClusterActivity(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	lines, err := a.Orchestrator.Activity(name)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.MutedStyle.Render("No activity recorded."))
		return nil
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func runClusterStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	state := a.Orchestrator.State(name)
	glyph, style := ui.StateIndicator(state)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.NameStyle.Render(name), style.Render(glyph+" "+string(state)))
	return nil
}

func runClusterResources(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	name, err := clusterName(a, args)
	if err != nil {
		return err
	}

	res, err := a.Orchestrator.Resources(cmd.Context(), name)
	if err != nil {
		return err
	}
	if clusterOutput != "" {
		return printStructured(cmd, clusterOutput, res)
	}
	ui.PrintClusterResources(cmd.OutOrStdout(), res)
	return nil
}
