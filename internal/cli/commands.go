package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
)

const (
	// ServerEnv sets the default gateway URL.
	ServerEnv = "N8NCTL_SERVER"

	defaultServer = "http://localhost:8080"
)

// Options holds the dependencies of the command tree.
type Options struct {
	Tokens     TokenStore
	HTTPClient *http.Client
}

type app struct {
	opts   Options
	server string
}

// NewRootCommand builds the n8nctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Tokens == nil {
		opts.Tokens = NewKeychainStore()
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "n8nctl",
		Short:         "Manage n8n workflows and connection settings through the gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(ServerEnv)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&a.server, "server", server, "gateway URL (env "+ServerEnv+")")

	root.AddCommand(a.loginCommand())
	root.AddCommand(a.logoutCommand())
	root.AddCommand(a.workflowsCommand())
	root.AddCommand(a.checkCommand())
	root.AddCommand(a.configCommand())

	return root
}

func (a *app) client() (*EdgeClient, error) {
	token, err := ResolveToken(a.opts.Tokens, a.server)
	if err != nil {
		return nil, err
	}
	return NewEdgeClient(a.server, token, a.opts.HTTPClient), nil
}

func (a *app) loginCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for the gateway in the OS keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("--token must not be empty")
			}
			if err := a.opts.Tokens.Set(a.server, token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s\n", a.server)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token for the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.opts.Tokens.Delete(a.server); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", a.server)
			return nil
		},
	}
}

func (a *app) workflowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflows",
		Aliases: []string{"wf"},
		Short:   "List and manage n8n workflows",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edge, err := a.client()
			if err != nil {
				return err
			}
			workflows, err := n8n.NewWorkflowList(n8n.NewWorkflowClient(edge)).Reload(cmd.Context())
			if err != nil {
				return err
			}
			printWorkflows(cmd.OutOrStdout(), workflows)
			return nil
		},
	})

	var showList bool
	for _, active := range []bool{true, false} {
		active := active
		use, short := "deactivate ID", "Deactivate a workflow"
		if active {
			use, short = "activate ID", "Activate a workflow"
		}
		mutateCmd := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := a.workflowList(cmd.Context(), showList)
				if err != nil {
					return err
				}
				var workflow *models.Workflow
				if active {
					workflow, err = list.Activate(cmd.Context(), args[0])
				} else {
					workflow, err = list.Deactivate(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s is now %s\n", workflow.ID, activeLabel(workflow.Active))
				if showList {
					printWorkflows(cmd.OutOrStdout(), list.Items())
				}
				return nil
			},
		}
		mutateCmd.Flags().BoolVarP(&showList, "list", "l", false, "print the workflow list after the change")
		cmd.AddCommand(mutateCmd)
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow (irreversible)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete workflow %s without --yes", args[0])
			}
			list, err := a.workflowList(cmd.Context(), showList)
			if err != nil {
				return err
			}
			if err := list.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s deleted\n", args[0])
			if showList {
				printWorkflows(cmd.OutOrStdout(), list.Items())
			}
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	deleteCmd.Flags().BoolVarP(&showList, "list", "l", false, "print the workflow list after the change")
	cmd.AddCommand(deleteCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "url ID",
		Short: "Print the editor link of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edge, err := a.client()
			if err != nil {
				return err
			}
			url, err := n8n.NewWorkflowClient(edge).URLFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	})

	return cmd
}

// workflowList returns a list for mutations. With load set it is fetched
// first so the patched result can be printed without a second fetch.
func (a *app) workflowList(ctx context.Context, load bool) (*n8n.WorkflowList, error) {
	edge, err := a.client()
	if err != nil {
		return nil, err
	}
	list := n8n.NewWorkflowList(n8n.NewWorkflowClient(edge))
	if load {
		if _, err := list.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// checkCommand probes n8n from the client side, the way the dashboard does.
func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the n8n connection through the proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edge, err := a.client()
			if err != nil {
				return err
			}
			result := n8n.NewHealthChecker(edge, printRecorder{out: cmd.OutOrStdout()}).Check(cmd.Context())
			if result.Status != models.ConnectionStatusConnected {
				return fmt.Errorf("n8n is %s: %s", result.Status, result.Error)
			}
			return nil
		},
	}
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, test and save the n8n connection settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edge, err := a.client()
			if err != nil {
				return err
			}
			conn, err := edge.State(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), conn.State)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Run a health check with the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edge, err := a.client()
			if err != nil {
				return err
			}
			conn, err := edge.Test(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), conn.State)
			if conn.Health != nil && conn.Health.Status != models.ConnectionStatusConnected {
				return fmt.Errorf("connection test failed: %s", conn.Health.Error)
			}
			return nil
		},
	})

	var apiKey, baseURL string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save and verify new settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(apiKey) == "" {
				return fmt.Errorf("--api-key must not be empty")
			}
			edge, err := a.client()
			if err != nil {
				return err
			}
			result, err := edge.Save(cmd.Context(), apiKey, baseURL)
			if result != nil {
				printState(cmd.OutOrStdout(), result.State)
			}
			if err != nil {
				if result != nil && result.Saved {
					return fmt.Errorf("settings saved but the connection check failed: %w", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved and verified")
			return nil
		},
	}
	saveCmd.Flags().StringVar(&apiKey, "api-key", "", "n8n API key")
	saveCmd.Flags().StringVar(&baseURL, "base-url", "", "n8n base URL, e.g. https://n8n.example.com")
	_ = saveCmd.MarkFlagRequired("api-key")
	cmd.AddCommand(saveCmd)

	return cmd
}

type printRecorder struct {
	out io.Writer
}

func (r printRecorder) RecordStatus(ctx context.Context, status models.ConnectionStatus, message string) {
	if message != "" {
		fmt.Fprintf(r.out, "%s: %s\n", status, message)
		return
	}
	fmt.Fprintln(r.out, status)
}

func printWorkflows(out io.Writer, workflows []models.Workflow) {
	if len(workflows) == 0 {
		fmt.Fprintln(out, "No workflows")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tUPDATED")
	for _, wf := range workflows {
		updated := "-"
		if wf.UpdatedAt != nil {
			updated = wf.UpdatedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wf.ID, wf.Name, activeLabel(wf.Active), updated)
	}
	_ = w.Flush()
}

func printState(out io.Writer, state *models.ConnectionState) {
	if state == nil {
		return
	}
	fmt.Fprintf(out, "Status: %s\n", state.Status)
	if state.LastError != "" {
		fmt.Fprintf(out, "Error:  %s\n", state.LastError)
	}
	if state.CheckedAt != nil {
		fmt.Fprintf(out, "Checked: %s\n", state.CheckedAt.Format(time.RFC3339))
	}
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
