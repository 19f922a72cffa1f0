package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsclarke/ingestcam/internal/session"
	"github.com/rsclarke/ingestcam/internal/types"
)

var projectsFlags struct {
	token string
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects the session can access",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)

	addTokenFlag(projectsCmd, &projectsFlags.token)
}

func addTokenFlag(cmd *cobra.Command, token *string) {
	cmd.Flags().StringVar(token, "token", os.Getenv("INGESTCAM_TOKEN"), "session token from login (env: INGESTCAM_TOKEN)")
}

func tokenSession(token string) (*session.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("token required (use --token flag or INGESTCAM_TOKEN env var)")
	}
	return session.WithToken(token), nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := tokenSession(projectsFlags.token)
	if err != nil {
		return err
	}
	flow, err := newFlow(sess)
	if err != nil {
		return err
	}

	ch, err := flow.BeginListProjects(ctx)
	if err != nil {
		return err
	}
	projects, err := flow.CompleteListProjects(await(ctx, cmd.ErrOrStderr(), "Loading projects", ch))
	if err != nil {
		return err
	}

	printProjects(cmd.OutOrStdout(), projects)
	return nil
}

func printProjects(w io.Writer, projects []types.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-8s  %s\n", "INDEX", "ID", "NAME")
	for i, p := range projects {
		fmt.Fprintf(w, "%-5d  %-8d  %s\n", i, p.ID, p.Name)
	}
}
