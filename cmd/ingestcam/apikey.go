package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsclarke/ingestcam/internal/async"
	"github.com/rsclarke/ingestcam/internal/session"
	"github.com/rsclarke/ingestcam/internal/types"
)

var apikeyFlags struct {
	token     string
	projectID int
	index     int
}

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Print the ingestion API key of a project",
	Long: `Print the first API key of a project, chosen either by id or by its
index in the project list.`,
	Args: cobra.NoArgs,
	RunE: runAPIKey,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)

	addTokenFlag(apikeyCmd, &apikeyFlags.token)
	apikeyCmd.Flags().IntVar(&apikeyFlags.projectID, "project-id", 0, "project id")
	apikeyCmd.Flags().IntVar(&apikeyFlags.index, "index", 0, "index in the project list")
	apikeyCmd.MarkFlagsMutuallyExclusive("project-id", "index")
	apikeyCmd.MarkFlagsOneRequired("project-id", "index")
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	sess, err := tokenSession(apikeyFlags.token)
	if err != nil {
		return err
	}
	flow, err := newFlow(sess)
	if err != nil {
		return err
	}

	var ch <-chan async.Result[session.Selection]
	if cmd.Flags().Changed("project-id") {
		ch = flow.BeginResolveKey(ctx, types.Project{ID: apikeyFlags.projectID})
	} else {
		if _, err := flow.LoadProjects(ctx); err != nil {
			return err
		}
		if ch, err = flow.BeginSelectProject(ctx, apikeyFlags.index); err != nil {
			return err
		}
	}

	sel, err := flow.CompleteSelectProject(await(ctx, errOut, "Fetching API key", ch))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sel.APIKey)
	return nil
}
