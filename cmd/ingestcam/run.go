package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/console"
	"github.com/rsclarke/ingestcam/internal/session"
)

var runFlags struct {
	captureOptions
	username string
	password string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in, pick a project and start capturing",
	Long: `Run the whole workflow interactively: log in, choose a project from the
list, enter a label and start the capture-upload loop. See "capture --help"
for the manual-mode commands.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.username, "username", os.Getenv("INGESTCAM_USERNAME"), "Studio username")
	runCmd.Flags().StringVar(&runFlags.password, "password", os.Getenv("INGESTCAM_PASSWORD"), "Studio password")
	addCaptureFlags(runCmd, &runFlags.captureOptions)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	if err := runFlags.apply(cmd, cfg); err != nil {
		return err
	}
	flow, err := newFlow(session.New())
	if err != nil {
		return err
	}

	if err := interactiveLogin(ctx, flow, errOut); err != nil {
		return err
	}

	in := stdinLines(errOut)
	sel, err := pickProject(ctx, flow, in, errOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(errOut, "Project: %s (%d)\n", sel.Project.Name, sel.Project.ID)

	if runFlags.label == "" {
		if runFlags.label, err = promptLabel(ctx, in, errOut); err != nil {
			return err
		}
	}
	return runCapture(cmd, &runFlags.captureOptions, sel.APIKey, sel.Project.ID)
}

// interactiveLogin prompts until login succeeds. Credentials given as
// flags are tried once.
func interactiveLogin(ctx context.Context, flow *session.Flow, out io.Writer) error {
	given := session.Credentials{Username: runFlags.username, Password: runFlags.password}
	fromFlags := given.Username != "" && given.Password != ""

	for {
		creds, err := readCredentials(ctx, out, given)
		if err != nil {
			return fmt.Errorf("read credentials: %w", err)
		}

		ch, err := flow.BeginLogin(ctx, creds)
		if err == nil {
			err = flow.CompleteLogin(await(ctx, out, "Logging in", ch))
		}
		if err == nil {
			return nil
		}
		if fromFlags || ctx.Err() != nil {
			return err
		}
		fmt.Fprintln(out, userMessage(err))
		given = session.Credentials{}
	}
}

// pickProject lists the projects and asks for an index until a key is
// resolved.
func pickProject(ctx context.Context, flow *session.Flow, in *console.Lines, out io.Writer) (session.Selection, error) {
	ch, err := flow.BeginListProjects(ctx)
	if err != nil {
		return session.Selection{}, err
	}
	projects, err := flow.CompleteListProjects(await(ctx, out, "Loading projects", ch))
	if err != nil {
		return session.Selection{}, err
	}
	printProjects(out, projects)
	if len(projects) == 0 {
		return session.Selection{}, errors.New("no projects to upload to")
	}

	for {
		answer, err := in.Ask(ctx, fmt.Sprintf("Project index [0-%d]: ", len(projects)-1))
		if err != nil {
			return session.Selection{}, err
		}
		index, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintf(out, "Not a number: %q\n", answer)
			continue
		}

		ch, err := flow.BeginSelectProject(ctx, index)
		if err != nil {
			fmt.Fprintln(out, userMessage(err))
			continue
		}
		sel, err := flow.CompleteSelectProject(await(ctx, out, "Fetching API key", ch))
		if err == nil {
			return sel, nil
		}
		if ctx.Err() != nil {
			return session.Selection{}, err
		}
		fmt.Fprintln(out, userMessage(err))
	}
}

// userMessage is the line shown for a flow error.
func userMessage(err error) string {
	var (
		netErr *client.NetworkError
		apiErr *client.APIError
		valErr *client.ValidationError
	)
	switch {
	case errors.As(err, &valErr):
		return valErr.Message
	case errors.As(err, &netErr):
		return "Network error: " + netErr.Err.Error()
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}
