package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsclarke/ingestcam/internal/session"
)

var loginFlags struct {
	username string
	password string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Studio and print the session token",
	Long: `Log in to Edge Impulse Studio with a username and password. Missing
credentials are prompted for. The token is printed on stdout for use with
--token or INGESTCAM_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginFlags.username, "username", os.Getenv("INGESTCAM_USERNAME"), "Studio username")
	loginCmd.Flags().StringVar(&loginFlags.password, "password", os.Getenv("INGESTCAM_PASSWORD"), "Studio password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	flow, err := newFlow(session.New())
	if err != nil {
		return err
	}

	creds, err := readCredentials(ctx, errOut, session.Credentials{
		Username: loginFlags.username,
		Password: loginFlags.password,
	})
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}

	ch, err := flow.BeginLogin(ctx, creds)
	if err != nil {
		return err
	}
	if err := flow.CompleteLogin(await(ctx, errOut, "Logging in", ch)); err != nil {
		return err
	}

	token := flow.Session().Token()
	if token == "" {
		logger.Warn("studio returned an empty token")
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
