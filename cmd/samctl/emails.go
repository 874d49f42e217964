package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var emailsBody bool

func init() {
	cmd := newEmailsCmd()
	cmd.Flags().BoolVar(&emailsBody, "body", false, "Print message bodies")
	rootCmd.AddCommand(cmd)
}

func newEmailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emails <partition> <rid>",
		Short: "Collect and parse the mail files in an account's profile",
		Long: `The emails command resolves the account's username, walks its mail folder
(email.profile_template) and parses every message file found there. Files
that fail to parse are skipped.

Example:
  samctl emails 2 1001
  samctl emails 2 1001 --body
  samctl emails 2 1001 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmails(cmd.Context(), args)
		},
	}
}

func runEmails(ctx context.Context, args []string) error {
	partition, rid, err := accountArgs(args)
	if err != nil {
		return err
	}
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	arts, err := ws.UserEmails(ctx, partition, rid)
	if err != nil {
		return fmt.Errorf("failed to collect mail: %w", err)
	}
	if jsonOut {
		return printJSON(arts)
	}
	printInfo("%d message(s)\n", len(arts))
	for _, a := range arts {
		printInfo("\n%s\n", a.SourcePath)
		printInfo("  From:    %s\n", a.From)
		printInfo("  To:      %s\n", a.To)
		printInfo("  Date:    %s\n", a.Date)
		printInfo("  Subject: %s\n", a.Subject)
		if emailsBody {
			printInfo("\n%s\n", a.Body)
		}
	}
	return nil
}
