package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/viralforge/economy-bridge/internal/adapters/postgres"
	"github.com/viralforge/economy-bridge/internal/application"
)

func newTestConnectionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Check that the economy gateway answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, svc, err := opts.adminService(cmd.Context())
			if err != nil {
				return err
			}
			status := svc.CheckStatus(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "+---------------------------------------")
			fmt.Fprintf(out, "| gridID: %s\n", status.GridURL)
			fmt.Fprintf(out, "| connectionStatus: %t\n", status.Reachable)
			fmt.Fprintln(out, "+---------------------------------------")
			return nil
		},
	}
}

func newRegisterCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register this grid with the economy gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, svc, err := opts.adminService(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			fmt.Fprintf(out, "Your grid identifier is %q\n", cfg.GridURL)
			shortName, err := prompt(out, in, "Please enter the grid's nick name: ")
			if err != nil {
				return err
			}
			longName, err := prompt(out, in, "Please enter the grid's full name: ")
			if err != nil {
				return err
			}

			scriptURL, err := svc.RegisterModule(cmd.Context(), application.RegistrationRequest{
				GridShortName: shortName,
				GridLongName:  longName,
			})
			if err != nil {
				return fmt.Errorf("could not activate the grid, check the parameters and try again: %w", err)
			}
			fmt.Fprintln(out, "Please visit")
			fmt.Fprintf(out, "  %s\n", scriptURL)
			fmt.Fprintln(out, "to get the terminal's script")
			return nil
		},
	}
}

func newCallbacksCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "callbacks <region-uuid>",
		Short: "List the most recent gateway callbacks journaled for a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			regionID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid region uuid: %w", err)
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("callback journal requires DB_URL")
			}
			db, err := postgres.Connect(cmd.Context(), cfg.DatabaseURL, 1)
			if err != nil {
				return err
			}
			defer func() { _ = postgres.Close(db) }()

			records, err := postgres.NewCallbackJournal(db).Recent(cmd.Context(), regionID, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RECEIVED\tNOTIFICATION\tMETHOD\tACCEPTED\tSUCCESS\tERROR")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\n",
					r.ReceivedAt.Format(time.RFC3339), r.NotificationID, r.Method, r.Accepted, r.Success, r.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records to show")
	return cmd
}

func prompt(out io.Writer, in *bufio.Reader, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
