package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"attendance/internal/connectors"
	"attendance/internal/listener"
	"attendance/internal/pipeline"
)

func newMailFetchCmd(a *app) *cobra.Command {
	var provider, label string
	var max int

	cmd := &cobra.Command{
		Use:   "mail:fetch",
		Short: "Download unseen messages and register them as pending reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			conn, err := connectors.New(cmd.Context(), a.cfg, provider)
			if err != nil {
				return err
			}
			fetch := connectors.NewFetchService(a.db, a.cfg.RawMailDir, conn, a.logger)
			result, err := fetch.FetchAndStore(cmd.Context(), label, max)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d\n", provider, result.Fetched, result.Stored)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "imap", "gmail|imap")
	cmd.Flags().StringVar(&label, "label", "INBOX", "mailbox/label")
	cmd.Flags().IntVar(&max, "max", 50, "max messages")
	return cmd
}

func newMailProcessCmd(a *app) *cobra.Command {
	var provider, messageID string
	var batch int

	cmd := &cobra.Command{
		Use:   "mail:process",
		Short: "Run the pipeline over fetched reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			processor := pipeline.NewProcessingService(a.db, a.cfg, a.logger)
			out := cmd.OutOrStdout()

			if strings.TrimSpace(messageID) != "" {
				res, err := processor.ProcessByProviderMessageID(cmd.Context(), provider, messageID)
				if err != nil {
					return err
				}
				if res.TraceID == "" {
					fmt.Fprintf(out, "message skipped messageId=%s\n", messageID)
					return nil
				}
				fmt.Fprintf(out, "processed report run=%d participants=%d eligible=%d output=%s\n",
					res.RunID, len(res.Participants), res.Eligible, res.OutputPath)
				return nil
			}

			reports, participants, err := processor.ProcessPending(cmd.Context(), batch, provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "processed pending reports=%d participants=%d\n", reports, participants)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "imap", "gmail|imap")
	cmd.Flags().StringVar(&messageID, "messageId", "", "specific message-id")
	cmd.Flags().IntVar(&batch, "batch", 20, "batch size")
	return cmd
}

func newMailListenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mail:listen",
		Short: "Poll the mailbox and process reports until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return listener.NewService(a.db, a.cfg, a.logger).Run(cmd.Context())
		},
	}
}
