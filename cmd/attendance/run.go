package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"attendance/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	var input, output, inType, encoding, invalidRows string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one attendance export into the summary file",
		Long: `Reads the export (tsv, xlsx, html or eml), keeps the rows between the
participants marker and the next section marker, and writes the sorted
summary with the certificate status of each participant.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input != "" {
				a.cfg.InputPath = input
			}
			if output != "" {
				a.cfg.OutputPath = output
			}
			if inType != "" {
				a.cfg.InputType = inType
			}
			if encoding != "" {
				a.cfg.InputEncoding = encoding
			}
			if invalidRows != "" {
				a.cfg.InvalidRowPolicy = invalidRows
			}
			if strings.TrimSpace(a.cfg.InputPath) == "" {
				return fmt.Errorf("--input is required (or ATTENDANCE_INPUT)")
			}
			if err := a.setup(); err != nil {
				return err
			}

			svc := pipeline.NewProcessingService(a.db, a.cfg, a.logger)
			res, err := svc.ProcessFile(cmd.Context(), a.cfg.InputPath, a.cfg.OutputPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run done scanned=%d participants=%d eligible=%d output=%s\n",
				res.ScannedRows, len(res.Participants), res.Eligible, res.OutputPath)
			if res.Dropped > 0 {
				fmt.Fprintf(out, "dropped rows=%d halted=%t\n", res.Dropped, res.Halted)
			}
			if !res.Written {
				fmt.Fprintf(out, "warning: output not written: %v\n", res.WriteErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input export path")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (.csv or .xlsx)")
	cmd.Flags().StringVar(&inType, "type", "", "tsv|xlsx|html|eml (default: by extension)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "utf16le|utf16be|utf8|windows-1250")
	cmd.Flags().StringVar(&invalidRows, "invalid-rows", "", "halt|skip")
	return cmd
}
