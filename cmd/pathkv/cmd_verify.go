package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every stored object and check pack integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore("main", false)
			if err != nil {
				return err
			}

			report, err := s.Verify()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked %d loose, %d packed objects\n", report.LooseChecked, report.PackChecked)
			for _, msg := range report.Errors {
				fmt.Fprintf(out, "  FAIL: %s\n", msg)
			}
			if !report.OK() {
				return fmt.Errorf("verify: %d integrity error(s)", len(report.Errors))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	return cmd
}
