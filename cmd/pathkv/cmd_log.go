package main

import (
	"fmt"

	"github.com/arnegrid/pathkv/pkg/object"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var branch string
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(branch, false)
			if err != nil {
				return err
			}

			commits, err := s.Commits(limit, "")
			if err != nil {
				return err
			}
			for _, c := range commits {
				id := object.IDFor(object.KindCommit, object.EncodeCommit(c))
				short := string(id)
				if len(short) > 8 {
					short = short[:8]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", short, c.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "branch to read from")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum commits to show")
	return cmd
}
