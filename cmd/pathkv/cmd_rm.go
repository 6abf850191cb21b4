package main

import (
	"fmt"

	"github.com/arnegrid/pathkv/pkg/store"
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	var branch string
	var message string

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete the value at a path in a new commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			s, err := openStore(branch, false)
			if err != nil {
				return err
			}
			if message == "" {
				message = fmt.Sprintf("rm %s", path)
			}

			err = s.Transaction(message, func(s *store.Store) error {
				s.Delete(path)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "branch to write to")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}
