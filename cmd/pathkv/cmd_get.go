package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read the value stored at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(branch, false)
			if err != nil {
				return err
			}

			v, ok := s.Get(args[0])
			if !ok {
				return fmt.Errorf("%s: no such key", args[0])
			}
			out, err := formatValue(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "branch to read from")
	return cmd
}
