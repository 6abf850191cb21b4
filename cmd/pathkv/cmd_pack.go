package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Fold loose objects into a single packfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore("main", false)
			if err != nil {
				return err
			}

			result, err := s.Pack()
			if err != nil {
				return err
			}
			if result.ObjectsIn == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to pack")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d objects into %s\n", result.ObjectsIn, result.PackPath)
			return nil
		},
	}
	return cmd
}
