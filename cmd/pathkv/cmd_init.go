package main

import (
	"fmt"

	"github.com/arnegrid/pathkv/pkg/store"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var branch string
	var bare bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a new repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := store.Init(path, branch, bare); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty repository in %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "initial branch name")
	cmd.Flags().BoolVar(&bare, "bare", false, "create a bare repository")
	return cmd
}
