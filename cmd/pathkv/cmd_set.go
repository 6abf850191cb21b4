package main

import (
	"fmt"

	"github.com/arnegrid/pathkv/pkg/store"
	"github.com/spf13/cobra"
)

func newSetCmd() *cobra.Command {
	var branch string
	var message string

	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Write a value at a path in a new commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, raw := args[0], args[1]
			s, err := openStore(branch, false)
			if err != nil {
				return err
			}

			value, err := decodeInputValue(path, raw)
			if err != nil {
				return err
			}
			if message == "" {
				message = fmt.Sprintf("set %s", path)
			}

			err = s.Transaction(message, func(s *store.Store) error {
				s.Set(path, value)
				return nil
			})
			if err != nil {
				return err
			}

			short := string(s.Head())
			if len(short) > 8 {
				short = short[:8]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, short, message)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "branch to write to")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}
