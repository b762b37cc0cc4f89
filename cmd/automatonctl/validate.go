package main

import (
	"fmt"

	"github.com/spf13/cobra"

	formalSvc "automatonbot/internal/service/formal"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a definition for consistency",
		Long:  `Checks that every transition or production only uses declared states, symbols and variables, then prints the canonical description.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			structure, err := readStructure(args[0])
			if err != nil {
				return err
			}

			description, err := formalSvc.Validate(structure)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), description)
			return nil
		},
	}
}
