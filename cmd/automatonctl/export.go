package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	formalSvc "automatonbot/internal/service/formal"
)

func newExportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Render a definition as a plain-text document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			structure, err := readStructure(args[0])
			if err != nil {
				return err
			}

			doc, err := formalSvc.Export(structure, time.Now())
			if err != nil {
				return err
			}

			if outDir == "-" {
				fmt.Fprint(cmd.OutOrStdout(), doc.Content)
				return nil
			}

			path := filepath.Join(outDir, doc.Filename)
			if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", `Directory to write the file to, or "-" for stdout`)
	return cmd
}
