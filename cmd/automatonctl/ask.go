package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"automatonbot/internal/capabilities"
	"automatonbot/internal/config"
	formalSvc "automatonbot/internal/service/formal"
	"automatonbot/internal/service/llm"
	"automatonbot/internal/service/llm/gateway"
)

func newAskCmd(newLogger func() *slog.Logger) *cobra.Command {
	var (
		structurePath string
		provider      string
		model         string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the configured model a one-off question",
		Long: `Sends a single question, optionally about a definition file, using the
same prompt and provider settings as the server. Nothing is stored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.Load()
			if provider != "" {
				cfg.LLMProvider = provider
			}
			if model != "" {
				cfg.LLMModel = model
			}
			logger := newLogger()

			question := strings.Join(args, " ")

			var description string
			if structurePath != "" {
				structure, err := readStructure(structurePath)
				if err != nil {
					return err
				}
				if description, err = formalSvc.Validate(structure); err != nil {
					return fmt.Errorf("validation failed: %w", err)
				}
			}

			registry, err := capabilities.NewRegistry()
			if err != nil {
				return err
			}
			gw, err := gateway.Setup(cfg, registry, nil, logger)
			if err != nil {
				return err
			}

			prompt := llm.ComposePrompt(description, nil, question)
			logger.Debug("sending prompt", "provider", gw.Name(), "prompt_chars", len(prompt))

			raw, err := gw.Send(cmd.Context(), prompt)
			if err != nil {
				return err
			}

			extracted := llm.ExtractResponse(raw)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, extracted.Answer)
			if extracted.HasDiagram() {
				fmt.Fprintf(out, "\nGraphviz-DOT Code:\n%s\n", extracted.DiagramCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&structurePath, "structure", "s", "", "Definition file to ask about")
	cmd.Flags().StringVar(&provider, "provider", "", "Override LLM_PROVIDER (gemini, lorem)")
	cmd.Flags().StringVar(&model, "model", "", "Override LLM_MODEL")
	return cmd
}
