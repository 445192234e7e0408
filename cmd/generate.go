package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/llm-gateway/internal/gateway"
	"github.com/angeloszaimis/llm-gateway/pkg/logger"
)

type generateFlags struct {
	role         string
	temperature  float64
	maxTokens    int
	systemPrompt string
	timeout      time.Duration
	checkHealth  bool
}

func newGenerateCmd(configPath *string) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Send one prompt through the gateway and print the response as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// stdout carries the JSON response only.
			log := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, false, cfg.Server.Environment)

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if flags.checkHealth {
				a.monitor.CheckNow(cmd.Context())
			}

			resp := a.gateway.Generate(cmd.Context(), strings.Join(args, " "), flags.options()...)

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.role, "role", "r", "", "role selecting the fallback chain")
	cmd.Flags().Float64VarP(&flags.temperature, "temperature", "t", gateway.DefaultTemperature, "sampling temperature")
	cmd.Flags().IntVar(&flags.maxTokens, "max-tokens", gateway.DefaultMaxTokens, "completion token limit")
	cmd.Flags().StringVarP(&flags.systemPrompt, "system", "s", "", "system prompt")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "overall deadline, 0 for none")
	cmd.Flags().BoolVar(&flags.checkHealth, "check-health", false, "probe every provider before routing")
	return cmd
}

func (f generateFlags) options() []gateway.RequestOption {
	opts := []gateway.RequestOption{
		gateway.WithRole(f.role),
		gateway.WithTemperature(f.temperature),
		gateway.WithMaxTokens(f.maxTokens),
	}
	if f.systemPrompt != "" {
		opts = append(opts, gateway.WithSystemPrompt(f.systemPrompt))
	}
	if f.timeout > 0 {
		opts = append(opts, gateway.WithTimeout(f.timeout))
	}
	return opts
}
