package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/starknet-edu/kakashi/pkg/completion"
	"github.com/starknet-edu/kakashi/pkg/config"
	"github.com/starknet-edu/kakashi/pkg/generator"
	"github.com/starknet-edu/kakashi/pkg/jsonio"
	"github.com/starknet-edu/kakashi/pkg/logger"
	"github.com/starknet-edu/kakashi/pkg/prompt"
)

const generateLongDesc = `Generate new instruction examples from seed tasks.

Reads the prompt template and seed tasks named in the config file, issues
batched requests against the completion endpoint, and writes the decoded
instructions to the configured output file as a JSON array.

Examples:
  kakashi generate
  kakashi generate --config config.yaml --requests 20 --append`

type generateCommander struct {
	configPath string
	debug      bool
	requests   int
	appendOut  bool
}

func newGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate instruction examples from seed tasks",
		Long:  generateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "config.yaml", "Path to the config file")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().IntVar(&cmder.requests, "requests", 0, "Completion calls to issue (overrides config)")
	cmd.Flags().BoolVar(&cmder.appendOut, "append", false, "Merge with existing output instead of overwriting")

	return cmd
}

func (c *generateCommander) run(ctx context.Context) error {
	// Secrets may live in a .env file next to the config; missing is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(c.debug)
	defer func() { _ = log.Sync() }()

	preamble, err := prompt.LoadTemplate(cfg.PromptTemplate)
	if err != nil {
		return err
	}

	seeds, err := generator.LoadSeeds(cfg.SeedTasks)
	if err != nil {
		return err
	}

	sleep, err := cfg.SleepDuration()
	if err != nil {
		return err
	}

	client := completion.New(cfg.BaseURL, cfg.APIKey)
	client.Logger = log

	gen := generator.New(client, cfg.Model, preamble, seeds, log)

	opts := generator.Opts{
		Requests:       cfg.Generate.Requests,
		SeedsPerPrompt: cfg.Generate.SeedsPerPrompt,
		BatchSize:      cfg.BatchSize,
		MaxInstances:   cfg.MaxInstances,
		Args:           decodingArgs(cfg.Decoding),
		Policy: completion.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Sleep:       sleep,
			MinTokens:   cfg.Retry.MinTokens,
		},
	}
	if c.requests > 0 {
		opts.Requests = c.requests
	}

	log.Info("starting generation",
		zap.String("model", cfg.Model),
		zap.Int("seeds", len(seeds)),
		zap.Int("requests", opts.Requests),
	)

	instructions, err := gen.Run(ctx, opts)
	if err != nil {
		return err
	}

	if c.appendOut {
		var existing []prompt.Instruction
		if err := jsonio.Load(cfg.Output, &existing); err == nil {
			instructions = append(existing, instructions...)
		}
	}

	if err := jsonio.Dump(instructions, cfg.Output, jsonio.Write, 0); err != nil {
		return err
	}

	fmt.Printf("wrote %d instructions to %s\n", len(instructions), cfg.Output)

	return nil
}

// decodingArgs applies the config overrides on top of the defaults.
func decodingArgs(d config.DecodingConfig) completion.DecodingArgs {
	args := completion.DefaultDecodingArgs()

	if d.MaxTokens > 0 {
		args.MaxTokens = d.MaxTokens
	}
	if d.Temperature != nil {
		args.Temperature = *d.Temperature
	}
	if d.TopP != nil {
		args.TopP = *d.TopP
	}
	if d.N > 0 {
		args.N = d.N
	}
	if len(d.Stop) > 0 {
		args.Stop = append([]string(nil), d.Stop...)
	}

	return args
}
