package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nelssec/llm-workflows/config"
	"github.com/nelssec/llm-workflows/internal/agent"
	"github.com/nelssec/llm-workflows/internal/knowledge"
	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/weather"
)

var (
	cfg         *config.Config
	logger      zerolog.Logger
	llmProvider string
	forceLocal  bool
	forceCloud  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "llm-workflows [question]",
		Short: "Structured LLM workflows: routing, extraction, tools",
		Long: `llm-workflows runs small structured-output workflows against a local
Ollama model or a hosted model (Claude or OpenAI).

LLM Provider Options:
  --local    Force use of local Ollama model (requires Ollama running)
  --cloud    Force use of Claude API (requires ANTHROPIC_API_KEY)
  --llm openai  Use OpenAI (requires OPENAI_API_KEY)
  (default)  Auto-route: simple queries to local, complex to cloud

Examples:
  llm-workflows "What is the return policy?"
  llm-workflows extract "Alice and Bob are going to a science fair on Friday."
  llm-workflows calendar "Let's schedule a 1h team meeting next Tuesday at 2pm with Alice and Bob."
  llm-workflows weather "What's the weather like in Paris today?"
  llm-workflows chat
  llm-workflows serve --port 8080`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return applyProviderFlags()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runAsk(cmd.Context(), strings.Join(args, " "))
		},
	}

	rootCmd.PersistentFlags().StringVar(&llmProvider, "llm", "", "LLM provider: auto, local, cloud, openai (default from LLM_PROVIDER)")
	rootCmd.PersistentFlags().BoolVarP(&forceLocal, "local", "l", false, "Use local Ollama model")
	rootCmd.PersistentFlags().BoolVarP(&forceCloud, "cloud", "c", false, "Use Claude API")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(calendarCmd())
	rootCmd.AddCommand(goalsCmd())
	rootCmd.AddCommand(weatherCmd())
	rootCmd.AddCommand(kbCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		stop()
		os.Exit(1)
	}
}

func initConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

// applyProviderFlags selects the provider and requires it to be usable.
func applyProviderFlags() error {
	if err := selectProvider(); err != nil {
		return err
	}
	return cfg.RequireModel()
}

func selectProvider() error {
	switch {
	case forceLocal && forceCloud:
		return errors.New("--local and --cloud are mutually exclusive")
	case forceLocal:
		llmProvider = string(llm.ProviderLocal)
	case forceCloud:
		llmProvider = string(llm.ProviderCloud)
	}
	if llmProvider != "" {
		return cfg.SetProvider(llmProvider)
	}
	return nil
}

func createRouter(ctx context.Context) *llm.HybridRouter {
	router := llm.NewHybridRouter(ctx, cfg.RouterConfig())

	if router.LocalAvailable() {
		logger.Info().Str("model", cfg.OllamaModel).Msg("local Ollama available")
	}
	if cloud := router.GetCloud(); cloud != nil {
		logger.Info().Str("client", cloud.Name()).Msg("hosted model available")
	}

	return router
}

// createClient picks the model for a single-shot workflow on input.
func createClient(ctx context.Context, input string) (llm.Client, error) {
	client := createRouter(ctx).Route(input)
	if client == nil {
		return nil, errors.WithHint(errors.New("no LLM client available"),
			"start Ollama or run 'llm-workflows config setup'")
	}
	return client, nil
}

// toolset names the tools an agent may call.
type toolset int

const (
	allTools toolset = iota
	weatherTools
	knowledgeTools
)

func createToolHandler(set toolset) (*agent.ToolHandler, error) {
	h := agent.NewToolHandler()
	if set == allTools || set == weatherTools {
		h.WithWeather(weather.NewClient(cfg.WeatherAPIURL, logger))
	}
	if set == allTools || set == knowledgeTools {
		kb, err := knowledge.Load(cfg.KBPath)
		if err != nil {
			return nil, err
		}
		h.WithKnowledgeBase(kb)
	}
	return h, nil
}

func createAgent(ctx context.Context, systemPrompt string, set toolset) (*agent.Agent, error) {
	tools, err := createToolHandler(set)
	if err != nil {
		return nil, err
	}
	return agent.NewAgent(createRouter(ctx), tools, systemPrompt, logger), nil
}
