package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nelssec/llm-workflows/internal/agent"
	"github.com/nelssec/llm-workflows/internal/api"
	"github.com/nelssec/llm-workflows/internal/llm"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long:  "Start an interactive chat session. Replies are streamed as the model writes them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Long:  "Ask a single question. The model may call the weather and knowledge base tools.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  "Start the REST API server for programmatic access",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				cfg.ServerPort = port
			}
			return runServer(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: 8080)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which models are reachable",
		// Missing credentials are reported, not treated as fatal.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return selectProvider()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runChat(ctx context.Context) error {
	ag, err := createAgent(ctx, agent.ChatPrompt, allTools)
	if err != nil {
		return err
	}

	fmt.Println("LLM Workflows - Chat")
	fmt.Println("====================")
	fmt.Println("Type 'exit' or 'quit' to end the session, 'clear' to start over.")
	fmt.Println()

	var history []agent.Message

	for {
		fmt.Print("You: ")
		input, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch input {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		case "clear":
			history = nil
			fmt.Println("Conversation cleared.")
			continue
		}

		fmt.Print("\nAssistant: ")
		_, newHistory, err := ag.Stream(ctx, input, history, func(chunk string) {
			fmt.Print(chunk)
		})
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("\nError: %v\n\n", err)
			continue
		}

		history = newHistory
		fmt.Print("\n\n")
	}
}

func runAsk(ctx context.Context, question string) error {
	ag, err := createAgent(ctx, agent.ChatPrompt, allTools)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := ag.Run(ctx, agent.RunRequest{Question: question})
	if err != nil {
		return err
	}

	if len(result.ToolsUsed) > 0 {
		logger.Debug().Strs("tools", result.ToolsUsed).Msg("tools used")
	}
	fmt.Println(result.Content)
	return nil
}

func runServer(ctx context.Context) error {
	router := createRouter(ctx)
	tools, err := createToolHandler(allTools)
	if err != nil {
		return err
	}

	ag := agent.NewAgent(router, tools, agent.ChatPrompt, logger)
	server := api.NewServer(ag, router, cfg, logger)

	return server.Start()
}

func runStatus(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fmt.Println("Model availability")
	fmt.Println("==================")
	fmt.Printf("  Provider:  %s\n", cfg.LLMProvider)
	if err := cfg.RequireModel(); err != nil {
		fmt.Printf("  Problem:   %v\n", err)
	}

	ollama := llm.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
	if ollama.IsAvailable(ctx) {
		fmt.Printf("  Ollama:    reachable at %s (%s)\n", cfg.OllamaURL, cfg.OllamaModel)
	} else {
		fmt.Printf("  Ollama:    not reachable at %s\n", cfg.OllamaURL)
	}

	fmt.Printf("  Anthropic: %s\n", keyStatus(cfg.AnthropicAPIKey != ""))
	fmt.Printf("  OpenAI:    %s\n", keyStatus(cfg.OpenAIAPIKey != ""))

	if client := createRouter(ctx).Route(""); client != nil {
		fmt.Printf("\nDefault client: %s\n", client.Name())
	} else {
		fmt.Println("\nNo model available.")
	}
	return nil
}

func keyStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not set"
}
