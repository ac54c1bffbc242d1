package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nelssec/llm-workflows/internal/agent"
	"github.com/nelssec/llm-workflows/internal/calendar"
	"github.com/nelssec/llm-workflows/internal/goals"
	"github.com/nelssec/llm-workflows/internal/routing"
	"github.com/nelssec/llm-workflows/pkg/models"
)

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract a calendar event from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			client, err := createClient(cmd.Context(), text)
			if err != nil {
				return err
			}

			event, err := calendar.Extract(cmd.Context(), client, text)
			if err != nil {
				return err
			}
			return printJSON(event)
		},
	}
}

func chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain [text]",
		Short: "Run the gated event extraction chain",
		Long:  "Judge whether the text is a calendar event, parse its details and write a confirmation.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			client, err := createClient(cmd.Context(), text)
			if err != nil {
				return err
			}

			result, err := calendar.NewChain(client, logger).Run(cmd.Context(), text)
			if err != nil {
				return err
			}

			if !result.Passed() {
				fmt.Println("This doesn't appear to be a calendar event request.")
				return nil
			}
			fmt.Println(result.Confirmation.ConfirmationMessage)
			if result.Confirmation.CalendarLink != "" {
				fmt.Printf("Calendar link: %s\n", result.Confirmation.CalendarLink)
			}
			return nil
		},
	}
}

// processFunc is the Process method of a routed assistant.
type processFunc func(ctx context.Context, input string) (*routing.Response, error)

func calendarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendar [request]",
		Short: "Create or modify calendar events",
		Long: `Route a calendar request to the new-event or modify-event handler.
Without arguments, starts a session where later requests can modify
the event created earlier.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssistant(cmd.Context(), args, func(ctx context.Context, first string) (processFunc, *routing.State, error) {
				client, err := createClient(ctx, first)
				if err != nil {
					return nil, nil, err
				}
				a := calendar.NewAssistant(client, logger)
				return a.Process, a.State(), nil
			})
		},
	}
}

func goalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goals [request]",
		Short: "Set, change or ask about a goal",
		Long: `Route a goal request to the new, modify or retrieve handler.
Without arguments, starts a session that keeps the goal between requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssistant(cmd.Context(), args, func(ctx context.Context, first string) (processFunc, *routing.State, error) {
				client, err := createClient(ctx, first)
				if err != nil {
					return nil, nil, err
				}
				a := goals.NewAssistant(client, logger)
				return a.Process, a.State(), nil
			})
		},
	}
}

func runAssistant(ctx context.Context, args []string, build func(ctx context.Context, first string) (processFunc, *routing.State, error)) error {
	if len(args) > 0 {
		input := strings.Join(args, " ")
		process, state, err := build(ctx, input)
		if err != nil {
			return err
		}
		return processAndPrint(ctx, process, state, input)
	}

	process, state, err := build(ctx, "")
	if err != nil {
		return err
	}

	fmt.Println("Type a request, or 'exit' to quit.")
	for {
		fmt.Print("> ")
		input, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		if err := processAndPrint(ctx, process, state, input); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("Error: %v\n", err)
		}
		fmt.Println()
	}
}

func processAndPrint(ctx context.Context, process processFunc, state *routing.State, input string) error {
	resp, err := process(ctx, input)
	if err != nil {
		return err
	}

	if resp.Rejected() {
		fmt.Println(resp.Message)
		return nil
	}

	fmt.Println(resp.Message)
	if resp.Link != "" {
		fmt.Printf("Calendar link: %s\n", resp.Link)
	}

	snapshot := state.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, snapshot[k])
	}
	return nil
}

func weatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weather [question]",
		Short: "Answer a weather question using live data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := createAgent(cmd.Context(), agent.WeatherPrompt, weatherTools)
			if err != nil {
				return err
			}

			out, result, err := agent.Ask[models.WeatherResponse](cmd.Context(), ag, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if out == nil {
				fmt.Println(result.Content)
				return nil
			}
			fmt.Printf("%s\nTemperature: %.1f°C\n", out.Response, out.Temperature)
			return nil
		},
	}
}

func kbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kb [question]",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := createAgent(cmd.Context(), agent.KnowledgePrompt, knowledgeTools)
			if err != nil {
				return err
			}

			out, result, err := agent.Ask[models.KBResponse](cmd.Context(), ag, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if out == nil {
				fmt.Println(result.Content)
				return nil
			}
			fmt.Printf("%s\nSource: record %d\n", out.Answer, out.Source)
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
