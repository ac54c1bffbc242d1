package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nelssec/llm-workflows/config"
	"github.com/nelssec/llm-workflows/internal/credentials"
)

// stdin is shared so buffered input is not lost between prompts.
var stdin = bufio.NewReader(os.Stdin)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage stored API keys and inspect settings",
		Long: `Store provider API keys in the OS keychain (macOS Keychain, Windows
Credential Manager, Secret Service on Linux) and inspect the resolved
settings. Environment variables and .env always take precedence.

Examples:
  llm-workflows config setup --anthropic-key sk-ant-...
  llm-workflows config show
  llm-workflows config clear`,
		// Keys can be managed before any provider is usable.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	cmd.AddCommand(configSetupCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configClearCmd())

	return cmd
}

func configSetupCmd() *cobra.Command {
	flags := map[credentials.KeyType]*string{
		credentials.KeyAnthropic: new(string),
		credentials.KeyOpenAI:    new(string),
	}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Store API keys in the OS keychain",
		Long:  "Store API keys in the OS keychain. Keys not given as flags are prompted for; press Enter to skip one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[credentials.KeyType]string, len(credentials.Keys))
			for _, k := range credentials.Keys {
				v := strings.TrimSpace(*flags[k])
				if v == "" && !cmd.Flags().Changed(flagName(k)) {
					fmt.Printf("%s (press Enter to skip): ", k.Label())
					entered, err := readSecret()
					if err != nil {
						return errors.Wrapf(err, "failed to read %s", k.Label())
					}
					v = strings.TrimSpace(entered)
				}
				values[k] = v
			}

			if err := credentials.Store(values); err != nil {
				return err
			}

			fmt.Println("Keys stored in the OS keychain.")
			return nil
		},
	}

	for _, k := range credentials.Keys {
		cmd.Flags().StringVar(flags[k], flagName(k), "", k.Label())
	}
	return cmd
}

// flagName maps anthropic_api_key to --anthropic-key.
func flagName(k credentials.KeyType) string {
	return strings.ReplaceAll(strings.TrimSuffix(string(k), "_api_key"), "_", "-") + "-key"
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show stored keys and resolved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			stored := credentials.ListConfigured()
			fmt.Println("Keychain:")
			for _, k := range credentials.Keys {
				fmt.Printf("  %-18s %s\n", k.Label()+":", keyStatus(stored[k]))
			}

			loaded, err := config.Load()
			if err != nil {
				fmt.Printf("\nSettings could not be loaded: %v\n", err)
				return nil
			}

			fmt.Println("\nSettings:")
			fmt.Printf("  %-18s %s\n", "Provider:", loaded.LLMProvider)
			fmt.Printf("  %-18s %s (%s)\n", "Ollama:", loaded.OllamaURL, loaded.OllamaModel)
			fmt.Printf("  %-18s %s\n", "Anthropic key:", keyStatus(loaded.AnthropicAPIKey != ""))
			fmt.Printf("  %-18s %s\n", "OpenAI key:", keyStatus(loaded.OpenAIAPIKey != ""))
			fmt.Printf("  %-18s %s\n", "Weather API:", loaded.WeatherAPIURL)
			kb := loaded.KBPath
			if kb == "" {
				kb = "built-in"
			}
			fmt.Printf("  %-18s %s\n", "Knowledge base:", kb)
			return nil
		},
	}
}

func configClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all stored keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Print("Remove all keys stored by llm-workflows? [y/N]: ")
				answer, _ := stdin.ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(answer)) {
				case "y", "yes":
				default:
					fmt.Println("Cancelled.")
					return nil
				}
			}

			if err := credentials.ClearAll(); err != nil {
				return err
			}
			fmt.Println("Stored keys removed.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// readSecret reads one line without echo when stdin is a terminal.
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return line, nil
		}
		return line, err
	}
	b, err := term.ReadPassword(fd)
	fmt.Println()
	return string(b), err
}
