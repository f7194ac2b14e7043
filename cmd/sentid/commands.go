package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/sentid/internal/config"
	"github.com/kalambet/sentid/internal/ollama"
)

// --- analyze / get ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Classify text with the running server and store the prediction",
	Long: `Classify text with the running server and store the prediction.

Examples:
  sentid analyze "I feel stressed but also hopeful about the future."
  sentid analyze --json "What a day"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/sentiment/", map[string]string{
			"text": strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		return showRecord(cmd, resp)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a stored prediction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be an integer: %q", args[0])
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/sentiment/"+strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		return showRecord(cmd, resp)
	},
}

func showRecord(cmd *cobra.Command, resp *http.Response) error {
	var raw json.RawMessage
	if err := decodeJSON(resp, &raw); err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "print the raw JSON record")
	getCmd.Flags().Bool("json", false, "print the raw JSON record")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and model status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}
		showStatus(cmd, cfg, &http.Client{Timeout: 2 * time.Second})
		return nil
	},
}

func showStatus(cmd *cobra.Command, cfg config.Config, hc *http.Client) {
	baseURL := clientBaseURL(cfg)
	resp, err := hc.Get(baseURL + "/health")
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case resp.StatusCode == http.StatusOK:
		resp.Body.Close()
		printStatus("Server", "running at %s", baseURL)
	default:
		resp.Body.Close()
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	}

	printStatus("Variant", "%s", cfg.Model.Variant)
	printStatus("Backend", "%s", cfg.Model.Backend)
	if cfg.Model.Backend == config.BackendOllama {
		printStatus("Model", "%s", cfg.Ollama.Model)
		if ollama.New(cfg.Ollama.BaseURL).IsRunning(cmd.Context()) {
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		} else {
			printStatus("Ollama", "not running")
		}
	} else {
		printStatus("Model", "%s", cfg.ModelID())
		printStatus("Endpoint", "%s", cfg.HuggingFace.BaseURL)
	}
	printStatus("Labels", "%s", strings.Join(labelSet(cfg), ", "))
	printStatus("Store", "%s", cfg.Storage.Path)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", labelColor.Sprint(k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys and their environment variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printWarning("config error, showing keys only: %v", err)
		}
		t := newTable(cmd.OutOrStdout(), "Key", "Environment", "Value")
		for _, k := range config.ShowAll(cfg) {
			t.Append([]string{k.Key, k.EnvVar, k.Value})
		}
		t.Render()
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeysCmd)
}
