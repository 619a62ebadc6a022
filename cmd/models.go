package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/cache"
	"github.com/codewright/codewright/internal/config"
	"github.com/codewright/codewright/internal/llm"
	"github.com/codewright/codewright/internal/pricing"
)

var (
	modelsProvider string
	modelsRemote   bool
	modelsRefresh  bool
	modelsJSON     bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models with pricing",
	Long: `List the curated models for each provider with their API pricing.

With --remote, query the provider's models API instead; useful for
discovering models the curated list does not carry (such as everything
an Ollama server has pulled).

Examples:
  codewright models                       # curated models, all providers
  codewright models --provider anthropic  # one provider
  codewright models --remote              # ask the active provider
  codewright models --json                # machine-readable output`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsProvider, "provider", "p", "", "Provider to list models for")
	modelsCmd.Flags().BoolVar(&modelsRemote, "remote", false, "Query the provider's models API")
	modelsCmd.Flags().BoolVar(&modelsRefresh, "refresh", false, "Skip the cached listing when using --remote")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	if err := modelsCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion); err != nil {
		panic("failed to register provider completion: " + err.Error())
	}

	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	if modelsRemote {
		return listRemoteModels()
	}
	return listCuratedModels()
}

// curatedModel is one row of the curated table, shaped for JSON output.
type curatedModel struct {
	Provider           string   `json:"provider"`
	Model              string   `json:"model"`
	InputPerMTok       *float64 `json:"input_per_mtok,omitempty"`
	OutputPerMTok      *float64 `json:"output_per_mtok,omitempty"`
	CachedInputPerMTok *float64 `json:"cached_input_per_mtok,omitempty"`
}

func listCuratedModels() error {
	var rows []curatedModel
	for _, provider := range llm.BuiltInProviderNames() {
		if modelsProvider != "" && provider != modelsProvider {
			continue
		}
		for _, model := range llm.ProviderModels[provider] {
			row := curatedModel{Provider: provider, Model: model}
			if p, ok := pricing.Lookup(model); ok {
				row.InputPerMTok = &p.InputPerMTok
				row.OutputPerMTok = &p.OutputPerMTok
				if p.CachedInputPerMTok > 0 {
					row.CachedInputPerMTok = &p.CachedInputPerMTok
				}
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return fmt.Errorf("no curated models for provider %q (try --remote)", modelsProvider)
	}

	if modelsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tIN $/MTOK\tOUT $/MTOK\tCACHED $/MTOK")
	lastProvider := ""
	for _, row := range rows {
		provider := row.Provider
		if provider == lastProvider {
			provider = ""
		} else {
			lastProvider = provider
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			provider, row.Model,
			formatPerMTok(row.InputPerMTok),
			formatPerMTok(row.OutputPerMTok),
			formatPerMTok(row.CachedInputPerMTok))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var aliases []string
	for _, a := range llm.ModelAliases() {
		aliases = append(aliases, fmt.Sprintf("%s=%s", a.Alias, a.Model))
	}
	fmt.Printf("\nAliases: %s\n", strings.Join(aliases, ", "))
	fmt.Println("Pick one with --model, or set model in your config.")
	return nil
}

func formatPerMTok(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func listRemoteModels() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	providerName := modelsProvider
	if providerName == "" {
		providerName = cfg.Provider
	}

	models, err := remoteModelList(cfg, providerName)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("No models found.")
		return nil
	}

	if modelsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	fmt.Printf("Models from %s:\n\n", providerName)
	for _, m := range models {
		line := "  " + m.ID
		if m.DisplayName != "" && m.DisplayName != m.ID {
			line += fmt.Sprintf(" (%s)", m.DisplayName)
		}
		fmt.Println(line)
	}
	return nil
}

// remoteModelList returns the provider's listing, served from the local
// cache while it is fresh. Cache failures fall back to fetching.
func remoteModelList(cfg *config.Config, providerName string) ([]llm.ModelInfo, error) {
	if !modelsRefresh {
		if list, err := cache.ReadModels(providerName); err == nil && list.Fresh() {
			models := make([]llm.ModelInfo, 0, len(list.Models))
			for _, m := range list.Models {
				models = append(models, llm.ModelInfo{
					ID:          m.ID,
					DisplayName: m.DisplayName,
					Created:     m.Created,
					OwnedBy:     m.OwnedBy,
				})
			}
			return models, nil
		}
	}

	provider, err := llm.NewProviderByName(cfg, providerName)
	if err != nil {
		return nil, err
	}
	lister, ok := provider.(llm.ModelLister)
	if !ok {
		return nil, fmt.Errorf("provider %q does not support model listing", providerName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return nil, fmt.Errorf("cannot reach %s; is the server running? (for Ollama: 'ollama serve')", providerName)
		}
		return nil, fmt.Errorf("list models: %w", err)
	}

	if len(models) > 0 {
		cached := make([]cache.Model, 0, len(models))
		for _, m := range models {
			cached = append(cached, cache.Model{
				ID:          m.ID,
				DisplayName: m.DisplayName,
				Created:     m.Created,
				OwnedBy:     m.OwnedBy,
			})
		}
		if err := cache.WriteModels(providerName, cached); err != nil {
			slog.Warn("failed to cache model listing", "provider", providerName, "error", err)
		}
	}
	return models, nil
}
