package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure storage, embedding, chunking and retrieval settings.

Settings are read from the config file and overridden by environment
variables (HIERAG_DB_PATH, HIERAG_POSTGRES_DSN, HIERAG_EMBED_PROVIDER,
EMBED_API_BASE, EMBED_API_KEY, EMBED_MODEL_NAME).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long:  `Interactively select the embedding provider, model, endpoint and API key.`,
	RunE:  runSettingsEmbedding,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the embedding endpoint",
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings: %w", errNotConfigured)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StorageBackendSQLite:
		dir := settings.Storage.DataDir
		if dir == "" {
			dir = "(default)"
		}
		cmd.Printf("  Data dir: %s\n", dir)
	case domain.StorageBackendPostgres:
		cmd.Printf("  DSN: %s\n", maskDSN(settings.Storage.PostgresDSN))
	}
	cmd.Println()

	e := &settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	cmd.Printf("  Model: %s\n", e.Model)
	if e.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
	}
	if e.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(e.APIKey))
	} else if e.Provider == domain.AIProviderOpenAI {
		cmd.Printf("  API Key: (not set)\n")
	}
	if e.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", e.Dimensions)
	}
	cmd.Printf("  Batch size: %d\n", e.BatchSize)
	if e.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %g req/s (burst %d)\n", e.RequestsPerSecond, e.Burst)
	} else {
		cmd.Printf("  Rate limit: none\n")
	}
	cmd.Printf("  Timeout: %s\n", e.Timeout)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Max chunk size: %d\n", settings.Chunking.MaxChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	r := &settings.Retrieval
	cmd.Println("[Retrieval]")
	cmd.Printf("  Strategy: %s\n", r.Strategy)
	cmd.Printf("  Top K: %d\n", r.K)
	cmd.Printf("  Summary K: %d\n", r.SummaryK)
	cmd.Printf("  Details per summary: %d\n", r.DetailPerSummary)
	cmd.Printf("  Max parent depth: %d\n", r.MaxParentDepth)
	if r.ContentMaxLength > 0 {
		cmd.Printf("  Content max length: %d\n", r.ContentMaxLength)
	}
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Extensions: %s\n", strings.Join(settings.Index.Extensions, ", "))
	cmd.Printf("  Concurrency: %d\n", settings.Index.Concurrency)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Edit the config file or run 'hierag settings embedding' to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings: %w", errNotConfigured)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Embedding Provider")
	providers := domain.AllAIProviders()
	current := 1
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
		if p == settings.Embedding.Provider {
			current = i + 1
		}
	}
	cmd.Printf("\nEnter choice [%d]: ", current)
	provider := providers[parseChoice(readLine(reader), len(providers), current)-1]

	defaultModel := domain.DefaultEmbeddingModels()[provider]
	if provider == settings.Embedding.Provider && settings.Embedding.Model != "" {
		defaultModel = settings.Embedding.Model
	}
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	baseURL := ""
	if provider == settings.Embedding.Provider {
		baseURL = settings.Embedding.BaseURL
	}
	cmd.Printf("Enter base URL [%s]: ", orDefault(baseURL, "provider default"))
	if v := readLine(reader); v != "" {
		baseURL = v
	}

	apiKey := ""
	if provider == domain.AIProviderOpenAI {
		cmd.Print("Enter API key (blank to keep current): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" && provider == settings.Embedding.Provider {
			apiKey = settings.Embedding.APIKey
		}
	}

	dims := 0
	if _, known := domain.EmbeddingDimensions()[model]; !known {
		cmd.Print("Unknown model, enter vector dimensions: ")
		dims, err = strconv.Atoi(readLine(reader))
		if err != nil || dims <= 0 {
			return fmt.Errorf("%w: dimensions must be a positive number", domain.ErrInvalidInput)
		}
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	settings.Embedding.BaseURL = baseURL
	settings.Embedding.APIKey = apiKey
	settings.Embedding.Dimensions = dims
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save embedding settings: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	cmd.Println("Existing documents must be re-indexed with --force if the model changed.")
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings: %w", errNotConfigured)
	}

	st := newStyles(cmd.OutOrStdout())
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("%s %v\n", st.Error.Render("settings:"), err)
		return err
	}
	cmd.Printf("%s valid\n", st.Success.Render("settings:"))

	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("%s %v\n", st.Error.Render("embedding:"), err)
		return err
	}
	cmd.Printf("%s reachable\n", st.Success.Render("embedding:"))
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a plain line.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a postgres connection string.
func maskDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":****@" + host
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
