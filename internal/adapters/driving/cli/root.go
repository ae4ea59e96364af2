// Package cli provides the cobra command tree of the hierag binary.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hierag/internal/core/ports/driving"
	"github.com/custodia-labs/hierag/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Services bundles the driving ports the commands call.
type Services struct {
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Documents driving.DocumentService
	Settings  driving.SettingsService
	Log       *logger.Logger
}

// BootstrapOptions carries the global flags into the composition root.
type BootstrapOptions struct {
	ConfigPath string
	Verbose    bool
	JSONLogs   bool
	LogOutput  io.Writer
}

// Bootstrap builds the services for one invocation. The returned cleanup
// function releases stores and clients.
type Bootstrap func(ctx context.Context, opts BootstrapOptions) (*Services, func(), error)

// Services used by the commands. Tests assign them directly.
var (
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
	documentService  driving.DocumentService
	settingsService  driving.SettingsService
	log              = logger.Nop()
)

var (
	bootstrap Bootstrap
	cleanup   func()

	configPath string
	verbose    bool
	jsonLogs   bool
)

// skipServices marks commands that run without bootstrapping.
const skipServices = "skip-services"

var rootCmd = &cobra.Command{
	Use:   "hierag",
	Short: "Hierarchical retrieval over structured documents",
	Long: `hierag indexes structured documents (statutes, regulations, handbooks) into
a chunk tree, embeds summary and detail nodes into two vector indexes, and
answers queries with each hit's ancestors, children and siblings.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.hierag/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "write logs as JSON")
}

// Execute runs the command tree.
func Execute(ctx context.Context, buildVersion string, boot Bootstrap) error {
	if buildVersion != "" {
		version = buildVersion
	}
	bootstrap = boot
	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	_ = teardownServices(rootCmd, nil) //nolint:errcheck // never fails
	return err
}

func setupServices(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipServices] == "true" || bootstrap == nil {
		return nil
	}

	svc, done, err := bootstrap(commandContext(cmd), BootstrapOptions{
		ConfigPath: configPath,
		Verbose:    verbose,
		JSONLogs:   jsonLogs,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	indexService = svc.Index
	retrievalService = svc.Retrieval
	documentService = svc.Documents
	settingsService = svc.Settings
	if svc.Log != nil {
		log = svc.Log
	}
	cleanup = done
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
	return nil
}

// commandContext returns the command context, or Background for commands
// executed without one (tests calling Execute).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var errNotConfigured = errors.New("service not configured")
