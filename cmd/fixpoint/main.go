package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fixpoint-ai/fixpoint/internal/agent"
	"github.com/fixpoint-ai/fixpoint/internal/config"
	"github.com/fixpoint-ai/fixpoint/internal/storage"
	"github.com/fixpoint-ai/fixpoint/internal/tools"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fixpoint",
	Short: "Safe autonomous code repair",
	Long: `fixpoint orchestrates LLM specialist agents around a safe code-mutation
protocol: every proposed change is backed up, applied, verified against the
test suite, and rolled back automatically when verification fails.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath,
		"path to the fixpoint config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the event store from config. Callers must Close it.
func openStore() (*storage.Store, error) {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}
	return store, nil
}

// newAgentClient builds the shared LLM client with usage recording wired to
// the event store.
func newAgentClient(store *storage.Store) (*agent.Client, error) {
	return agent.NewClient(&agent.Config{
		Model:             cfg.Model,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxConcurrent:     cfg.MaxConcurrentCalls,
		Usage:             store,
	})
}

// projectRoot resolves the root for file tool confinement.
func projectRoot() string {
	if cfg.ProjectRoot != "" {
		return cfg.ProjectRoot
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// newReader builds the confined file reader tool.
func newReader() tools.Tool {
	return &tools.FileReader{Root: projectRoot()}
}

// newToolRegistry builds the full capability registry for the repl.
func newToolRegistry() (*tools.Registry, error) {
	root := projectRoot()
	registry := tools.NewRegistry()
	for _, t := range []tools.Tool{
		&tools.FileReader{Root: root},
		&tools.FileWriter{Root: root},
		&tools.ShellTool{Dir: root},
	} {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
