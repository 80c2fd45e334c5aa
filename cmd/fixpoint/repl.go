package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fixpoint-ai/fixpoint/internal/memory"
	"github.com/fixpoint-ai/fixpoint/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive shell",
	Long: `Start an interactive session. Free-text requests are routed to the
specialist agents by keyword; "review app.py" runs the full audit pipeline,
"security scan app.py" consults a single specialist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newAgentClient(store)
		if err != nil {
			return err
		}

		registry, err := newToolRegistry()
		if err != nil {
			return err
		}
		shell, err := repl.New(&repl.Config{
			Client: client,
			Reader: newReader(),
			Memory: memory.New(cfg.MemoryPath),
			Tools:  registry,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
		defer stop()
		return shell.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
