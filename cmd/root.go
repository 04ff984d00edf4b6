// Package cmd holds the kanban-board command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban-board/config"
	"github.com/CrowderSoup/kanban-board/logging"
)

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCmd() *cobra.Command {
	var (
		envFile string
		cfg     config.Config
	)

	root := &cobra.Command{
		Use:   "kanban-board",
		Short: "kanban-board - a single-user kanban board server",
		Long: `kanban-board keeps boards, columns and cards in one snapshot and serves
them over a JSON API with a websocket change feed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(envFile); err != nil {
				return err
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return logging.Setup(cfg.Log)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file to load before reading the environment")

	conf := func() config.Config { return cfg }

	serve := serveCmd(conf)
	root.RunE = serve.RunE
	root.AddCommand(serve)
	root.AddCommand(boardCmd(conf))
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
