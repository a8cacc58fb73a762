package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/docchat/docchat/config"
	"github.com/docchat/docchat/internal/logger"
)

var (
	cfg       *config.Config
	appLogger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat ingests documents into a vector store and answers questions about
them with a chat model that can also search the web and tell the time.

Run "docchat serve" for the HTTP API and "docchat chat" for the terminal client.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.docchat/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err = config.Load(path)
	if err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	appLogger = logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}
