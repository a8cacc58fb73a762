package main

import (
	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/client"
	"github.com/docchat/docchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat client",
	Long: `Open the terminal chat client against a running "docchat serve".

Type /help inside the client for commands.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("server", "", "server URL (overrides client.server_url)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	url := cfg.Client.ServerURL
	if s, _ := cmd.Flags().GetString("server"); s != "" {
		url = s
	}
	return tui.Run(client.New(url, nil), cfg.PlaybackInterval())
}
