package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"studytec-client/internal/app"
)

// NewGenerateCmd generates one lesson and prints it as JSON.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate a lesson and quiz for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			client := rt.newClient()
			defer client.Close()
			if apiKey != "" {
				client.Configure(app.Settings{BackendURL: client.Settings().BackendURL, APIKey: apiKey})
			}

			artifact, err := client.Generate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(artifact)
		},
	}
	cmd.Flags().StringVar(&apiKey, "key", "", "AI API key (overrides config and STUDYTEC_AI_KEY)")
	return cmd
}
