package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showSecrets bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file, .env and
MEMOSYNC_* variables. Tokens and API keys are masked unless --show-secrets is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, used := loadConfig()
		if !showSecrets {
			cfg.Memos.Token = mask(cfg.Memos.Token)
			cfg.AI.APIKey = mask(cfg.AI.APIKey)
		}
		if used != "" {
			os.Stdout.WriteString("# " + used + "\n")
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fatal("Failed to encode configuration", err)
		}
		enc.Close()
	},
}

func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return secret[:4] + "****"
}

func init() {
	configCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print tokens and API keys in clear text")
	rootCmd.AddCommand(configCmd)
}
