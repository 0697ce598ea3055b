package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/podcast-rag/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize podrag configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick the transcript directory, embedding provider and index backend, and writes podrag.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
