package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attentiond",
	Short: "Audience attention measurement for digital out-of-home campaigns",
	Long: `Attentiond watches the audience in front of a display, tracks who is
present and who is actually looking, drives campaign audio playback
while someone is around, and writes per-person attention reports at
the end of the session.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
