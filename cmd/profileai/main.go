package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "profileai",
	Short:         "Local resume builder with live template previews",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(resumeCmd, experienceCmd, educationCmd, skillCmd)
	rootCmd.AddCommand(templateCmd, previewCmd, exportCmd, shareCmd, configCmd)
}

func main() {
	// A .env next to the binary may carry PROFILEAI_* overrides.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// versionString is printed on server start.
func versionString() string {
	return fmt.Sprintf("profileai version %s", version)
}
