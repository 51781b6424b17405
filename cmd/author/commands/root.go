// Package commands provides the CLI commands for Author.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/author-ai/author/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	logToFile bool
)

var rootCmd = &cobra.Command{
	Use:   "author",
	Short: "Author - AI writing assistant server",
	Long: `Author is an AI writing assistant for book-length projects. It keeps
conversation threads per manuscript and streams model turns over an HTTP
and SSE API.

Run 'author serve' to start the server.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A project-local .env is a convenience for API keys; missing is fine.
		_ = godotenv.Load()

		logging.Init(logging.Config{
			Level:     logging.ParseLevel(logLevel),
			Output:    os.Stderr,
			Pretty:    true,
			LogToFile: logToFile,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", false, "Also write logs to a file in /tmp")

	rootCmd.SetVersionTemplate(fmt.Sprintf("author %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
