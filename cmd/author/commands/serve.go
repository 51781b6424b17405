package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/author-ai/author/internal/config"
	"github.com/author-ai/author/internal/logging"
	"github.com/author-ai/author/internal/relay"
	"github.com/author-ai/author/internal/server"
	"github.com/author-ai/author/internal/session"
	"github.com/author-ai/author/internal/storage"
	"github.com/author-ai/author/internal/tool"
	"github.com/author-ai/author/internal/transport"
)

var (
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Author server",
	Long: `Start Author as a headless server exposing the thread and streaming
API over HTTP, with live turn events on the SSE endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Project directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if appConfig.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		logging.Init(logging.Config{
			Level:     logging.ParseLevel(appConfig.LogLevel),
			Output:    os.Stderr,
			Pretty:    true,
			LogToFile: logToFile,
		})
	}

	logging.Info().
		Str("version", Version).
		Str("directory", workDir).
		Str("model", appConfig.Model).
		Str("mode", appConfig.Mode).
		Msg("starting author server")

	threads := storage.NewThreadStore(storage.New(appConfig.DataDir))
	bus := relay.New()
	defer bus.Close()

	registry := session.NewRegistry()
	runner := session.NewRunner(session.RunnerOptions{
		Client:      transport.NewClient(appConfig.BaseURL, appConfig.APIKey),
		Relay:       bus,
		Registry:    registry,
		Store:       threads,
		Tools:       tool.DefaultRegistry(workDir),
		Model:       appConfig.Model,
		MaxTokens:   appConfig.MaxTokens,
		Temperature: appConfig.Temperature,
	})

	serverConfig := server.DefaultConfig()
	serverConfig.Port = servePort
	serverConfig.Directory = workDir

	srv := server.New(serverConfig, appConfig, threads, registry, runner, bus)

	go func() {
		logging.Info().Int("port", servePort).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}
