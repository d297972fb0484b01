package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jo-hoe/gallery/internal/backend"
	"github.com/jo-hoe/gallery/internal/common"
	"github.com/jo-hoe/gallery/internal/core"
	"github.com/jo-hoe/gallery/internal/logging"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var port int

	cmd := &cobra.Command{
		Use:          "gallery-server",
		Short:        "Serve the image gallery API and uploaded files",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port != 0 {
				config.Port = port
			}
			return run(config)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config (default $CONFIG_PATH or ./config.yaml)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on, overrides the config file")

	return cmd
}

// getConfigPath returns the config path and whether it was asked for explicitly.
func getConfigPath(flagValue string) (string, bool) {
	if flagValue != "" {
		return flagValue, true
	}
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, true
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "config.yaml", false
	}
	return filepath.Join(cwd, "config.yaml"), false
}

func loadConfig(flagValue string) (*core.ServiceConfig, error) {
	// .env is optional; it only seeds variables such as CONFIG_PATH and LOG_LEVEL
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	slog.SetDefault(logging.CreateLogger())

	configPath, explicit := getConfigPath(flagValue)
	if _, err := os.Stat(configPath); !explicit && errors.Is(err, fs.ErrNotExist) {
		slog.Warn("no config file found, using defaults", "path", configPath)
		return core.DefaultConfig(), nil
	}

	config, err := core.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		return nil, err
	}
	return config, nil
}

func run(config *core.ServiceConfig) error {
	galleryService, err := core.NewGalleryServiceFromConfig(config)
	if err != nil {
		return fmt.Errorf("failed to initialize gallery service: %w", err)
	}

	server := defineServer()
	apiService := backend.NewAPIService(config, galleryService)
	apiService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("starting server", "port", config.Port, "metadata", config.Metadata.Type, "uploads", config.Uploads.Dir)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := galleryService.Close(); err != nil {
		log.Printf("gallery service close error: %v", err)
	}
	return nil
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Configure request logger to skip the health probe
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == backend.HealthPath
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRoutePath: true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				slog.Error("request failed", append(attrs, "error", v.Error)...)
			} else {
				slog.Info("request", attrs...)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = &common.GenericEchoValidator{}

	return e
}
