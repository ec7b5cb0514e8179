package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"StoryToVideo-workspace/config"
	"StoryToVideo-workspace/logging"
	"StoryToVideo-workspace/models"
	"StoryToVideo-workspace/routers"
	"StoryToVideo-workspace/service"
	"StoryToVideo-workspace/stubbackend"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "storytovideo",
		Short:         "StoryToVideo project workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newStubBackendCommand(ctx))
	return rootCmd
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the workspace web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
				if !strings.Contains(port, ":") {
					cfg.Server.Port = ":" + port
				}
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			if !logging.IsTerminal(os.Stdout) {
				gin.DisableConsoleColor()
			}

			client := service.NewClient(cfg.Backend.BaseURL,
				service.WithTimeout(time.Duration(cfg.Backend.RequestTimeout)*time.Second),
				service.WithMediaHost(cfg.Backend.MediaHost),
				service.WithLogger(logger),
			)
			ws := service.NewWorkspace(client, service.WorkspaceOptions{
				MaxUploadBytes: cfg.Upload.MaxBytes,
				Logger:         logger,
			})
			srv := &http.Server{
				Addr:              cfg.Server.Port,
				Handler:           routers.InitRouter(ws, logger, cfg.Server.AllowedOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("workspace starting",
				slog.String("addr", cfg.Server.Port),
				slog.String("backend", cfg.Backend.BaseURL),
			)
			err = runHTTPServer(cmd.Context(), srv, logger)
			ws.Wait()
			return err
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen address, overrides server.port")
	return cmd
}

func newStubBackendCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub-backend",
		Short: "Run a placeholder generation backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			opts := stubbackend.Options{
				FailRate: cfg.Stub.FailRate,
				Latency:  time.Duration(cfg.Stub.LatencyMS) * time.Millisecond,
				Logger:   logger,
			}
			if m := cfg.Stub.MinIO; m.Endpoint != "" {
				store, err := stubbackend.NewMinioStore(stubbackend.MinioOptions{
					Endpoint:  m.Endpoint,
					AccessKey: m.AccessKey,
					SecretKey: m.SecretKey,
					Bucket:    m.Bucket,
					UseSSL:    m.UseSSL,
					Expiry:    time.Duration(m.ExpiryHours) * time.Hour,
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				opts.Store = store
			} else {
				opts.Store = stubbackend.LocalStore{Dir: cfg.Stub.OutputDir}
				opts.FilesDir = cfg.Stub.OutputDir
			}

			srv := &http.Server{
				Addr:              cfg.Stub.Addr,
				Handler:           stubbackend.NewServer(opts).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("stub backend starting",
				slog.String("addr", cfg.Stub.Addr),
				slog.Float64("fail_rate", cfg.Stub.FailRate),
			)
			return runHTTPServer(cmd.Context(), srv, logger)
		},
	}
	return cmd
}

func newInspectCommand() *cobra.Command {
	var expand bool
	cmd := &cobra.Command{
		Use:   "inspect <project.json>",
		Short: "Validate a project file and list its shots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := models.LoadProjectFile(args[0])
			if err != nil {
				return err
			}
			if expand {
				stubbackend.ExpandProject(project)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n", project.Project)
			fmt.Fprintf(out, "Scenes: %d  Shots: %d\n", len(project.Scenes), project.ShotCount())
			fmt.Fprintln(out, renderShotTable(project))
			return nil
		},
	}
	cmd.Flags().BoolVar(&expand, "expand", false, "Expand style block and reference placeholders before listing")
	return cmd
}

// runHTTPServer 阻塞直到收到 SIGINT/SIGTERM 或 ctx 结束，然后优雅关闭
func runHTTPServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.String("addr", srv.Addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
