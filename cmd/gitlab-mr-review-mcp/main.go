package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/config"
	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/gitlab"
	iolog "github.com/InkyQuill/gitlab-mr-review-mcp/pkg/log"
	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/translations"
)

// Injected by goreleaser
var version = "dev"
var commit = "none"
var date = "unknown"

const shutdownTimeout = 10 * time.Second

var (
	rootCmd = &cobra.Command{
		Use:   "gitlab-mr-review-mcp",
		Short: "GitLab merge request review MCP server",
		Long: `An MCP server that lets an assistant review GitLab merge requests: read metadata,
diffs and diff versions, then post line comments and general notes.`,
		Version: fmt.Sprintf("Version: %s\nCommit: %s\nBuild Date: %s", version, commit, date),
	}

	stdioCmd = &cobra.Command{
		Use:   "stdio",
		Short: "Start server communicating via standard input/output",
		Long:  `Listens for JSON-RPC messages on stdin and writes responses to stdout.`,
		Run: func(_ *cobra.Command, _ []string) {
			if viper.GetBool(config.KeyExportTranslations) {
				exportTranslations()
				return
			}
			app := mustSetup(true)
			defer app.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runStdio(ctx, app); err != nil {
				app.logger.Errorf("Server encountered an error: %v", err)
			}
			app.logger.Info("Server shutting down.")
		},
	}

	httpCmd = &cobra.Command{
		Use:   "http",
		Short: "Start server using the streamable HTTP transport",
		Long:  `Serves MCP over streamable HTTP on --http-addr:--http-port (PORT is honoured when no port is set).`,
		Run: func(_ *cobra.Command, _ []string) {
			if viper.GetBool(config.KeyExportTranslations) {
				exportTranslations()
				return
			}
			app := mustSetup(false)
			defer app.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runHTTP(ctx, app); err != nil {
				app.logger.Errorf("Server encountered an error: %v", err)
			}
			app.logger.Info("Server shutting down.")
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetVersionTemplate("{{.Short}}\n{{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.String("gitlab-url", "", "GitLab instance URL, e.g. https://gitlab.com (an /api/v4 suffix is accepted)")
	flags.String("gitlab-token", "", "GitLab access token (falls back to GITLAB_TOKEN, then the OS keyring)")
	flags.String("token-type", string(gitlab.TokenTypePrivate), "Token type: private, oauth or job")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout for each GitLab API call")
	flags.Bool("insecure-tls", false, "Skip TLS certificate verification (self-signed instances only)")
	flags.String("ca-cert", "", "Path to a PEM CA bundle to trust in addition to the system pool")
	flags.StringSlice("toolsets", gitlab.DefaultTools, "Comma-separated list of toolsets to enable (e.g. 'merge_requests' or 'all')")
	flags.Bool("read-only", false, "Only register tools that read from GitLab")
	flags.String("server-name", config.DefaultServerName, "Server name reported to MCP clients and sent as User-Agent")
	flags.String("log-file", "", "Path to write log output to (stdio defaults to a file in the temp directory)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.Bool("enable-command-logging", false, "Log every MCP JSON-RPC frame at debug level, with credentials redacted")
	flags.Bool("export-translations", false, "Write gitlab-mr-review-mcp-config.json next to the binary with all translation keys and exit")

	httpCmd.Flags().String("http-addr", "", "Address to listen on")
	httpCmd.Flags().Int("http-port", 0, "Port to listen on (default $PORT or 8080)")

	_ = viper.BindPFlag(config.KeyURL, flags.Lookup("gitlab-url"))
	_ = viper.BindPFlag(config.KeyToken, flags.Lookup("gitlab-token"))
	_ = viper.BindPFlag(config.KeyTokenType, flags.Lookup("token-type"))
	_ = viper.BindPFlag(config.KeyTimeout, flags.Lookup("timeout"))
	_ = viper.BindPFlag(config.KeyInsecureTLS, flags.Lookup("insecure-tls"))
	_ = viper.BindPFlag(config.KeyCACert, flags.Lookup("ca-cert"))
	_ = viper.BindPFlag(config.KeyToolsets, flags.Lookup("toolsets"))
	_ = viper.BindPFlag(config.KeyReadOnly, flags.Lookup("read-only"))
	_ = viper.BindPFlag(config.KeyServerName, flags.Lookup("server-name"))
	_ = viper.BindPFlag(config.KeyLogFile, flags.Lookup("log-file"))
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyEnableCommandLogging, flags.Lookup("enable-command-logging"))
	_ = viper.BindPFlag(config.KeyExportTranslations, flags.Lookup("export-translations"))
	_ = viper.BindPFlag(config.KeyHTTPAddr, httpCmd.Flags().Lookup("http-addr"))
	_ = viper.BindPFlag(config.KeyHTTPPort, httpCmd.Flags().Lookup("http-port"))

	rootCmd.AddCommand(stdioCmd, httpCmd)
}

// initConfig reads the environment, .env and config file into viper.
func initConfig() {
	if err := config.Init(viper.GetViper()); err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}
}

type application struct {
	cfg       *config.Config
	logger    *log.Logger
	mcpServer *server.MCPServer
	closers   []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// mustSetup validates the configuration, builds the GitLab session and
// registers the enabled tools. Configuration errors are fatal.
func mustSetup(stdio bool) *application {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := initLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, stdio)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	app := &application{cfg: cfg, logger: logger, closers: []func(){closeLog}}
	logger.Info("Logger initialized")

	t, _ := translations.TranslationHelper(logger)

	session, err := cfg.SessionConfig()
	if err != nil {
		logger.Fatalf("Failed to read token: %v", err)
	}
	client, err := gitlab.NewClient(session, logger)
	if err != nil {
		logger.Fatalf("Failed to create GitLab client: %v", err)
	}
	logger.WithFields(log.Fields{
		"api_url":      cfg.APIURL,
		"token_type":   cfg.TokenType,
		"token_source": cfg.TokenSource,
		"timeout":      cfg.Timeout,
	}).Info("GitLab session configured")

	getClient := func(context.Context) (gitlab.MergeRequestAPI, error) {
		return client, nil
	}

	toolsetGroup, err := gitlab.InitToolsets(cfg.Toolsets, cfg.ReadOnly, getClient, logger, t)
	if err != nil {
		logger.Fatalf("Failed to initialize toolsets: %v", err)
	}

	app.mcpServer = gitlab.NewServer(cfg.ServerName, version, t)
	toolsetGroup.RegisterTools(app.mcpServer)
	logger.WithFields(log.Fields{
		"toolsets":  cfg.Toolsets,
		"read_only": cfg.ReadOnly,
		"tools":     toolsetGroup.ActiveToolNames(),
	}).Info("Tools registered")

	return app
}

// exportTranslations writes the translation template without requiring a
// GitLab URL or token.
func exportTranslations() {
	logger, closeLog, err := initLogger(viper.GetString(config.KeyLogLevel), "text", "", false)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer closeLog()
	logger.Info("Exporting translations and exiting...")
	_, dumpTranslations := translations.TranslationHelper(logger)
	dumpTranslations()
}

func runStdio(ctx context.Context, app *application) error {
	stdioServer := server.NewStdioServer(app.mcpServer)
	stdioServer.SetErrorLogger(stdlog.New(app.logger.Writer(), "[StdioServer] ", 0))

	in, out := io.Reader(os.Stdin), io.Writer(os.Stdout)
	if app.cfg.EnableCommandLogging {
		app.logger.Warn("Command logging enabled - credentials are redacted, other content is logged as is")
		loggedIO := iolog.NewIOLogger(in, out, app.logger)
		in, out = loggedIO, loggedIO
	}

	errC := make(chan error, 1)
	go func() {
		errC <- stdioServer.Listen(ctx, in, out)
	}()

	fmt.Fprintf(os.Stderr, "GitLab MR review MCP server running on stdio (Version: %s, Commit: %s)\n", version, commit)

	select {
	case <-ctx.Done():
		app.logger.Info("Shutdown signal received")
		return nil
	case err := <-errC:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		app.logger.Info("Server listener stopped")
		return nil
	}
}

func runHTTP(ctx context.Context, app *application) error {
	httpServer := &http.Server{
		Addr:              app.cfg.HTTPAddr,
		Handler:           server.NewStreamableHTTPServer(app.mcpServer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Infof("Listening on %s (streamable HTTP, endpoint /mcp)", app.cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// initLogger sets up the logrus logger. On stdio, stdout carries JSON-RPC
// frames, so without a log file the log goes to the temp directory.
func initLogger(level, format, filePath string, stdio bool) (*log.Logger, func(), error) {
	logger := log.New()

	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to 'info': %v", level, err)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if filePath == "" && stdio {
		filePath = filepath.Join(os.TempDir(), "gitlab-mr-review-mcp.log")
	}
	if filePath == "" {
		logger.SetOutput(os.Stderr)
		return logger, func() {}, nil
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file '%s': %w", filePath, err)
	}
	logger.SetOutput(file)
	return logger, func() { _ = file.Close() }, nil
}

func main() {
	defer memguard.Purge()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		memguard.SafeExit(1)
	}
}
