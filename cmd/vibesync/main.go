// Package main provides the vibesync CLI entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vibesync/internal/chat"
	"vibesync/internal/chat/drive"
	"vibesync/internal/core"
	"vibesync/internal/llm"
	"vibesync/internal/metrics"
	"vibesync/internal/playlist"
	"vibesync/internal/report"
	"vibesync/internal/resolve"
	"vibesync/internal/spotify"
	"vibesync/internal/store"
	"vibesync/pkg/fuzzy"
	"vibesync/pkg/musiclink"
	"vibesync/pkg/text"
)

const version = "1.0.0"

const seenIndexCapacity = 10000

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vibesync",
	Short: "Sync a WhatsApp chat export to a Spotify playlist",
	Long: `vibesync downloads a WhatsApp chat export from Google Drive (or reads a
local file), extracts shared music links, resolves them to Spotify tracks
and reconciles a target playlist to the chat's chronological track list.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one sync run (the cron entrypoint)",
	RunE:  runSync,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Interactive Spotify OAuth bootstrap; writes the token cache",
	RunE:  runAuth,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("vibesync %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("drive-folder-id", "", "Google Drive folder holding the chat export")
	rootCmd.PersistentFlags().String("drive-credentials-file", "", "service account credentials JSON file")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-playlist-id", "", "Spotify playlist ID to reconcile")
	rootCmd.PersistentFlags().String("llm-provider", "none", "LLM provider (openai, anthropic, ollama, none)")

	runCmd.Flags().Bool("full-reorder", false, "mirror chat order exactly (moves and removals)")
	runCmd.Flags().Bool("dry-run", false, "compute and log the plan without mutating anything")
	runCmd.Flags().String("chat-file", "", "local chat export (.zip or .txt); overrides Drive")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(runCmd, authCmd, versionCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("VIBESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Drive.FolderID = viper.GetString("drive-folder-id")
	cfg.Drive.CredentialsFile = viper.GetString("drive-credentials-file")
	cfg.Drive.CredentialsJSON = viper.GetString("drive-credentials-json")
	if v := viper.GetString("drive-archive-name"); v != "" {
		cfg.Drive.ArchiveName = v
	}
	if v := viper.GetString("drive-member-pattern"); v != "" {
		cfg.Drive.MemberPattern = v
	}

	cfg.Chat.File = viper.GetString("chat-file")

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.PlaylistID = viper.GetString("spotify-playlist-id")
	cfg.Spotify.TokenJSON = viper.GetString("spotify-token-json")
	if v := viper.GetString("spotify-redirect-url"); v != "" {
		cfg.Spotify.RedirectURL = v
	}
	if v := viper.GetString("spotify-token-path"); v != "" {
		cfg.Spotify.TokenPath = v
	}

	cfg.Sync.FullReorder = viper.GetBool("full-reorder")
	cfg.Sync.DryRun = viper.GetBool("dry-run")

	if viper.IsSet("resolver-min-confidence") {
		cfg.Resolver.MinConfidence = viper.GetFloat64("resolver-min-confidence")
	}
	if viper.IsSet("resolver-ambiguity-margin") {
		cfg.Resolver.AmbiguityMargin = viper.GetFloat64("resolver-ambiguity-margin")
	}
	if viper.IsSet("resolver-http-timeout") {
		cfg.Resolver.HTTPTimeout = viper.GetDuration("resolver-http-timeout")
	}

	if viper.IsSet("sync-batch-size") {
		cfg.Sync.BatchSize = viper.GetInt("sync-batch-size")
	}
	if viper.IsSet("sync-detail-batch-size") {
		cfg.Sync.DetailBatchSize = viper.GetInt("sync-detail-batch-size")
	}

	if viper.IsSet("retry-max-attempts") {
		cfg.Retry.MaxAttempts = viper.GetInt("retry-max-attempts")
	}
	if viper.IsSet("retry-initial-backoff") {
		cfg.Retry.InitialBackoff = viper.GetDuration("retry-initial-backoff")
	}
	if viper.IsSet("retry-multiplier") {
		cfg.Retry.Multiplier = viper.GetFloat64("retry-multiplier")
	}
	if viper.IsSet("retry-max-backoff") {
		cfg.Retry.MaxBackoff = viper.GetDuration("retry-max-backoff")
	}
	if viper.IsSet("rate-requests-per-second") {
		cfg.Rate.RequestsPerSecond = viper.GetFloat64("rate-requests-per-second")
	}

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	if viper.IsSet("llm-min-confidence") {
		cfg.LLM.Threshold = viper.GetFloat64("llm-min-confidence")
	}

	if v := viper.GetString("report-file"); v != "" {
		cfg.Report.File = v
	}
	if v := viper.GetString("report-timezone"); v != "" {
		cfg.Report.Timezone = v
	}
	if viper.IsSet("report-max-examples") {
		cfg.Report.MaxExamples = viper.GetInt("report-max-examples")
	}

	cfg.Metrics.PushgatewayURL = viper.GetString("metrics-pushgateway-url")
	if v := viper.GetString("metrics-job"); v != "" {
		cfg.Metrics.Job = v
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

const noneProvider = "none"

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer logger.Sync() //nolint:errcheck

	if err := materializeCredentials(config); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("starting vibesync",
		zap.String("version", version),
		zap.String("policy", config.Policy()),
		zap.Bool("dryRun", config.Sync.DryRun),
		zap.String("playlist", config.Spotify.PlaylistID))

	memberPattern, err := regexp.Compile(config.Drive.MemberPattern)
	if err != nil {
		return fmt.Errorf("invalid archive member pattern: %w", err)
	}

	var source core.Source
	if config.Chat.File != "" {
		source = chat.NewLocalSource(config.Chat.File, memberPattern, logger.Named("chat"))
	} else {
		source, err = drive.NewSource(ctx, config.Drive.CredentialsFile, config.Drive.FolderID,
			config.Drive.ArchiveName, memberPattern, logger.Named("drive"))
		if err != nil {
			return fmt.Errorf("failed to set up Drive source: %w", err)
		}
	}

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	var adjudicator resolve.Adjudicator
	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		provider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
		if err != nil {
			return fmt.Errorf("failed to create LLM provider: %w", err)
		}
		adjudicator = provider
	}

	resolver := resolve.NewPipeline(
		musiclink.NewManager(),
		spotifyClient,
		fuzzy.NewWeightedScorer(),
		adjudicator,
		config.Resolver.MinConfidence,
		config.Resolver.AmbiguityMargin,
		logger.Named("resolve"),
	)

	seen := store.NewSeenIndex(seenIndexCapacity, 0.001)
	target := core.NewTargetBuilder(spotifyClient, resolver, seen, logger.Named("target"))

	applier := playlist.NewApplier(
		spotifyClient,
		config.Spotify.PlaylistID,
		config.Sync.BatchSize,
		playlist.RetryPolicy{
			MaxAttempts:    config.Retry.MaxAttempts,
			InitialBackoff: config.Retry.InitialBackoff,
			Multiplier:     config.Retry.Multiplier,
			MaxBackoff:     config.Retry.MaxBackoff,
		},
		config.Rate.RequestsPerSecond,
		spotify.IsTransient,
		logger.Named("applier"),
	)

	runner := core.NewRunner(
		config,
		source,
		text.NewParser(),
		target,
		spotifyClient,
		playlist.NewPlanner(logger.Named("planner")),
		applier,
		logger.Named("runner"),
	)

	reporter, err := report.NewReporter(config.Report.File, config.Report.Timezone,
		config.Report.MaxExamples, logger.Named("report"))
	if err != nil {
		return err
	}
	pusher := metrics.NewPusher(config.Metrics.PushgatewayURL, config.Metrics.Job, logger.Named("metrics"))

	runReport, runErr := runner.Run(ctx)
	pusher.Push(runReport, runErr != nil)

	if runErr != nil {
		return runErr
	}

	if err := reporter.Write(runReport); err != nil {
		logger.Warn("failed to write report line", zap.Error(err))
	}

	return nil
}

func runAuth(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if config.Spotify.ClientID == "" || config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client ID and secret are required for auth")
	}

	client := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := client.InteractiveAuth(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("Token saved to %s\n", config.Spotify.TokenPath)
	return nil
}

// materializeCredentials writes inline secret payloads to the files the
// clients expect, for deployments that can only pass env vars.
func materializeCredentials(cfg *core.Config) error {
	if cfg.Drive.CredentialsJSON != "" && cfg.Drive.CredentialsFile == "" {
		f, err := os.CreateTemp("", "vibesync-drive-*.json")
		if err != nil {
			return fmt.Errorf("failed to materialize Drive credentials: %w", err)
		}
		if _, err := f.WriteString(cfg.Drive.CredentialsJSON); err != nil {
			f.Close()
			return fmt.Errorf("failed to materialize Drive credentials: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to materialize Drive credentials: %w", err)
		}
		cfg.Drive.CredentialsFile = f.Name()
	}

	if cfg.Spotify.TokenJSON != "" {
		if _, err := os.Stat(cfg.Spotify.TokenPath); os.IsNotExist(err) {
			if err := os.WriteFile(cfg.Spotify.TokenPath, []byte(cfg.Spotify.TokenJSON), spotify.TokenFilePermission); err != nil {
				return fmt.Errorf("failed to materialize Spotify token: %w", err)
			}
		}
	}

	return nil
}
