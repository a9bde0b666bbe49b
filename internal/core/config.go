package core

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

type Config struct {
	Drive    DriveConfig
	Chat     ChatConfig
	Spotify  SpotifyConfig
	Sync     SyncConfig
	Resolver ResolverConfig
	Retry    RetryConfig
	Rate     RateConfig
	LLM      LLMConfig
	Report   ReportConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

type DriveConfig struct {
	CredentialsFile string
	CredentialsJSON string // inline content, materialized to a temp file at startup
	FolderID        string
	ArchiveName     string // optional exact filename; empty = newest zip in folder
	MemberPattern   string // case-insensitive regexp selecting the chat member in the zip
}

type ChatConfig struct {
	File string // local .zip or .txt export; overrides Drive when set
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	PlaylistID   string
	TokenPath    string
	TokenJSON    string // inline token cache content
}

type SyncConfig struct {
	FullReorder     bool
	DryRun          bool
	BatchSize       int // playlist mutation batch limit
	DetailBatchSize int // track detail lookup batch limit
}

type ResolverConfig struct {
	MinConfidence   float64
	AmbiguityMargin float64
	HTTPTimeout     time.Duration
}

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
}

type RateConfig struct {
	RequestsPerSecond float64
}

type LLMConfig struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Threshold     float64
	MaxCandidates int
}

type ReportConfig struct {
	File        string
	Timezone    string
	MaxExamples int
}

type MetricsConfig struct {
	PushgatewayURL string // empty = disabled
	Job            string
}

type LogConfig struct {
	Level string
}

func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			MemberPattern: `(?i)chat.*\.txt$`,
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://localhost:8080/callback",
			TokenPath:   "./spotify_token.json",
		},
		Sync: SyncConfig{
			BatchSize:       100,
			DetailBatchSize: 50,
		},
		Resolver: ResolverConfig{
			MinConfidence:   0.70,
			AmbiguityMargin: 0.05,
			HTTPTimeout:     10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    4,
			InitialBackoff: time.Second,
			Multiplier:     2.0,
			MaxBackoff:     30 * time.Second,
		},
		Rate: RateConfig{
			RequestsPerSecond: 4,
		},
		LLM: LLMConfig{
			Provider:      "none",
			Threshold:     0.7,
			MaxCandidates: 5,
		},
		Report: ReportConfig{
			File:        "./vibesync.log",
			Timezone:    "Asia/Kolkata",
			MaxExamples: 3,
		},
		Metrics: MetricsConfig{
			Job: "vibesync",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Policy names the selected reconciliation mode for logs and the report.
func (c *Config) Policy() string {
	if c.Sync.FullReorder {
		return "full-reorder"
	}
	return "append-only"
}

// Validate checks the configuration before any external call is made.
// Everything it rejects is a fatal setup error.
func (c *Config) Validate() error {
	if c.Spotify.PlaylistID == "" {
		return errors.New("spotify playlist ID is required")
	}

	if c.Chat.File == "" && c.Drive.FolderID == "" {
		return errors.New("either a chat file or a Drive folder ID is required")
	}

	// A dry run over a local file needs no Spotify credentials beyond a
	// readable playlist, which still requires a token; only the client
	// credential pair may be omitted then.
	if !c.Sync.DryRun || c.Chat.File == "" {
		if c.Spotify.ClientID == "" {
			return errors.New("spotify client ID is required")
		}
		if c.Spotify.ClientSecret == "" {
			return errors.New("spotify client secret is required")
		}
	}

	if _, err := regexp.Compile(c.Drive.MemberPattern); err != nil {
		return fmt.Errorf("invalid archive member pattern: %w", err)
	}

	if c.Resolver.MinConfidence < 0 || c.Resolver.MinConfidence > 1 {
		return fmt.Errorf("resolver min confidence %v outside [0,1]", c.Resolver.MinConfidence)
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry max attempts must be at least 1")
	}

	if c.LLM.Provider != "none" && c.LLM.Provider != "" {
		if c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
			return fmt.Errorf("LLM API key is required for provider: %s", c.LLM.Provider)
		}
	}

	return nil
}
