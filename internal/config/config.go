package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ConfigPathEnv = "SHAREVAULT_CONFIG"

	ModeProd = "PROD"

	VideoTitlesAuto    = "auto"
	VideoTitlesDataAPI = "dataapi"
	VideoTitlesPlayer  = "player"
	VideoTitlesOEmbed  = "oembed"
)

// Config holds all configuration for the application.
// Values come from an optional config file, a .env file and the environment.
type Config struct {
	Port        string `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	UploadDir   string `mapstructure:"upload_dir"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	Attribution    string        `mapstructure:"attribution"`
	WebRelay       string        `mapstructure:"web_relay"`
	VideoTitles    string        `mapstructure:"video_titles"`

	Spotify SpotifyConfig `mapstructure:"spotify"`
	YouTube YouTubeConfig `mapstructure:"youtube"`
}

type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DeleteUploads reports whether uploaded transcripts are removed after analysis.
func (c Config) DeleteUploads() bool {
	return strings.EqualFold(c.Mode, ModeProd)
}

func (c Config) HasSpotifyCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

var envBindings = map[string]string{
	"port":                  "SHAREVAULT_PORT",
	"mode":                  "SHAREVAULT_MODE",
	"upload_dir":            "SHAREVAULT_UPLOAD_DIR",
	"environment":           "SHAREVAULT_ENVIRONMENT",
	"log_level":             "SHAREVAULT_LOG_LEVEL",
	"concurrency":           "SHAREVAULT_CONCURRENCY",
	"request_timeout":       "SHAREVAULT_REQUEST_TIMEOUT",
	"rate_per_second":       "SHAREVAULT_RATE_PER_SECOND",
	"attribution":           "SHAREVAULT_ATTRIBUTION",
	"web_relay":             "SHAREVAULT_WEB_RELAY",
	"video_titles":          "SHAREVAULT_VIDEO_TITLES",
	"spotify.client_id":     "SPOTIFY_CLIENT_ID",
	"spotify.client_secret": "SPOTIFY_CLIENT_SECRET",
	"youtube.api_key":       "YOUTUBE_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("mode", "")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("environment", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("concurrency", 5)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("rate_per_second", 10.0)
	v.SetDefault("attribution", "last")
	v.SetDefault("web_relay", "")
	v.SetDefault("video_titles", VideoTitlesAuto)
}

// Load reads configuration. path names an explicit config file; when empty,
// ./configs/config.yaml is used if it exists. A .env file in the working
// directory is loaded into the environment first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	switch strings.ToLower(c.Attribution) {
	case "last", "first":
	default:
		return fmt.Errorf("attribution must be first or last, got %q", c.Attribution)
	}
	switch c.VideoTitles {
	case VideoTitlesAuto, VideoTitlesDataAPI, VideoTitlesPlayer, VideoTitlesOEmbed:
	default:
		return fmt.Errorf("unknown video_titles source %q", c.VideoTitles)
	}
	if c.VideoTitles == VideoTitlesDataAPI && c.YouTube.APIKey == "" {
		return errors.New("video_titles=dataapi requires YOUTUBE_API_KEY")
	}
	return nil
}
