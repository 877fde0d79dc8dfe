package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mo-shahab/peer-pong/game"
)

// Config contains every option of the game client and the broker.
type Config struct {
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`
	// Full path to file to which logs will be written. Blank will write to stderr.
	LogFilePath   string `mapstructure:"log_file_path"`
	IncludeCaller bool   `mapstructure:"include_caller"`

	Game game.Config `mapstructure:"game"`

	Network struct {
		// Websocket endpoint of the broker peers register with.
		BrokerURL string `mapstructure:"broker_url"`
		// Wire encoding of game messages: json or proto. Both peers must agree.
		Codec string `mapstructure:"codec"`
		// Outgoing frames buffered before new ones are dropped.
		SendQueue int `mapstructure:"send_queue"`
		// Inbound events buffered for the game loop.
		InboxSize   int           `mapstructure:"inbox_size"`
		DialTimeout time.Duration `mapstructure:"dial_timeout"`
	} `mapstructure:"network"`

	Broker struct {
		ListenAddr string `mapstructure:"listen_addr"`
		// How long a connect offer waits for the target to answer.
		OfferTimeout time.Duration `mapstructure:"offer_timeout"`
		// Relay budget per peer, in data frames.
		RatePerSec float64 `mapstructure:"rate_per_sec"`
		RateBurst  int     `mapstructure:"rate_burst"`
		SendQueue  int     `mapstructure:"send_queue"`
	} `mapstructure:"broker"`
}

const envVarPrefix = "PONG"

var defaults = map[string]interface{}{
	"log_level":              "info",
	"log_file_path":          "",
	"include_caller":         false,
	"game.court_width":       800.0,
	"game.court_height":      400.0,
	"game.paddle_width":      10.0,
	"game.paddle_height":     60.0,
	"game.paddle_offset":     10.0,
	"game.paddle_speed":      5.0,
	"game.ball_radius":       5.0,
	"game.ball_speed":        5.0,
	"game.winning_score":     5,
	"game.frame_rate":        60,
	"game.countdown_seconds": 3,
	"game.history_size":      10,
	"game.particle_count":    100,
	"network.broker_url":     "ws://localhost:9000/peerjs",
	"network.codec":          "json",
	"network.send_queue":     100,
	"network.inbox_size":     256,
	"network.dial_timeout":   "5s",
	"broker.listen_addr":     ":9000",
	"broker.offer_timeout":   "10s",
	"broker.rate_per_sec":    240.0,
	"broker.rate_burst":      480,
	"broker.send_queue":      100,
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg, err := load(viper.New(), "")
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads config.yaml from configPath on top of the defaults. A
// missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envVarPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.AddConfigPath(configPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	// This allows nested options to be set through environment variables.
	// For example, game.winning_score can be set using: PONG_GAME_WINNING_SCORE
	for _, k := range v.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := v.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", k, envVarPrefix+"_"+envVar, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the game cannot run with.
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.CourtWidth <= 0 || g.CourtHeight <= 0:
		return fmt.Errorf("config: court must have positive dimensions, got %vx%v", g.CourtWidth, g.CourtHeight)
	case g.PaddleWidth <= 0 || g.PaddleHeight <= 0:
		return fmt.Errorf("config: paddle must have positive dimensions")
	case g.PaddleHeight > g.CourtHeight:
		return fmt.Errorf("config: paddle height %v exceeds court height %v", g.PaddleHeight, g.CourtHeight)
	case g.BallRadius <= 0:
		return fmt.Errorf("config: ball radius must be positive")
	case g.WinningScore < 1:
		return fmt.Errorf("config: winning score must be at least 1")
	case g.FrameRate < 1:
		return fmt.Errorf("config: frame rate must be at least 1")
	case g.CountdownSeconds < 0:
		return fmt.Errorf("config: countdown cannot be negative")
	case g.HistorySize < 2:
		return fmt.Errorf("config: history size must be at least 2")
	}
	switch c.Network.Codec {
	case "json", "proto":
	default:
		return fmt.Errorf("config: unknown codec %q", c.Network.Codec)
	}
	return nil
}
