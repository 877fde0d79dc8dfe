package game

import (
	"time"

	"github.com/mo-shahab/peer-pong/canvas"
)

// Config holds the court geometry and match rules.
type Config struct {
	CourtWidth       float64 `mapstructure:"court_width"`
	CourtHeight      float64 `mapstructure:"court_height"`
	PaddleWidth      float64 `mapstructure:"paddle_width"`
	PaddleHeight     float64 `mapstructure:"paddle_height"`
	PaddleOffset     float64 `mapstructure:"paddle_offset"`
	PaddleSpeed      float64 `mapstructure:"paddle_speed"`
	BallRadius       float64 `mapstructure:"ball_radius"`
	BallSpeed        float64 `mapstructure:"ball_speed"`
	WinningScore     int32   `mapstructure:"winning_score"`
	FrameRate        int     `mapstructure:"frame_rate"`
	CountdownSeconds int     `mapstructure:"countdown_seconds"`
	HistorySize      int     `mapstructure:"history_size"`
	ParticleCount    int     `mapstructure:"particle_count"`
}

// DefaultConfig is the classic 800x400 court, first to five.
func DefaultConfig() Config {
	return Config{
		CourtWidth:       800,
		CourtHeight:      400,
		PaddleWidth:      10,
		PaddleHeight:     60,
		PaddleOffset:     10,
		PaddleSpeed:      5,
		BallRadius:       5,
		BallSpeed:        5,
		WinningScore:     5,
		FrameRate:        60,
		CountdownSeconds: 3,
		HistorySize:      10,
		ParticleCount:    100,
	}
}

func (c Config) Court() canvas.Canvas {
	return canvas.Canvas{Width: c.CourtWidth, Height: c.CourtHeight}
}

// FrameInterval is the duration of one frame.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func (c Config) countdownTicks() int {
	return c.CountdownSeconds * c.FrameRate
}
