// Package terminal renders the game with ANSI escapes and reads the
// keyboard in raw mode.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mo-shahab/peer-pong/game"
)

const (
	defaultCols = 80
	defaultRows = 24

	// Terminals report key presses only. A paddle key counts as released
	// when no repeat arrived in time: the first repeat comes after the
	// auto-repeat delay, later ones at the much shorter repeat rate.
	defaultRepeatDelay  = 700 * time.Millisecond
	defaultRepeatWindow = 120 * time.Millisecond

	maxEntry = 8

	escHome       = "\x1b[H"
	escClear      = "\x1b[2J"
	escHideCursor = "\x1b[?25l"
	escShowCursor = "\x1b[?25h"
)

// Terminal is both the renderer and the input source of the game.
type Terminal struct {
	in      io.Reader
	out     *bufio.Writer
	outFd   int
	logger  *zap.SugaredLogger

	repeatDelay  time.Duration
	repeatWindow time.Duration

	raw   *term.State
	inFd  int
	input chan game.InputEvent
	cmds  chan game.Command

	mu     sync.Mutex
	phase  game.Phase
	entry  []rune
	held   map[game.Action]*heldKey
	cols   int
	rows   int
	sized  bool

	closeOnce sync.Once
}

type Option func(*Terminal)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(t *Terminal) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSize fixes the screen size instead of asking the terminal.
func WithSize(cols, rows int) Option {
	return func(t *Terminal) {
		t.cols, t.rows, t.sized = cols, rows, true
	}
}

// WithRepeatTiming sets how long a paddle key stays down after its first
// press and after each repeat.
func WithRepeatTiming(delay, window time.Duration) Option {
	return func(t *Terminal) {
		if delay > 0 {
			t.repeatDelay = delay
		}
		if window > 0 {
			t.repeatWindow = window
		}
	}
}

type heldKey struct {
	timer *time.Timer
}

// Open puts in into raw mode. Close restores it.
func Open(in, out *os.File, opts ...Option) (*Terminal, error) {
	inFd := int(in.Fd())
	if !term.IsTerminal(inFd) {
		return nil, errors.New("terminal: stdin is not a terminal")
	}
	state, err := term.MakeRaw(inFd)
	if err != nil {
		return nil, err
	}

	t := newTerminal(in, out, opts...)
	t.raw, t.inFd, t.outFd = state, inFd, int(out.Fd())
	t.write(escClear + escHideCursor)
	return t, nil
}

func newTerminal(in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		in:      in,
		out:     bufio.NewWriter(out),
		outFd:   -1,
		logger:  zap.NewNop().Sugar(),
		input:   make(chan game.InputEvent, 32),
		cmds:    make(chan game.Command, 8),
		held:    make(map[game.Action]*heldKey),
		cols:    defaultCols,
		rows:    defaultRows,

		repeatDelay:  defaultRepeatDelay,
		repeatWindow: defaultRepeatWindow,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) Input() <-chan game.InputEvent { return t.input }
func (t *Terminal) Commands() <-chan game.Command { return t.cmds }

// Start reads keys until ctx is done or the input fails.
func (t *Terminal) Start(ctx context.Context) {
	go func() {
		buf := make([]byte, 64)
		for ctx.Err() == nil {
			n, err := t.in.Read(buf)
			for _, k := range parseKeys(buf[:n]) {
				t.handle(k)
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					t.logger.Warnf("reading keyboard: %v", err)
				}
				t.command(game.Command{Kind: game.CmdQuit})
				return
			}
		}
	}()
}

// Render implements loop.Renderer.
func (t *Terminal) Render(snap game.Snapshot) {
	t.mu.Lock()
	if t.phase != snap.Phase {
		t.entry = t.entry[:0]
	}
	t.phase = snap.Phase
	entry := string(t.entry)
	cols, rows := t.size()
	t.mu.Unlock()

	t.write(escHome + Frame(snap, cols, rows, entry))
}

func (t *Terminal) size() (int, int) {
	if t.sized || t.outFd < 0 {
		return t.cols, t.rows
	}
	cols, rows, err := term.GetSize(t.outFd)
	if err != nil || cols <= 0 || rows <= 0 {
		return t.cols, t.rows
	}
	return cols, rows
}

func (t *Terminal) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.WriteString(s)
	if err := t.out.Flush(); err != nil {
		t.logger.Debugf("writing frame: %v", err)
	}
}

func (t *Terminal) handle(k key) {
	t.mu.Lock()
	phase := t.phase
	t.mu.Unlock()

	if phase == game.PhaseConnecting {
		t.handleEntry(k)
		return
	}
	if cmd, ok := menuCommand(k, phase); ok {
		t.command(cmd)
		return
	}
	if action, ok := paddleAction(k); ok {
		t.press(action)
	}
}

func (t *Terminal) handleEntry(k key) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch k.kind {
	case keyEnter:
		id := string(t.entry)
		t.entry = t.entry[:0]
		t.commandLocked(game.Command{Kind: game.CmdConnect, ID: id})
	case keyBackspace:
		if len(t.entry) > 0 {
			t.entry = t.entry[:len(t.entry)-1]
		}
	case keyEscape:
		t.commandLocked(game.Command{Kind: game.CmdReturnToMenu})
	case keyInterrupt:
		t.commandLocked(game.Command{Kind: game.CmdQuit})
	case keyRune:
		if isIDRune(k.r) && len(t.entry) < maxEntry {
			t.entry = append(t.entry, k.r)
		}
	}
}

// press reports the key down and schedules its release, pushed back on
// every repeat.
func (t *Terminal) press(action game.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// repeats are reported too, the game may have dropped the first press
	// while it was not playing
	t.send(game.InputEvent{Action: action, Pressed: true})
	if k, ok := t.held[action]; ok && k.timer.Stop() {
		k.timer.Reset(t.repeatWindow)
		return
	}

	k := &heldKey{}
	k.timer = time.AfterFunc(t.repeatDelay, func() { t.releaseKey(action, k) })
	t.held[action] = k
}

func (t *Terminal) releaseKey(action game.Action, k *heldKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held[action] != k {
		return
	}
	delete(t.held, action)
	t.send(game.InputEvent{Action: action, Pressed: false})
}

func (t *Terminal) send(ev game.InputEvent) {
	select {
	case t.input <- ev:
	default:
		t.logger.Debugf("input queue full, dropping %s", ev.Action)
	}
}

func (t *Terminal) command(cmd game.Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commandLocked(cmd)
}

func (t *Terminal) commandLocked(cmd game.Command) {
	select {
	case t.cmds <- cmd:
	default:
		t.logger.Warnf("command queue full, dropping %s", cmd.Kind)
	}
}

// Close restores the terminal. Safe to call twice.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		for _, k := range t.held {
			k.timer.Stop()
		}
		t.mu.Unlock()

		t.write(escClear + escHome + escShowCursor)
		if t.raw != nil {
			err = term.Restore(t.inFd, t.raw)
		}
	})
	return err
}
