package terminal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/mo-shahab/peer-pong/ball"
	"github.com/mo-shahab/peer-pong/game"
	"github.com/mo-shahab/peer-pong/paddle"
	"github.com/mo-shahab/peer-pong/scores"
)

func TestParseKeys(t *testing.T) {
	got := parseKeys([]byte("w\x1b[A\x1b[Bs\r\x7f\x1bq\x03"))
	want := []key{
		{kind: keyRune, r: 'w'},
		{kind: keyUp},
		{kind: keyDown},
		{kind: keyRune, r: 's'},
		{kind: keyEnter},
		{kind: keyBackspace},
		{kind: keyEscape},
		{kind: keyRune, r: 'q'},
		{kind: keyInterrupt},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(key{})); diff != "" {
		t.Errorf("parseKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestMenuCommandsDependOnPhase(t *testing.T) {
	one := key{kind: keyRune, r: '1'}
	cmd, ok := menuCommand(one, game.PhaseTitle)
	require.True(t, ok)
	require.Equal(t, game.CmdStartSinglePlayer, cmd.Kind)

	_, ok = menuCommand(one, game.PhasePlaying)
	require.False(t, ok)

	cmd, ok = menuCommand(key{kind: keyRune, r: 'r'}, game.PhaseGameOver)
	require.True(t, ok)
	require.Equal(t, game.CmdPlayAgain, cmd.Kind)

	cmd, ok = menuCommand(key{kind: keyRune, r: 'q'}, game.PhasePlaying)
	require.True(t, ok)
	require.Equal(t, game.CmdQuit, cmd.Kind)
}

func TestIDEntrySendsConnect(t *testing.T) {
	tty := newTerminal(strings.NewReader(""), &bytes.Buffer{})
	tty.Render(game.Snapshot{Phase: game.PhaseConnecting, Court: game.DefaultConfig().Court()})

	for _, k := range parseKeys([]byte("ab-x\x7fc\r")) {
		tty.handle(k)
	}
	cmd := <-tty.Commands()
	require.Equal(t, game.Command{Kind: game.CmdConnect, ID: "abc"}, cmd)
	require.Empty(t, tty.Input())
}

func TestPaddleKeyReleasesAfterQuietPeriod(t *testing.T) {
	tty := newTerminal(strings.NewReader(""), &bytes.Buffer{}, WithRepeatTiming(20*time.Millisecond, 10*time.Millisecond))
	tty.Render(game.Snapshot{Phase: game.PhasePlaying, Court: game.DefaultConfig().Court()})

	tty.handle(key{kind: keyRune, r: 'w'})
	require.Equal(t, game.InputEvent{Action: game.P1Up, Pressed: true}, <-tty.Input())

	select {
	case ev := <-tty.Input():
		require.Equal(t, game.InputEvent{Action: game.P1Up, Pressed: false}, ev)
	case <-time.After(time.Second):
		t.Fatal("no release")
	}
	require.NoError(t, tty.Close())
	require.NoError(t, tty.Close())
}

func TestHeldKeySurvivesRepeatDelay(t *testing.T) {
	tty := newTerminal(strings.NewReader(""), &bytes.Buffer{}, WithRepeatTiming(300*time.Millisecond, 100*time.Millisecond))
	tty.Render(game.Snapshot{Phase: game.PhasePlaying, Court: game.DefaultConfig().Court()})
	defer tty.Close()

	// first repeat arrives well after the repeat window, before the delay
	tty.handle(key{kind: keyUp})
	time.Sleep(200 * time.Millisecond)
	tty.handle(key{kind: keyUp})
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		tty.handle(key{kind: keyUp})
	}

	var events []game.InputEvent
	timeout := time.After(2 * time.Second)
	for len(events) < 6 {
		select {
		case ev := <-tty.Input():
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("got %v", events)
		}
	}
	for _, ev := range events[:5] {
		require.Equal(t, game.InputEvent{Action: game.P2Up, Pressed: true}, ev)
	}
	require.Equal(t, game.InputEvent{Action: game.P2Up, Pressed: false}, events[5])
}

func TestFrameDrawsCourt(t *testing.T) {
	cfg := game.DefaultConfig()
	court := cfg.Court()
	snap := game.Snapshot{
		Court:   court,
		Phase:   game.PhasePlaying,
		Mode:    game.ModeOnline,
		Left:    paddle.New(10, 10, 60, court),
		Right:   paddle.New(780, 10, 60, court),
		Ball:    ball.New(5, 5, court),
		RenderX: 400,
		RenderY: 200,
		Scores:  scores.Scores{Player1: 3, Player2: 1},
		LocalID: "ABC",

		RemoteID: "XYZ",
		IsHost:   true,
	}
	out := Frame(snap, 80, 24, "")
	lines := strings.Split(out, "\r\n")
	require.Len(t, lines, 24)
	for _, l := range lines {
		require.Len(t, l, 80)
	}

	require.Contains(t, lines[0], "3  -  1")
	require.Contains(t, lines[0], "id ABC")
	require.Contains(t, lines[0], "vs XYZ (host)")
	require.Equal(t, strings.Repeat("#", 80), lines[headerRows])
	require.Equal(t, 1, strings.Count(out, string(cellBall)))
	require.Equal(t, 2, strings.Count(lines[headerRows+10], string(cellPaddle)))
}

func TestFrameTooSmall(t *testing.T) {
	out := Frame(game.Snapshot{Court: game.DefaultConfig().Court()}, 5, 3, "")
	require.True(t, strings.HasPrefix(out, "term"))
}
