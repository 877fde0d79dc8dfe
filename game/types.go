package game

// Phase is the top-level game mode.
type Phase int

const (
	PhaseTitle Phase = iota
	PhaseConnecting
	PhasePlaying
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseTitle:
		return "title"
	case PhaseConnecting:
		return "connecting"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "gameOver"
	}
	return "unknown"
}

type Mode int

const (
	ModeNone Mode = iota
	ModeSinglePlayer
	ModeLocalMultiplayer
	ModeOnline
)

func (m Mode) String() string {
	switch m {
	case ModeSinglePlayer:
		return "single player"
	case ModeLocalMultiplayer:
		return "local multiplayer"
	case ModeOnline:
		return "online"
	}
	return "none"
}

// Action is one of the four logical paddle keys.
type Action int

const (
	P1Up Action = iota
	P1Down
	P2Up
	P2Down
)

func (a Action) String() string {
	return [...]string{"p1-up", "p1-down", "p2-up", "p2-down"}[a]
}

// InputEvent is a key going down or up.
type InputEvent struct {
	Action  Action
	Pressed bool
}

type CommandKind int

const (
	CmdStartSinglePlayer CommandKind = iota
	CmdStartLocalMultiplayer
	CmdStartOnline
	CmdConnect
	CmdQuit
	CmdPlayAgain
	CmdReturnToMenu
)

func (k CommandKind) String() string {
	return [...]string{
		"startSinglePlayer",
		"startLocalMultiplayer",
		"startOnline",
		"connect",
		"quit",
		"playAgain",
		"returnToMenu",
	}[k]
}

// Command is a high level trigger from the menu.
type Command struct {
	Kind CommandKind
	// connect target
	ID string
}
