package terminal

import "github.com/mo-shahab/peer-pong/game"

type keyKind int

const (
	keyRune keyKind = iota
	keyUp
	keyDown
	keyEnter
	keyEscape
	keyBackspace
	keyInterrupt
)

type key struct {
	kind keyKind
	r    rune
}

// parseKeys splits a raw mode read into keys. Arrow keys arrive as
// ESC [ A and ESC [ B; a lone ESC is the escape key.
func parseKeys(buf []byte) []key {
	var keys []key
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == 0x1b:
			if i+2 < len(buf) && buf[i+1] == '[' {
				switch buf[i+2] {
				case 'A':
					keys = append(keys, key{kind: keyUp})
				case 'B':
					keys = append(keys, key{kind: keyDown})
				}
				i += 2
				continue
			}
			keys = append(keys, key{kind: keyEscape})
		case b == '\r' || b == '\n':
			keys = append(keys, key{kind: keyEnter})
		case b == 0x7f || b == 0x08:
			keys = append(keys, key{kind: keyBackspace})
		case b == 0x03:
			keys = append(keys, key{kind: keyInterrupt})
		case b >= 0x20 && b < 0x7f:
			keys = append(keys, key{kind: keyRune, r: rune(b)})
		}
	}
	return keys
}

// paddleAction maps a key to one of the four paddle actions.
func paddleAction(k key) (game.Action, bool) {
	switch k.kind {
	case keyUp:
		return game.P2Up, true
	case keyDown:
		return game.P2Down, true
	case keyRune:
		switch k.r {
		case 'w', 'W':
			return game.P1Up, true
		case 's', 'S':
			return game.P1Down, true
		}
	}
	return 0, false
}

// menuCommand maps a key to a command outside of id entry.
func menuCommand(k key, phase game.Phase) (game.Command, bool) {
	if k.kind == keyInterrupt {
		return game.Command{Kind: game.CmdQuit}, true
	}
	if k.kind == keyEscape {
		return game.Command{Kind: game.CmdReturnToMenu}, true
	}
	if k.kind != keyRune {
		return game.Command{}, false
	}

	switch k.r {
	case 'q', 'Q':
		return game.Command{Kind: game.CmdQuit}, true
	case 'm', 'M':
		return game.Command{Kind: game.CmdReturnToMenu}, true
	}
	switch phase {
	case game.PhaseTitle:
		switch k.r {
		case '1':
			return game.Command{Kind: game.CmdStartSinglePlayer}, true
		case '2':
			return game.Command{Kind: game.CmdStartLocalMultiplayer}, true
		case '3':
			return game.Command{Kind: game.CmdStartOnline}, true
		}
	case game.PhaseGameOver:
		if k.r == 'r' || k.r == 'R' {
			return game.Command{Kind: game.CmdPlayAgain}, true
		}
	}
	return game.Command{}, false
}

func isIDRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
