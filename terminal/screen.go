package terminal

import (
	"fmt"
	"math"
	"strings"

	"github.com/mo-shahab/peer-pong/game"
)

const (
	// rows used above and below the court
	headerRows = 2
	footerRows = 2

	cellEmpty    = ' '
	cellBorder   = '#'
	cellPaddle   = '|'
	cellBall     = 'O'
	cellParticle = '*'
	cellNet      = ':'
)

// grid is a fixed size character canvas.
type grid struct {
	cols, rows int
	cells      [][]rune
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: cols, rows: rows, cells: make([][]rune, rows)}
	for r := range g.cells {
		g.cells[r] = []rune(strings.Repeat(string(cellEmpty), cols))
	}
	return g
}

func (g *grid) set(col, row int, c rune) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	g.cells[row][col] = c
}

func (g *grid) text(col, row int, s string) {
	for i, c := range []rune(s) {
		g.set(col+i, row, c)
	}
}

func (g *grid) centre(row int, s string) {
	g.text((g.cols-len([]rune(s)))/2, row, s)
}

func (g *grid) String() string {
	lines := make([]string, g.rows)
	for r, row := range g.cells {
		lines[r] = string(row)
	}
	// raw mode needs the carriage return
	return strings.Join(lines, "\r\n")
}

// Frame draws snap into a cols x rows block of text. entry is the id
// typed so far while connecting.
func Frame(snap game.Snapshot, cols, rows int, entry string) string {
	g := newGrid(cols, rows)
	courtRows := rows - headerRows - footerRows
	if cols < 10 || courtRows < 5 {
		g.text(0, 0, "terminal too small")
		return g.String()
	}

	// court interior, inside the border
	top := headerRows
	inner := courtRect{col: 1, row: top + 1, cols: cols - 2, rows: courtRows - 2}
	sx := float64(inner.cols) / snap.Court.Width
	sy := float64(inner.rows) / snap.Court.Height

	for c := 0; c < cols; c++ {
		g.set(c, top, cellBorder)
		g.set(c, top+courtRows-1, cellBorder)
	}
	for r := top; r < top+courtRows; r++ {
		g.set(0, r, cellBorder)
		g.set(cols-1, r, cellBorder)
	}

	g.centre(0, fmt.Sprintf("%d  -  %d", snap.Scores.Player1, snap.Scores.Player2))
	if snap.LocalID != "" {
		g.text(1, 0, "id "+snap.LocalID)
	}
	if snap.RemoteID != "" {
		label := "guest"
		if snap.IsHost {
			label = "host"
		}
		vs := fmt.Sprintf("vs %s (%s)", snap.RemoteID, label)
		g.text(cols-1-len(vs), 0, vs)
	}

	switch snap.Phase {
	case game.PhaseTitle:
		mid := inner.row + inner.rows/2
		g.centre(inner.row+1, "P O N G")
		g.centre(mid-1, "1  single player")
		g.centre(mid, "2  local multiplayer")
		g.centre(mid+1, "3  online")
		g.centre(mid+3, "q  quit")

	case game.PhaseConnecting:
		mid := inner.row + inner.rows/2
		g.centre(mid-1, "type the opponent id and press enter")
		g.centre(mid+1, "> "+entry+"_")
		g.centre(mid+3, "esc  back to menu")

	case game.PhasePlaying, game.PhaseGameOver:
		for r := inner.row; r < inner.row+inner.rows; r += 2 {
			g.set(inner.col+inner.cols/2, r, cellNet)
		}
		for _, p := range []struct{ x, y, w, h float64 }{
			{snap.Left.X, snap.Left.Y, snap.Left.Width, snap.Left.Height},
			{snap.Right.X, snap.Right.Y, snap.Right.Width, snap.Right.Height},
		} {
			c := inner.col + scale(p.x+p.w/2, sx)
			r0 := inner.row + scale(p.y, sy)
			r1 := inner.row + scale(p.y+p.h, sy)
			for r := r0; r < r1 && r < inner.row+inner.rows; r++ {
				g.set(c, r, cellPaddle)
			}
		}
		for _, p := range snap.Particles {
			inner.plot(g, scale(p.X, sx), scale(p.Y, sy), cellParticle)
		}
		inner.plot(g, scale(snap.RenderX, sx), scale(snap.RenderY, sy), cellBall)

		if snap.Countdown > 0 {
			g.centre(inner.row+inner.rows/2, fmt.Sprintf(" %d ", snap.Countdown))
		}
		if snap.Phase == game.PhaseGameOver {
			winner := "player 1"
			if snap.Scores.Player2 > snap.Scores.Player1 {
				winner = "player 2"
			}
			g.centre(inner.row+inner.rows/2-1, " "+winner+" wins ")
			g.centre(inner.row+inner.rows/2+1, " r  play again   m  menu ")
		}
	}

	controls := "w/s  left paddle   up/down  right paddle   m  menu   q  quit"
	if snap.Mode == game.ModeOnline {
		controls = "w/s or up/down  move   m  menu   q  quit"
	}
	g.text(0, rows-2, controls)
	if snap.Status != "" {
		g.text(0, rows-1, snap.Status)
	}
	return g.String()
}

type courtRect struct {
	col, row   int
	cols, rows int
}

// plot sets a cell given in court-relative coordinates, dropping anything
// outside the court.
func (r courtRect) plot(g *grid, col, row int, c rune) {
	if col < 0 || col >= r.cols || row < 0 || row >= r.rows {
		return
	}
	g.set(r.col+col, r.row+row, c)
}

func scale(v, factor float64) int {
	return int(math.Floor(v * factor))
}
