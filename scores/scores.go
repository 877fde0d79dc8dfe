package scores

// Scores holds the score pair of a match. Values only grow until Reset.
type Scores struct {
	Player1 int32
	Player2 int32
}

// Player identifies a side of the court.
type Player int

const (
	Player1 Player = iota + 1
	Player2
)

func (p Player) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	}
	return "unknown"
}

// Increment adds exactly one point to the given player.
func (s *Scores) Increment(p Player) {
	switch p {
	case Player1:
		s.Player1++
	case Player2:
		s.Player2++
	}
}

// Overwrite replaces both values, as received from the opponent. Negative
// values are clamped to zero.
func (s *Scores) Overwrite(player1, player2 int32) {
	s.Player1 = max(player1, 0)
	s.Player2 = max(player2, 0)
}

func (s *Scores) Reset() {
	s.Player1 = 0
	s.Player2 = 0
}

// Winner returns the first player whose score reached the threshold.
func (s Scores) Winner(threshold int32) (Player, bool) {
	if s.Player1 >= threshold {
		return Player1, true
	}
	if s.Player2 >= threshold {
		return Player2, true
	}
	return 0, false
}
