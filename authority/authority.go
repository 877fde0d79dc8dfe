// Package authority decides which peer of a session owns ball physics.
package authority

// Role is how a peer took part in establishing the connection.
type Role string

const (
	// Initiator dialled the remote peer and received the open acknowledgment.
	Initiator Role = "initiator"
	// Acceptor only accepted an inbound connection.
	Acceptor Role = "acceptor"
)

func (r Role) Valid() bool {
	return r == Initiator || r == Acceptor
}

// DecideHost elects the host by connection role: the initiator is host.
func DecideHost(role Role) bool {
	return role == Initiator
}

// TieBreak resolves a mutual dial where both peers believe they are the
// initiator. The lexicographically lower ID wins the host role. It returns
// the role of local.
func TieBreak(localID, remoteID string) Role {
	if localID < remoteID {
		return Initiator
	}
	return Acceptor
}
