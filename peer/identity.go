package peer

import (
	"os"
	"os/user"
	"runtime"
	"strings"
)

// IDLength is the length of every peer id.
const IDLength = 3

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Identity produces the local peer id.
type Identity interface {
	ID() string
}

// StaticIdentity is a fixed id.
type StaticIdentity string

func (s StaticIdentity) ID() string { return strings.ToUpper(string(s)) }

// FingerprintIdentity derives a short id from environment data, so the same
// machine tends to get the same id back. Ids are not unique, collisions
// between machines are possible.
type FingerprintIdentity struct {
	Fingerprint string
}

func (f FingerprintIdentity) ID() string {
	var h int32
	for _, c := range f.Fingerprint {
		h = h*31 + int32(c)
	}

	n := int64(h)
	var sb strings.Builder
	for i := 0; i < IDLength; i++ {
		sb.WriteByte(idAlphabet[abs(n)%int64(len(idAlphabet))])
		n = floorDiv(n, int64(len(idAlphabet)))
	}
	return sb.String()
}

// HostFingerprint collects stable facts about the local environment.
// Callers may append anything else that is stable, like a terminal size.
func HostFingerprint(extra ...string) string {
	parts := []string{runtime.GOOS, runtime.GOARCH, os.Getenv("LANG")}
	if host, err := os.Hostname(); err == nil {
		parts = append(parts, host)
	}
	if u, err := user.Current(); err == nil {
		parts = append(parts, u.Username)
	}
	parts = append(parts, extra...)
	return strings.Join(parts, "")
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// NormalizeID upper-cases and trims an id typed by a user.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
