package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mo-shahab/peer-pong/authority"
)

func TestProposeThenAccept(t *testing.T) {
	rm := NewRoomManager(time.Minute, nil)

	room, err := rm.Propose("ABC", "XYZ")
	require.NoError(t, err)
	require.Nil(t, room)

	room, err = rm.Accept("XYZ", "ABC")
	require.NoError(t, err)
	require.Equal(t, "ABC", room.Initiator)
	require.Equal(t, "XYZ", room.Acceptor)
	require.Equal(t, authority.Initiator, room.Role("ABC"))
	require.Equal(t, authority.Acceptor, room.Role("XYZ"))
	require.Equal(t, "XYZ", room.Partner("ABC"))
	require.NotEmpty(t, room.ID)

	got, ok := rm.RoomOf("XYZ")
	require.True(t, ok)
	require.Equal(t, room.ID, got.ID)
	require.Equal(t, 1, rm.Count())
}

func TestAcceptWithoutOffer(t *testing.T) {
	rm := NewRoomManager(time.Minute, nil)
	_, err := rm.Accept("XYZ", "ABC")
	require.ErrorIs(t, err, ErrNoOffer)
}

func TestRejectDropsOffer(t *testing.T) {
	rm := NewRoomManager(time.Minute, nil)
	_, err := rm.Propose("ABC", "XYZ")
	require.NoError(t, err)

	require.NoError(t, rm.Reject("XYZ", "ABC"))
	_, err = rm.Accept("XYZ", "ABC")
	require.ErrorIs(t, err, ErrNoOffer)
}

func TestMutualDialPairsWithTieBreak(t *testing.T) {
	rm := NewRoomManager(time.Minute, nil)

	_, err := rm.Propose("XYZ", "ABC")
	require.NoError(t, err)
	room, err := rm.Propose("ABC", "XYZ")
	require.NoError(t, err)
	require.NotNil(t, room)
	require.Equal(t, "ABC", room.Initiator)
	require.Equal(t, "XYZ", room.Acceptor)
}

func TestBusyPeerCannotPropose(t *testing.T) {
	rm := NewRoomManager(time.Minute, nil)
	_, _ = rm.Propose("ABC", "XYZ")
	_, err := rm.Accept("XYZ", "ABC")
	require.NoError(t, err)

	_, err = rm.Propose("ABC", "QQQ")
	require.ErrorIs(t, err, ErrBusy)
}

func TestRemovePeerClosesRoom(t *testing.T) {
	rm := NewRoomManager(time.Minute, nil)
	_, _ = rm.Propose("ABC", "XYZ")
	room, err := rm.Accept("XYZ", "ABC")
	require.NoError(t, err)

	removed, ok := rm.RemovePeer("ABC")
	require.True(t, ok)
	require.Equal(t, room.ID, removed.ID)
	_, ok = rm.RoomOf("XYZ")
	require.False(t, ok)
	require.Equal(t, 0, rm.Count())

	_, ok = rm.RemovePeer("ABC")
	require.False(t, ok)
}

func TestOfferExpires(t *testing.T) {
	expired := make(chan [2]string, 1)
	rm := NewRoomManager(20*time.Millisecond, func(from, to string) {
		expired <- [2]string{from, to}
	})

	_, err := rm.Propose("ABC", "XYZ")
	require.NoError(t, err)

	select {
	case got := <-expired:
		require.Equal(t, [2]string{"ABC", "XYZ"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("offer never expired")
	}

	_, err = rm.Accept("XYZ", "ABC")
	require.ErrorIs(t, err, ErrNoOffer)
}

func TestAnsweredOfferDoesNotExpire(t *testing.T) {
	expired := make(chan struct{}, 1)
	rm := NewRoomManager(20*time.Millisecond, func(string, string) { expired <- struct{}{} })

	_, _ = rm.Propose("ABC", "XYZ")
	_, err := rm.Accept("XYZ", "ABC")
	require.NoError(t, err)

	select {
	case <-expired:
		t.Fatal("answered offer reported as expired")
	case <-time.After(100 * time.Millisecond):
	}
}
