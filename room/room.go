package room

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mo-shahab/peer-pong/authority"
)

var (
	ErrNoOffer = errors.New("room: no pending offer")
	ErrBusy    = errors.New("room: peer already in a room")
)

// Room pairs the two peers of a session.
type Room struct {
	ID        string
	Initiator string
	Acceptor  string
	CreatedAt time.Time
}

// Partner returns the other side of the room.
func (r *Room) Partner(id string) string {
	if id == r.Initiator {
		return r.Acceptor
	}
	return r.Initiator
}

// Role of id in the room.
func (r *Room) Role(id string) authority.Role {
	if id == r.Initiator {
		return authority.Initiator
	}
	return authority.Acceptor
}

// Offer is a connect attempt waiting for the target's answer.
type Offer struct {
	From     string
	To       string
	resolved atomic.Bool
}

// RoomManager tracks pending offers and paired rooms.
type RoomManager struct {
	Rooms  map[string]*Room
	byPeer map[string]string
	offers *gocache.Cache
	Mu     sync.Mutex
}

// NewRoomManager creates a manager whose offers expire after ttl.
// onExpire is called for every offer that timed out unanswered.
func NewRoomManager(ttl time.Duration, onExpire func(from, to string)) *RoomManager {
	rm := &RoomManager{
		Rooms:  make(map[string]*Room),
		byPeer: make(map[string]string),
		offers: gocache.New(ttl, ttl/4+time.Millisecond),
	}
	rm.offers.OnEvicted(func(_ string, v interface{}) {
		offer := v.(*Offer)
		// deletes after an answer also land here
		if offer.resolved.Swap(true) {
			return
		}
		if onExpire != nil {
			onExpire(offer.From, offer.To)
		}
	})
	return rm
}

func offerKey(from, to string) string { return from + "->" + to }

// Propose records an offer from -> to. When to already has an offer
// pending towards from, both dialled each other: the pair is made at once
// and the tie-break picks the initiator.
func (rm *RoomManager) Propose(from, to string) (*Room, error) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	if _, busy := rm.byPeer[from]; busy {
		return nil, ErrBusy
	}

	if v, ok := rm.offers.Get(offerKey(to, from)); ok {
		reverse := v.(*Offer)
		if !reverse.resolved.Swap(true) {
			rm.offers.Delete(offerKey(to, from))
			initiator, acceptor := from, to
			if authority.TieBreak(from, to) == authority.Acceptor {
				initiator, acceptor = to, from
			}
			return rm.pairLocked(initiator, acceptor)
		}
	}

	rm.offers.SetDefault(offerKey(from, to), &Offer{From: from, To: to})
	return nil, nil
}

// Accept answers the offer from -> acceptor and pairs both peers.
func (rm *RoomManager) Accept(acceptor, from string) (*Room, error) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	offer, err := rm.takeLocked(from, acceptor)
	if err != nil {
		return nil, err
	}
	return rm.pairLocked(offer.From, offer.To)
}

// Reject drops the offer from -> acceptor.
func (rm *RoomManager) Reject(acceptor, from string) error {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	_, err := rm.takeLocked(from, acceptor)
	return err
}

func (rm *RoomManager) takeLocked(from, to string) (*Offer, error) {
	key := offerKey(from, to)
	v, ok := rm.offers.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w from %s", ErrNoOffer, from)
	}
	offer := v.(*Offer)
	if offer.resolved.Swap(true) {
		return nil, fmt.Errorf("%w from %s", ErrNoOffer, from)
	}
	rm.offers.Delete(key)
	return offer, nil
}

func (rm *RoomManager) pairLocked(initiator, acceptor string) (*Room, error) {
	if _, busy := rm.byPeer[initiator]; busy {
		return nil, ErrBusy
	}
	if _, busy := rm.byPeer[acceptor]; busy {
		return nil, ErrBusy
	}

	room := &Room{
		ID:        uuid.NewString(),
		Initiator: initiator,
		Acceptor:  acceptor,
		CreatedAt: time.Now(),
	}
	rm.Rooms[room.ID] = room
	rm.byPeer[initiator] = room.ID
	rm.byPeer[acceptor] = room.ID

	return room, nil
}

// RoomOf returns the room a peer is paired in.
func (rm *RoomManager) RoomOf(id string) (*Room, bool) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	roomID, ok := rm.byPeer[id]
	if !ok {
		return nil, false
	}
	room, ok := rm.Rooms[roomID]
	return room, ok
}

func (rm *RoomManager) GetRoom(roomID string) (*Room, bool) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	room, ok := rm.Rooms[roomID]
	return room, ok
}

// RemovePeer closes the peer's room, if any, and forgets its offers.
func (rm *RoomManager) RemovePeer(id string) (*Room, bool) {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()

	for key, item := range rm.offers.Items() {
		offer := item.Object.(*Offer)
		if offer.From == id || offer.To == id {
			offer.resolved.Store(true)
			rm.offers.Delete(key)
		}
	}

	roomID, ok := rm.byPeer[id]
	if !ok {
		return nil, false
	}
	room := rm.Rooms[roomID]
	delete(rm.Rooms, roomID)
	delete(rm.byPeer, room.Initiator)
	delete(rm.byPeer, room.Acceptor)

	return room, true
}

// Count returns the number of paired rooms.
func (rm *RoomManager) Count() int {
	rm.Mu.Lock()
	defer rm.Mu.Unlock()
	return len(rm.Rooms)
}
