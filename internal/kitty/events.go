package kitty

import "fmt"

// EventKind names a domain event.
type EventKind string

const (
	// EventCreated is emitted when a kitty is created from entropy.
	EventCreated EventKind = "created"
	// EventTransferred is emitted when a kitty changes owner.
	EventTransferred EventKind = "transferred"
	// EventBred is emitted when a child kitty is bred from two parents.
	EventBred EventKind = "bred"
)

// Event is a domain event produced by a successful transition.
// Which fields are meaningful depends on Kind:
//
//	created:     Owner, ID
//	transferred: From, To, ID
//	bred:        Parent1, Parent2, ID (the child), Owner
//
// Seq, Block and OpIndex are assigned when the event is journaled.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    EventKind `json:"kind"`
	ID      AssetID   `json:"id"`
	Owner   OwnerID   `json:"owner,omitempty"`
	From    OwnerID   `json:"from,omitempty"`
	To      OwnerID   `json:"to,omitempty"`
	Parent1 AssetID   `json:"parent_1,omitempty"`
	Parent2 AssetID   `json:"parent_2,omitempty"`
	Block   uint64    `json:"block"`
	OpIndex uint32    `json:"op_index"`
}

// Created builds a created event.
func Created(owner OwnerID, id AssetID) Event {
	return Event{Kind: EventCreated, Owner: owner, ID: id}
}

// Transferred builds a transferred event.
func Transferred(from, to OwnerID, id AssetID) Event {
	return Event{Kind: EventTransferred, From: from, To: to, ID: id}
}

// Bred builds a bred event.
func Bred(parent1, parent2, child AssetID, owner OwnerID) Event {
	return Event{Kind: EventBred, Parent1: parent1, Parent2: parent2, ID: child, Owner: owner}
}

// String returns a one-line human readable description.
func (e Event) String() string {
	switch e.Kind {
	case EventCreated:
		return fmt.Sprintf("#%d created kitty %d for %s", e.Seq, e.ID, e.Owner)
	case EventTransferred:
		return fmt.Sprintf("#%d transferred kitty %d from %s to %s", e.Seq, e.ID, e.From, e.To)
	case EventBred:
		return fmt.Sprintf("#%d bred kitty %d from %d and %d for %s", e.Seq, e.ID, e.Parent1, e.Parent2, e.Owner)
	default:
		return fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	}
}
