// Package journal stores the ordered, append-only record of ledger events in
// the same key-value store as the registry. Appends happen inside the
// transition's transaction, so an event exists exactly when its transition
// committed.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/store"
)

const (
	keyCount  = "events/count"
	keyPrefix = "events/"
)

// EventKey is the store key of the event with sequence number seq.
func EventKey(seq uint64) string {
	return keyPrefix + strconv.FormatUint(seq, 10)
}

// Count returns the number of journaled events.
func Count(r store.Reader) (uint64, error) {
	raw, ok, err := r.Get(keyCount)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt event counter: %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Append assigns the next sequence number to ev, stages it in tx and returns
// the stored event.
func Append(tx store.Tx, ev kitty.Event) (kitty.Event, error) {
	seq, err := Count(tx)
	if err != nil {
		return kitty.Event{}, err
	}
	ev.Seq = seq

	data, err := json.Marshal(ev)
	if err != nil {
		return kitty.Event{}, fmt.Errorf("failed to encode event: %w", err)
	}
	if err := tx.Put(EventKey(seq), data); err != nil {
		return kitty.Event{}, err
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq+1)
	if err := tx.Put(keyCount, buf[:]); err != nil {
		return kitty.Event{}, err
	}
	return ev, nil
}

// Read returns events with sequence numbers in [from, from+limit). A limit of
// zero or less reads to the end.
func Read(r store.Reader, from uint64, limit int) ([]kitty.Event, error) {
	count, err := Count(r)
	if err != nil {
		return nil, err
	}
	if from >= count {
		return nil, nil
	}

	end := count
	if limit > 0 && from+uint64(limit) < end {
		end = from + uint64(limit)
	}

	events := make([]kitty.Event, 0, end-from)
	for seq := from; seq < end; seq++ {
		raw, ok, err := r.Get(EventKey(seq))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("event %d missing from journal", seq)
		}
		var ev kitty.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", seq, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// List opens a read transaction on s and returns events like Read.
func List(ctx context.Context, s store.Store, from uint64, limit int) ([]kitty.Event, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	return Read(tx, from, limit)
}
