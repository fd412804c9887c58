// Package entropy derives the pseudo-random 16-byte values used for new
// genomes and breeding selectors.
//
// The output is BLAKE2b with a 128-bit digest over the block seed, the caller
// identity and the operation counter. Every replica feeding the same inputs
// gets the same bytes, while nobody can predict them before the block seed is
// known.
package entropy

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/zjrosen/kitties/internal/kitty"
)

// Derive returns the 16-byte value for (seed, caller, opIndex).
func Derive(seed []byte, caller kitty.OwnerID, opIndex uint32) kitty.Genome {
	h, err := blake2b.New(kitty.GenomeSize, nil)
	if err != nil {
		// Only possible for an invalid digest size or an oversized key.
		panic(err)
	}
	_, _ = h.Write(encode(seed, caller, opIndex))

	var out kitty.Genome
	copy(out[:], h.Sum(nil))
	return out
}

// encode lays the inputs out unambiguously: each variable-length field is
// prefixed by its uvarint length and the counter is a little-endian uint32.
func encode(seed []byte, caller kitty.OwnerID, opIndex uint32) []byte {
	buf := make([]byte, 0, len(seed)+len(caller)+2*binary.MaxVarintLen64+4)
	buf = binary.AppendUvarint(buf, uint64(len(seed)))
	buf = append(buf, seed...)
	buf = binary.AppendUvarint(buf, uint64(len(caller)))
	buf = append(buf, caller...)
	buf = binary.LittleEndian.AppendUint32(buf, opIndex)
	return buf
}
