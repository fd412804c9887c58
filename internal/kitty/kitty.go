// Package kitty defines the domain types of the kitty registry: identifiers,
// genomes, owners, domain events and the error taxonomy shared by every
// transition.
package kitty

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// GenomeSize is the fixed length of a kitty genome in bytes.
const GenomeSize = 16

// MaxAssetID is the largest representable AssetID.
const MaxAssetID AssetID = math.MaxUint32

// AssetID identifies a kitty. Ids are assigned in increasing order starting at
// zero and are never reused.
type AssetID uint32

// String returns the decimal form of the id.
func (id AssetID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseAssetID parses a decimal asset id.
func ParseAssetID(s string) (AssetID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid kitty id %q: %w", s, err)
	}
	return AssetID(v), nil
}

// OwnerID is the opaque identity of an authenticated caller.
type OwnerID string

// String returns the identity as a string.
func (o OwnerID) String() string {
	return string(o)
}

// Genome is the immutable inherited payload of a kitty.
type Genome [GenomeSize]byte

// String returns the lowercase hex encoding of the genome.
func (g Genome) String() string {
	return hex.EncodeToString(g[:])
}

// GenomeFromBytes copies b into a Genome. b must be exactly GenomeSize bytes.
func GenomeFromBytes(b []byte) (Genome, error) {
	var g Genome
	if len(b) != GenomeSize {
		return g, fmt.Errorf("genome must be %d bytes, got %d", GenomeSize, len(b))
	}
	copy(g[:], b)
	return g, nil
}

// Mix combines two parent genomes. Every child bit is taken from p1 where the
// corresponding selector bit is set and from p2 where it is clear.
func Mix(selector, p1, p2 Genome) Genome {
	var child Genome
	for i := range child {
		child[i] = (selector[i] & p1[i]) | (^selector[i] & p2[i])
	}
	return child
}

// Kitty is the read model of a registry entry.
type Kitty struct {
	ID     AssetID `json:"id"`
	Genome Genome  `json:"-"`
	Owner  OwnerID `json:"owner"`
}
