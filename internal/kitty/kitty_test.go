package kitty

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func genomeGen() *rapid.Generator[Genome] {
	return rapid.Custom(func(t *rapid.T) Genome {
		var g Genome
		copy(g[:], rapid.SliceOfN(rapid.Byte(), GenomeSize, GenomeSize).Draw(t, "bytes"))
		return g
	})
}

func TestMix_AllOnesSelectorCopiesFirstParent(t *testing.T) {
	var sel Genome
	for i := range sel {
		sel[i] = 0xFF
	}
	p1 := Genome{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	p2 := Genome{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF}

	require.Equal(t, p1, Mix(sel, p1, p2))
	require.Equal(t, p2, Mix(Genome{}, p1, p2))
}

func TestMix_KnownByte(t *testing.T) {
	sel := Genome{0b1111_0000}
	p1 := Genome{0b1010_1010}
	p2 := Genome{0b0101_0101}

	child := Mix(sel, p1, p2)
	require.Equal(t, byte(0b1010_0101), child[0])
}

func TestProperty_MixTakesEachBitFromExactlyOneParent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := genomeGen().Draw(t, "selector")
		p1 := genomeGen().Draw(t, "p1")
		p2 := genomeGen().Draw(t, "p2")

		child := Mix(sel, p1, p2)

		for i := 0; i < GenomeSize; i++ {
			for bit := 0; bit < 8; bit++ {
				mask := byte(1) << bit
				want := p2[i] & mask
				if sel[i]&mask != 0 {
					want = p1[i] & mask
				}
				require.Equal(t, want, child[i]&mask, "byte %d bit %d", i, bit)
			}
		}
	})
}

func TestProperty_MixOfIdenticalParentsIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := genomeGen().Draw(t, "selector")
		p := genomeGen().Draw(t, "parent")
		require.Equal(t, p, Mix(sel, p, p))
	})
}

func TestParseAssetID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    AssetID
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"max", "4294967295", MaxAssetID, false},
		{"overflow", "4294967296", 0, true},
		{"negative", "-1", 0, true},
		{"garbage", "kitty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssetID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGenomeFromBytes(t *testing.T) {
	g, err := GenomeFromBytes([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})
	require.NoError(t, err)
	require.Equal(t, "000102030405060708090a0b0c0d0e0f", g.String())

	_, err = GenomeFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestEvent_String(t *testing.T) {
	require.Equal(t, "#0 created kitty 3 for alice", Created("alice", 3).String())
	require.Equal(t, "#0 transferred kitty 2 from alice to bob", Transferred("alice", "bob", 2).String())
	require.Equal(t, "#0 bred kitty 2 from 0 and 1 for alice", Bred(0, 1, 2, "alice").String())
}
