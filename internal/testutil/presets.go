package testutil

// WithStandardKitties adds the standard dataset:
//
//	0 alice (created)
//	1 alice (created)
//	2 bob   (created by alice, transferred to bob)
//	3 carol (bred from 0 and 1)
func (b *Builder) WithStandardKitties() *Builder {
	return b.
		WithKitties("alice", 3).
		WithTransfer("alice", "bob", 2).
		WithBred("carol", 0, 1)
}
