// Package cidutil computes the content identifiers under which events are
// archived.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 of data with the raw codec and a sha2-256 multihash.
func Sum(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// Matches reports whether id addresses data, using the hash function named
// by id itself.
func Matches(id cid.Cid, data []byte) bool {
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return false
	}
	return got.Equals(id)
}
