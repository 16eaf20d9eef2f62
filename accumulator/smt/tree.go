// Package smt implements the accumulator service on in-memory sparse Merkle
// trees.
package smt

import (
	"errors"

	"github.com/tchajed/marshal"
	"github.com/zeebo/blake3"
)

const (
	emptyNodeTag    byte = 0
	interiorNodeTag byte = 1
	leafNodeTag     byte = 2
)

const labelBits = 32 * 8

// ErrProof is returned when a Merkle proof does not verify.
var ErrProof = errors.New("smt: proof does not verify")

// Tree is a binary sparse Merkle tree over 32-byte labels. Leaves sit at the
// shallowest depth where their label prefix is unique, so the root depends
// only on the set of (label, value) pairs and not on insertion order.
type Tree struct {
	root      *node
	emptyHash [32]byte
	size      int
}

// node is one of:
//  1. empty: the nil pointer.
//  2. interior: at least one child set.
//  3. leaf: no children; carries label and val.
type node struct {
	hash   [32]byte
	child0 *node
	child1 *node
	label  [32]byte
	val    []byte
}

// Proof carries the sibling hashes from the root down to the terminating
// node. Non-membership proofs that end in a different leaf also carry that
// leaf.
type Proof struct {
	Siblings  [][32]byte
	LeafLabel *[32]byte
	LeafVal   []byte
}

func NewTree() *Tree {
	return &Tree{emptyHash: blake3.Sum256([]byte{emptyNodeTag})}
}

func (t *Tree) Root() [32]byte { return t.nodeHash(t.root) }

func (t *Tree) Len() int { return t.size }

// Put sets label to val. val is retained by the tree.
func (t *Tree) Put(label [32]byte, val []byte) {
	if t.put(&t.root, 0, label, val) {
		t.size++
	}
}

// put returns true when label was not present before.
func (t *Tree) put(n0 **node, depth uint64, label [32]byte, val []byte) bool {
	n := *n0
	if n == nil {
		leaf := &node{label: label, val: val}
		setLeafHash(leaf)
		*n0 = leaf
		return true
	}
	if isLeaf(n) {
		if n.label == label {
			n.val = val
			setLeafHash(n)
			return false
		}
		inter := &node{}
		*n0 = inter
		existing, _ := getChild(inter, n.label, depth)
		*existing = n
		next, _ := getChild(inter, label, depth)
		added := t.put(next, depth+1, label, val)
		t.setInteriorHash(inter)
		return added
	}
	c, _ := getChild(n, label, depth)
	added := t.put(c, depth+1, label, val)
	t.setInteriorHash(n)
	return added
}

// Delete removes label and reports whether it was present.
func (t *Tree) Delete(label [32]byte) bool {
	if t.del(&t.root, 0, label) {
		t.size--
		return true
	}
	return false
}

func (t *Tree) del(n0 **node, depth uint64, label [32]byte) bool {
	n := *n0
	if n == nil {
		return false
	}
	if isLeaf(n) {
		if n.label != label {
			return false
		}
		*n0 = nil
		return true
	}
	c, _ := getChild(n, label, depth)
	if !t.del(c, depth+1, label) {
		return false
	}
	// A lone leaf moves up so the tree stays in canonical form.
	switch {
	case n.child0 == nil && n.child1 == nil:
		*n0 = nil
	case n.child0 == nil && isLeaf(n.child1):
		*n0 = n.child1
	case n.child1 == nil && isLeaf(n.child0):
		*n0 = n.child0
	default:
		t.setInteriorHash(n)
	}
	return true
}

// Get returns the value stored at label.
func (t *Tree) Get(label [32]byte) ([]byte, bool) {
	in, val, _ := t.walk(label, false)
	return val, in
}

// Prove returns whether label is present, its value, and a proof of either
// against the current root.
func (t *Tree) Prove(label [32]byte) (bool, []byte, *Proof, [32]byte) {
	in, val, proof := t.walk(label, true)
	return in, val, proof, t.Root()
}

func (t *Tree) walk(label [32]byte, prove bool) (bool, []byte, *Proof) {
	n := t.root
	proof := &Proof{}
	for depth := uint64(0); depth < labelBits; depth++ {
		if n == nil || isLeaf(n) {
			break
		}
		child, sib := getChild(n, label, depth)
		if prove {
			proof.Siblings = append(proof.Siblings, t.nodeHash(sib))
		}
		n = *child
	}
	if n == nil {
		return false, nil, proof
	}
	if n.label != label {
		l := n.label
		proof.LeafLabel = &l
		proof.LeafVal = n.val
		return false, nil, proof
	}
	return true, n.val, proof
}

// VerifyProof checks proof against root. With inTree it proves (label, val)
// is present; otherwise it proves label is absent.
func VerifyProof(inTree bool, label [32]byte, val []byte, proof *Proof, root [32]byte) error {
	if proof == nil || len(proof.Siblings) > labelBits {
		return ErrProof
	}
	var curr [32]byte
	switch {
	case inTree:
		curr = leafHash(label, val)
	case proof.LeafLabel != nil:
		if *proof.LeafLabel == label {
			return ErrProof
		}
		curr = leafHash(*proof.LeafLabel, proof.LeafVal)
	default:
		curr = blake3.Sum256([]byte{emptyNodeTag})
	}
	buf := make([]byte, 0, 2*32+1)
	for depth := len(proof.Siblings); depth >= 1; depth-- {
		sib := proof.Siblings[depth-1]
		if !getBit(label, uint64(depth-1)) {
			buf = interiorPreimage(buf[:0], curr, sib)
		} else {
			buf = interiorPreimage(buf[:0], sib, curr)
		}
		curr = blake3.Sum256(buf)
	}
	if curr != root {
		return ErrProof
	}
	return nil
}

func isLeaf(n *node) bool { return n.child0 == nil && n.child1 == nil }

func (t *Tree) nodeHash(n *node) [32]byte {
	if n == nil {
		return t.emptyHash
	}
	return n.hash
}

func setLeafHash(n *node) { n.hash = leafHash(n.label, n.val) }

func leafHash(label [32]byte, val []byte) [32]byte {
	b := make([]byte, 0, 32+8+len(val)+1)
	b = append(b, label[:]...)
	b = marshal.WriteInt(b, uint64(len(val)))
	b = append(b, val...)
	b = append(b, leafNodeTag)
	return blake3.Sum256(b)
}

func (t *Tree) setInteriorHash(n *node) {
	b := interiorPreimage(make([]byte, 0, 2*32+1), t.nodeHash(n.child0), t.nodeHash(n.child1))
	n.hash = blake3.Sum256(b)
}

func interiorPreimage(b []byte, child0, child1 [32]byte) []byte {
	b = append(b, child0[:]...)
	b = append(b, child1[:]...)
	return append(b, interiorNodeTag)
}

// getChild returns the child selected by the label bit at depth, and its
// sibling.
func getChild(n *node, label [32]byte, depth uint64) (**node, *node) {
	if !getBit(label, depth) {
		return &n.child0, n.child1
	}
	return &n.child1, n.child0
}

func getBit(b [32]byte, n uint64) bool {
	return b[n/8]&(1<<(n%8)) != 0
}
