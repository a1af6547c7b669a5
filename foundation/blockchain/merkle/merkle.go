// Package merkle provides a merkle tree over the transactions of a block so
// the block header can commit to its transactions with a single root hash.
// The tree construction follows github.com/cbergoon/merkletree (MIT): leaves
// are paired left to right and an odd node at any level is paired with itself.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotFound is returned when proof is requested for a value that is
// not in the tree.
var ErrNotFound = errors.New("unable to find value in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint. The tree is kept as a list of
// levels, levels[0] being the leaf hashes and the last level the root.
type Tree[T Hashable[T]] struct {
	values       []T
	levels       [][][]byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	if len(values) == 0 {
		return nil, errors.New("cannot construct tree with no content")
	}

	t := Tree[T]{
		values:       make([]T, len(values)),
		hashStrategy: sha256.New,
	}
	copy(t.values, values)

	for _, option := range options {
		option(&t)
	}

	leafs := make([][]byte, len(values))
	for i, value := range values {
		h, err := value.Hash()
		if err != nil {
			return nil, err
		}
		leafs[i] = h
	}

	t.levels = [][][]byte{leafs}
	for level := leafs; len(level) > 1 || len(t.levels) == 1; {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := i + 1
			if right == len(level) {
				right = i
			}

			h, err := t.join(level[i], level[right])
			if err != nil {
				return nil, err
			}
			next = append(next, h)
		}

		t.levels = append(t.levels, next)
		level = next
	}

	return &t, nil
}

// Values returns a copy of the values stored in the tree in their
// original order.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.values))
	copy(values, t.values)
	return values
}

// MerkleRoot returns the root hash of the tree.
func (t *Tree[T]) MerkleRoot() []byte {
	root := t.levels[len(t.levels)-1][0]
	return append([]byte(nil), root...)
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.MerkleRoot())
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash comes first in the concatenation, 1 means it comes second.
func (t *Tree[T]) Proof(value T) ([][]byte, []int64, error) {
	idx := -1
	for i, v := range t.values {
		if v.Equals(value) {
			idx = i
			break
		}
	}

	if idx == -1 {
		return nil, nil, ErrNotFound
	}

	var proof [][]byte
	var order []int64
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling >= len(level) {
			sibling = idx
		}

		proof = append(proof, level[sibling])
		if idx%2 == 0 {
			order = append(order, 1)
		} else {
			order = append(order, 0)
		}

		idx /= 2
	}

	return proof, order, nil
}

// VerifyProof checks the value against the proof and returns an error if
// the calculated root doesn't match the root of this tree.
func (t *Tree[T]) VerifyProof(value T, proof [][]byte, order []int64) error {
	if len(proof) != len(order) {
		return errors.New("proof and order have different lengths")
	}

	h, err := value.Hash()
	if err != nil {
		return err
	}

	for i, p := range proof {
		switch order[i] {
		case 0:
			h, err = t.join(p, h)
		default:
			h, err = t.join(h, p)
		}
		if err != nil {
			return err
		}
	}

	if !bytes.Equal(h, t.MerkleRoot()) {
		return errors.New("calculated root does not match the merkle root")
	}

	return nil
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the Merkle tree. Use the Values function to
// return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// =============================================================================

// join hashes the concatenation of the left and right hashes.
func (t *Tree[T]) join(left []byte, right []byte) ([]byte, error) {
	h := t.hashStrategy()
	if _, err := h.Write(left); err != nil {
		return nil, err
	}
	if _, err := h.Write(right); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
