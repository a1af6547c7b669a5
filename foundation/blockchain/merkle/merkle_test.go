package merkle_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"testing"

	"github.com/ardanlabs/blockcraft/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// data uses the sha256 hashing algorithm for the merkle tree.
type data struct {
	x string
}

// Hash hashes the values using sha256.
func (d data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d data) Equals(other data) bool {
	return d.x == other.x
}

func sum(b ...[]byte) []byte {
	h := sha256.Sum256(bytes.Join(b, nil))
	return h[:]
}

// =============================================================================

func Test_Root(t *testing.T) {
	a, _ := data{"a"}.Hash()
	b, _ := data{"b"}.Hash()
	c, _ := data{"c"}.Hash()

	tt := []struct {
		name   string
		values []data
		root   []byte
	}{
		{"one", []data{{"a"}}, sum(a, a)},
		{"two", []data{{"a"}, {"b"}}, sum(a, b)},
		{"three", []data{{"a"}, {"b"}, {"c"}}, sum(sum(a, b), sum(c, c))},
	}

	t.Log("Given the need to build merkle roots.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %d values.", testID, len(tst.values))
				{
					tree, err := merkle.NewTree(tst.values)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to build the tree.", success, testID)

					if !bytes.Equal(tree.MerkleRoot(), tst.root) {
						t.Logf("\t%s\tTest %d:\tgot: %x", failed, testID, tree.MerkleRoot())
						t.Logf("\t%s\tTest %d:\texp: %x", failed, testID, tst.root)
						t.Fatalf("\t%s\tTest %d:\tShould get the expected root.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected root.", success, testID)

					if len(tree.Values()) != len(tst.values) {
						t.Fatalf("\t%s\tTest %d:\tShould get back the original values.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the original values.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Empty(t *testing.T) {
	if _, err := merkle.NewTree([]data{}); err == nil {
		t.Fatalf("Should not be able to build a tree with no content.")
	}
}

func Test_RootChangesOnTamper(t *testing.T) {
	values := []data{{"a"}, {"b"}, {"c"}, {"d"}}

	tree1, err := merkle.NewTree(values)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	values[2] = data{"C"}
	tree2, err := merkle.NewTree(values)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	if tree1.RootHex() == tree2.RootHex() {
		t.Fatalf("Should get a different root when a value changes.")
	}

	if tree1.Values()[2].x != "c" {
		t.Fatalf("Should not share the caller's backing array.")
	}
}

func Test_Proof(t *testing.T) {
	values := []data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	tree, err := merkle.NewTree(values)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	for _, v := range values {
		proof, order, err := tree.Proof(v)
		if err != nil {
			t.Fatalf("Should be able to get a proof for %s: %v", v.x, err)
		}

		if err := tree.VerifyProof(v, proof, order); err != nil {
			t.Fatalf("Should be able to verify the proof for %s: %v", v.x, err)
		}

		if err := tree.VerifyProof(data{"z"}, proof, order); err == nil {
			t.Fatalf("Should not verify a proof for the wrong value.")
		}
	}

	if _, _, err := tree.Proof(data{"z"}); err == nil {
		t.Fatalf("Should not get a proof for a missing value.")
	}
}

func Test_HashStrategy(t *testing.T) {
	values := []data{{"a"}, {"b"}}

	sha, err := merkle.NewTree(values)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	md, err := merkle.NewTree(values, merkle.WithHashStrategy[data](md5.New))
	if err != nil {
		t.Fatalf("Should be able to build the tree: %v", err)
	}

	if len(md.MerkleRoot()) != md5.Size {
		t.Fatalf("Should get an md5 sized root, got %d", len(md.MerkleRoot()))
	}

	if bytes.Equal(sha.MerkleRoot(), md.MerkleRoot()) {
		t.Fatalf("Should get different roots for different strategies.")
	}
}
