// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package merkavl

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypermerkle/merkavl/store"
)

// checkInvariants walks the sparse tree rooted at t.root (materializing as
// it goes) and asserts the BST order, AVL balance, and digest-correctness
// invariants that must hold after every apply.
func checkInvariants(t *testing.T, tr *Tree) {
	t.Helper()
	if tr.root == nil {
		return
	}
	_, _, _ = walkCheck(t, tr, tr.root, nil, nil)
}

func walkCheck(t *testing.T, tr *Tree, n *sparseNode, lo, hi []byte) (uint8, Digest, []byte) {
	t.Helper()
	key := n.rec.Key
	if lo != nil {
		require.True(t, bytes.Compare(lo, key) < 0, "BST order: %x not > lower bound %x", key, lo)
	}
	if hi != nil {
		require.True(t, bytes.Compare(key, hi) < 0, "BST order: %x not < upper bound %x", key, hi)
	}

	var leftHeight, rightHeight uint8
	var leftDigest, rightDigest Digest = NullDigest, NullDigest

	if !n.left.isEmpty() {
		child, err := n.left.materialize(tr.fetchNode)
		require.NoError(t, err)
		leftHeight, leftDigest, _ = walkCheck(t, tr, child, lo, key)
	}
	if !n.right.isEmpty() {
		child, err := n.right.materialize(tr.fetchNode)
		require.NoError(t, err)
		rightHeight, rightDigest, _ = walkCheck(t, tr, child, key, hi)
	}

	bf := int(rightHeight) - int(leftHeight)
	require.LessOrEqual(t, bf, 1, "balance factor too high at %x", key)
	require.GreaterOrEqual(t, bf, -1, "balance factor too low at %x", key)

	wantHeight := leftHeight
	if rightHeight > wantHeight {
		wantHeight = rightHeight
	}
	wantHeight++
	require.Equal(t, wantHeight, n.height(), "recorded height mismatch at %x", key)

	wantDigest := subtreeDigest(n.rec.LeafHash, leftDigest, rightDigest)
	require.Equal(t, wantDigest, n.subtreeDigest(), "digest mismatch at %x", key)

	return n.height(), n.subtreeDigest(), key
}

func u32key(i uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], i)
	return b[:]
}

func newTestTree(t *testing.T) (*Tree, store.Store) {
	t.Helper()
	db := store.NewMemory()
	tr, err := Open(db)
	require.NoError(t, err)
	return tr, db
}

// Scenario 1: three-key put.
func TestScenarioThreeKeyPut(t *testing.T) {
	tr, db := newTestTree(t)

	err := tr.ApplyChecked([]BatchOp{
		Put([]byte("key"), []byte("value")),
		Put([]byte("key2"), []byte("value2")),
		Put([]byte("key3"), []byte("value3")),
	})
	require.NoError(t, err)
	checkInvariants(t, tr)

	v, err := tr.Get([]byte("key2"))
	require.NoError(t, err)
	require.Equal(t, []byte("value2"), v)

	require.Equal(t, uint8(2), tr.root.height())
	require.Equal(t, []byte("key2"), tr.root.rec.Key)

	rootKey, ok, err := db.Get(rootPointerKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("key2"), rootKey)
}

// Scenario 2: range scan.
func TestScenarioRangeScan(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{
		Put([]byte("key"), []byte("value")),
		Put([]byte("key2"), []byte("value2")),
		Put([]byte("key3"), []byte("value3")),
	}))

	var keys [][]byte
	err := tr.RangeScan([]byte("key"), []byte("key3"), func(key, value []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("key"), []byte("key2"), []byte("key3")}, keys)
}

// Scenario 3: delete 1000 of 1001.
func TestScenarioDelete1000Of1001(t *testing.T) {
	tr, _ := newTestTree(t)

	var puts []BatchOp
	for i := uint32(0); i <= 1000; i++ {
		puts = append(puts, Put(u32key(i), []byte("xyz")))
	}
	require.NoError(t, tr.ApplyChecked(puts))
	checkInvariants(t, tr)

	var dels []BatchOp
	for i := uint32(0); i < 1000; i++ {
		dels = append(dels, Del(u32key(i)))
	}
	require.NoError(t, tr.ApplyChecked(dels))
	checkInvariants(t, tr)

	require.Equal(t, u32key(1000), tr.root.rec.Key)
	require.Equal(t, uint8(1), tr.root.height())
}

// Scenario 4: persistence round-trip.
func TestScenarioPersistenceRoundTrip(t *testing.T) {
	db := store.NewMemory()
	tr, err := Open(db)
	require.NoError(t, err)

	var puts []BatchOp
	for i := uint32(0); i < 100; i++ {
		puts = append(puts, Put(u32key(i), []byte("xyz")))
	}
	require.NoError(t, tr.ApplyChecked(puts))
	wantRoot := tr.RootDigest()
	require.NoError(t, tr.Close())

	reopened, err := Open(db)
	require.NoError(t, err)
	require.Equal(t, wantRoot, reopened.RootDigest())

	for i := uint32(0); i < 100; i++ {
		v, err := reopened.Get(u32key(i))
		require.NoError(t, err)
		require.Equal(t, []byte("xyz"), v)
	}
}

// Scenario 6: duplicate rejection.
func TestScenarioDuplicateRejection(t *testing.T) {
	tr, _ := newTestTree(t)
	err := tr.ApplyChecked([]BatchOp{
		Put([]byte("k"), []byte("v1")),
		Put([]byte("k"), []byte("v2")),
	})
	require.ErrorIs(t, err, errDuplicateKeyInBatch)

	_, err = tr.Get([]byte("k"))
	require.ErrorIs(t, err, errKeyNotFound)
}

func TestGetMissingKeyFails(t *testing.T) {
	tr, _ := newTestTree(t)
	_, err := tr.Get([]byte("nope"))
	require.ErrorIs(t, err, errKeyNotFound)
}

func TestEmptyBatchIsNoOp(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked(nil))
	require.Nil(t, tr.root)
	require.Equal(t, NullDigest, tr.RootDigest())
}

func TestSingleLeafTreeHasHeightOne(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{Put([]byte("only"), []byte("v"))}))
	require.Equal(t, uint8(1), tr.root.height())
}

func TestDeleteOnEmptyTreeIsNoOp(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{Del([]byte("absent"))}))
	require.Nil(t, tr.root)
}

func TestDeleteMissingKeyIsNoOp(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{Put([]byte("k"), []byte("v"))}))
	before := tr.RootDigest()

	require.NoError(t, tr.ApplyChecked([]BatchOp{Del([]byte("missing"))}))
	require.Equal(t, before, tr.RootDigest())
}

func TestPutSameValueIsIdempotent(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{
		Put([]byte("a"), []byte("1")),
		Put([]byte("b"), []byte("2")),
	}))
	before := tr.RootDigest()

	require.NoError(t, tr.ApplyChecked([]BatchOp{Put([]byte("a"), []byte("1"))}))
	require.Equal(t, before, tr.RootDigest())
}

func TestDeleteLastKeyEmptiesTreeAndSentinel(t *testing.T) {
	tr, db := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{Put([]byte("only"), []byte("v"))}))

	_, ok, err := db.Get(rootPointerKey)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, tr.ApplyChecked([]BatchOp{Del([]byte("only"))}))
	require.Nil(t, tr.root)

	_, ok, err = db.Get(rootPointerKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyLengthBoundary(t *testing.T) {
	tr, _ := newTestTree(t)
	ok := bytes.Repeat([]byte{'k'}, MaxKeyLen)
	require.NoError(t, tr.ApplyChecked([]BatchOp{Put(ok, []byte("v"))}))

	tooLong := bytes.Repeat([]byte{'k'}, MaxKeyLen+1)
	err := tr.ApplyChecked([]BatchOp{Put(tooLong, []byte("v"))})
	require.ErrorIs(t, err, errKeyTooLong)
}

func TestValueLengthBoundary(t *testing.T) {
	tr, _ := newTestTree(t)
	ok := bytes.Repeat([]byte{'v'}, MaxValueLen)
	require.NoError(t, tr.ApplyChecked([]BatchOp{Put([]byte("k1"), ok)}))

	tooLong := bytes.Repeat([]byte{'v'}, MaxValueLen+1)
	err := tr.ApplyChecked([]BatchOp{Put([]byte("k2"), tooLong)})
	require.ErrorIs(t, err, errValueTooLong)
}

func TestApplyOrderIndependenceOfFinalDigest(t *testing.T) {
	batch1 := []BatchOp{
		Put([]byte("a"), []byte("1")),
		Put([]byte("b"), []byte("2")),
		Put([]byte("c"), []byte("3")),
		Put([]byte("d"), []byte("4")),
	}
	batch2 := []BatchOp{batch1[2], batch1[0], batch1[3], batch1[1]}

	tr1, _ := newTestTree(t)
	require.NoError(t, tr1.ApplyChecked(append([]BatchOp(nil), batch1...)))

	tr2, _ := newTestTree(t)
	require.NoError(t, tr2.ApplyChecked(append([]BatchOp(nil), batch2...)))

	require.Equal(t, tr1.RootDigest(), tr2.RootDigest())
}

func TestWalkPathVisitsSearchPath(t *testing.T) {
	tr, _ := newTestTree(t)
	var puts []BatchOp
	for i := uint32(0); i < 31; i++ {
		puts = append(puts, Put(u32key(i), []byte("xyz")))
	}
	require.NoError(t, tr.ApplyChecked(puts))

	var visited [][]byte
	err := tr.WalkPath(u32key(17), func(n *Node) error {
		visited = append(visited, append([]byte(nil), n.Key...))
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, visited)
	require.Equal(t, u32key(17), visited[len(visited)-1])
}

func TestWalkPathMissingKeyStopsAtLeaf(t *testing.T) {
	tr, _ := newTestTree(t)
	require.NoError(t, tr.ApplyChecked([]BatchOp{
		Put([]byte("b"), []byte("1")),
		Put([]byte("d"), []byte("2")),
	}))

	var sawMissing bool
	err := tr.WalkPath([]byte("c"), func(n *Node) error {
		if bytes.Equal(n.Key, []byte("c")) {
			sawMissing = true
		}
		return nil
	})
	require.NoError(t, err)
	require.False(t, sawMissing)
}

func TestGetManyFansOutReads(t *testing.T) {
	tr, _ := newTestTree(t)
	var puts []BatchOp
	var keys [][]byte
	for i := uint32(0); i < 20; i++ {
		puts = append(puts, Put(u32key(i), u32key(i)))
		keys = append(keys, u32key(i))
	}
	require.NoError(t, tr.ApplyChecked(puts))

	values, err := tr.GetMany(context.Background(), keys)
	require.NoError(t, err)
	for i, v := range values {
		require.Equal(t, keys[i], v)
	}
}

func TestRandomizedApplyMaintainsInvariants(t *testing.T) {
	tr, _ := newTestTree(t)
	seen := map[uint32]bool{}

	for round := 0; round < 20; round++ {
		var ops []BatchOp
		used := map[uint32]bool{}
		for i := 0; i < 15; i++ {
			k := uint32(round*37+i*7) % 211
			if used[k] {
				continue
			}
			used[k] = true
			if seen[k] && i%3 == 0 {
				ops = append(ops, Del(u32key(k)))
				delete(seen, k)
			} else {
				ops = append(ops, Put(u32key(k), u32key(k)))
				seen[k] = true
			}
		}
		require.NoError(t, tr.ApplyChecked(ops))
		checkInvariants(t, tr)
	}

	for k := range seen {
		v, err := tr.Get(u32key(k))
		require.NoError(t, err)
		require.Equal(t, u32key(k), v)
	}
}

// TestSkewedBatchGraftMaintainsBalance covers the case the randomized
// test above never reaches: a single key seeded first, then a batch of
// several sorted keys that all land on the same (empty) side of it.
// Grafting a whole pre-balanced run onto an empty slot can leave a
// height gap wider than one rotation fixes, so this asserts the AVL
// invariant holds anyway, with the imbalance skewed entirely to one
// side rather than spread across both.
func TestSkewedBatchGraftMaintainsBalance(t *testing.T) {
	tr, _ := newTestTree(t)

	require.NoError(t, tr.ApplyChecked([]BatchOp{Put([]byte("a"), []byte("a"))}))
	checkInvariants(t, tr)

	require.NoError(t, tr.ApplyChecked([]BatchOp{
		Put([]byte("b"), []byte("b")),
		Put([]byte("c"), []byte("c")),
		Put([]byte("d"), []byte("d")),
		Put([]byte("e"), []byte("e")),
		Put([]byte("f"), []byte("f")),
		Put([]byte("g"), []byte("g")),
	}))
	checkInvariants(t, tr)

	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		v, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, []byte(k), v)
	}
}

// TestMonotonicRunMaintainsBalance grows a tree purely by appending an
// increasing run of keys in one batch after another, the classic
// pattern that skews every graft to the same side.
func TestMonotonicRunMaintainsBalance(t *testing.T) {
	tr, _ := newTestTree(t)

	require.NoError(t, tr.ApplyChecked([]BatchOp{Put(u32key(0), u32key(0))}))
	checkInvariants(t, tr)

	for batch := uint32(1); batch <= 20; batch++ {
		var ops []BatchOp
		for i := uint32(0); i < 5; i++ {
			ops = append(ops, Put(u32key(batch*5+i), u32key(batch*5+i)))
		}
		require.NoError(t, tr.ApplyChecked(ops))
		checkInvariants(t, tr)
	}
}
