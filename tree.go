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
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hypermerkle/merkavl/store"
)

// rootPointerKey is the reserved store key holding the current root
// node's own key. Applications must not use this key for their own
// data.
var rootPointerKey = []byte{0x00, 'r', 'o', 'o', 't'}

// Tree is a handle onto an authenticated AVL tree persisted in a Store.
// It is not safe for concurrent use from multiple goroutines.
type Tree struct {
	db    store.Store
	root  *sparseNode
	cache *nodeCache
}

// Open loads the tree rooted at whatever rootPointerKey currently names
// in db, or returns an empty tree if db has no root pointer yet.
func Open(db store.Store) (*Tree, error) {
	t := &Tree{db: db, cache: newNodeCache(defaultCacheSize)}

	rootKey, ok, err := db.Get(rootPointerKey)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if !ok {
		return t, nil
	}

	rec, err := t.fetchNode(rootKey)
	if err != nil {
		return nil, err
	}
	t.root = wrapRecord(rec)
	return t, nil
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errStore, err)
}

// fetchNode loads and decodes the record filed under key, serving from
// the node cache when possible.
func (t *Tree) fetchNode(key []byte) (*Node, error) {
	if rec, ok := t.cache.get(string(key)); ok {
		return rec, nil
	}

	raw, ok, err := t.db.Get(key)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if !ok {
		return nil, errKeyNotFound
	}

	rec, err := DecodeNode(key, raw)
	if err != nil {
		return nil, err
	}
	t.cache.add(string(key), rec)
	return rec, nil
}

// RootDigest returns the digest of the tree's root, or NullDigest for an
// empty tree.
func (t *Tree) RootDigest() Digest {
	if t.root == nil {
		return NullDigest
	}
	return t.root.subtreeDigest()
}

// Get returns the value stored under key, or a key-not-found error
// (match with IsKeyNotFound) if absent.
func (t *Tree) Get(key []byte) ([]byte, error) {
	rec, err := t.fetchNode(key)
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

// GetMany resolves several keys concurrently, the way a caller fanning
// out reads across a batch of independent lookups would. Results are
// returned in the same order as keys; a failure on any one key is
// reported through the returned error without the others being
// cancelled.
func (t *Tree) GetMany(ctx context.Context, keys [][]byte) ([][]byte, error) {
	values := make([][]byte, len(keys))
	g, _ := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			v, err := t.Get(key)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

// ApplyChecked sorts ops by key, rejects the batch outright if any key
// repeats, and otherwise applies it as a single atomic mutation.
func (t *Tree) ApplyChecked(ops []BatchOp) error {
	if sortBatch(ops) {
		return errDuplicateKeyInBatch
	}
	return t.ApplyUnchecked(ops)
}

// ApplyUnchecked applies a batch the caller has already sorted by key
// and verified is duplicate-free. Using it on a batch that isn't sorted
// and unique is undefined: the tree's shape invariants assume it.
func (t *Tree) ApplyUnchecked(ops []BatchOp) error {
	for _, op := range ops {
		if len(op.Key) > MaxKeyLen {
			return errKeyTooLong
		}
		if op.Kind == OpPut && len(op.Value) > MaxValueLen {
			return errValueTooLong
		}
	}

	mut := newMutationSet()
	newRoot, err := applyBatch(t.root, t.fetchNode, ops, mut)
	if err != nil {
		return err
	}
	t.root = newRoot
	return t.commit(mut)
}

// commit flushes every dirty and destroyed record from mut, updates or
// clears the root pointer, and prunes the in-memory tree back down to
// just its root.
func (t *Tree) commit(mut *mutationSet) error {
	entries := make([]store.BatchEntry, 0, len(mut.dirty)+len(mut.destroyed))

	for k, sn := range mut.dirty {
		if _, destroyed := mut.destroyed[k]; destroyed {
			continue
		}
		data, err := sn.toNodeRecord().Encode()
		if err != nil {
			return err
		}
		entries = append(entries, store.BatchEntry{Key: []byte(k), Value: data})
	}
	for k := range mut.destroyed {
		entries = append(entries, store.BatchEntry{Key: []byte(k), Delete: true})
	}

	if len(entries) > 0 {
		if err := t.db.WriteBatch(entries); err != nil {
			return wrapStoreErr(err)
		}
	}

	if t.root != nil {
		if err := t.db.Put(rootPointerKey, append([]byte(nil), t.root.rec.Key...)); err != nil {
			return wrapStoreErr(err)
		}
	} else {
		if err := t.db.Delete(rootPointerKey); err != nil {
			return wrapStoreErr(err)
		}
	}

	prune(t.root)
	t.cache.invalidate(mut)
	return nil
}

// RangeScan visits every key in [start, end], inclusive, in ascending
// order, reading directly from the store rather than the in-memory
// tree. fn's error, if any, stops the scan and is returned as-is.
func (t *Tree) RangeScan(start, end []byte, fn func(key, value []byte) error) error {
	it, err := t.db.Iter(start, end)
	if err != nil {
		return wrapStoreErr(err)
	}
	defer it.Close()

	for it.Next() {
		key := it.Key()
		if bytes.Equal(key, rootPointerKey) {
			continue
		}
		rec, err := DecodeNode(key, it.Value())
		if err != nil {
			return err
		}
		if err := fn(rec.Key, rec.Value); err != nil {
			return err
		}
	}
	return it.Err()
}

// WalkPath walks from the root toward key, materializing nodes on
// demand, calling fn on every node visited along the way (including the
// node for key itself, if present). It stops without error if key isn't
// found; the caller can tell by checking whether fn was ever invoked
// with that exact key.
func (t *Tree) WalkPath(key []byte, fn func(n *Node) error) error {
	if t.root == nil {
		return nil
	}
	cur := t.root
	for {
		if err := fn(cur.rec); err != nil {
			return err
		}
		cmp := bytes.Compare(key, cur.rec.Key)
		if cmp == 0 {
			return nil
		}
		var slot *childSlot
		if cmp < 0 {
			slot = &cur.left
		} else {
			slot = &cur.right
		}
		if slot.isEmpty() {
			return nil
		}
		next, err := slot.materialize(t.fetchNode)
		if err != nil {
			return err
		}
		cur = next
	}
}

// Proof generates a range proof for [start, end] against the tree's
// current root.
func (t *Tree) Proof(start, end []byte) ([]ProofOp, error) {
	return Generate(t.root, t.fetchNode, start, end)
}

// Close releases the underlying store.
func (t *Tree) Close() error {
	return t.db.Close()
}
