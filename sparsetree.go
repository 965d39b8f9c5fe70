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

import "bytes"

// applyBatch applies a sorted, duplicate-free batch to root (nil for an
// empty tree), returning the new root. fetch resolves stubs on demand;
// mut records every node that must be flushed or deleted once the whole
// batch has settled. A non-nil error aborts mid-mutation: per this
// package's documented contract, the in-memory tree may be left
// partially mutated and should not be reused without first confirming
// the backing store is still in the state it was before the call.
func applyBatch(root *sparseNode, fetch fetchFn, batch []BatchOp, mut *mutationSet) (*sparseNode, error) {
	slot := childSlot{child: root}
	if err := applySubtree(&slot, fetch, batch, mut); err != nil {
		return nil, err
	}
	// Deleting a one-child root can leave only a stub in the slot; load it
	// so the caller always gets a resolved root (or nil for an empty tree).
	return slot.materialize(fetch)
}

// applySubtree applies batch (already known non-overlapping with
// anything outside this subtree) to *cur, rewriting it in place. An
// empty batch is a true no-op: a stub slot with nothing targeting it is
// never materialized.
func applySubtree(cur *childSlot, fetch fetchFn, batch []BatchOp, mut *mutationSet) error {
	if len(batch) == 0 {
		return nil
	}

	if cur.isEmpty() {
		newSlot, err := buildFromEmpty(batch, mut)
		if err != nil {
			return err
		}
		*cur = newSlot
		return nil
	}

	node, err := cur.materialize(fetch)
	if err != nil {
		return err
	}
	newSlot, err := applyToNode(node, fetch, batch, mut)
	if err != nil {
		return err
	}
	*cur = newSlot
	return nil
}

// buildFromEmpty handles a batch landing on a subtree that currently has
// no node at all. Deletes in the batch are no-ops; any puts are
// assembled into a fresh, already-balanced subtree.
func buildFromEmpty(batch []BatchOp, mut *mutationSet) (childSlot, error) {
	puts := batch[:0:0]
	for _, op := range batch {
		if op.Kind == OpPut {
			puts = append(puts, op)
		}
	}
	if len(puts) == 0 {
		return childSlot{}, nil
	}
	root, err := buildBalanced(puts, mut)
	if err != nil {
		return childSlot{}, err
	}
	return childSlot{child: root}, nil
}

// buildBalanced assembles a sorted, unique run of puts into a height-
// balanced subtree by recursive median split: the standard technique for
// turning a sorted array into a balanced binary search tree, which also
// happens to satisfy the AVL invariant at every node.
func buildBalanced(puts []BatchOp, mut *mutationSet) (*sparseNode, error) {
	if len(puts) == 0 {
		return nil, nil
	}
	mid := len(puts) / 2
	rec, err := newNode(puts[mid].Key, puts[mid].Value)
	if err != nil {
		return nil, err
	}
	sn := &sparseNode{rec: rec}

	left, err := buildBalanced(puts[:mid], mut)
	if err != nil {
		return nil, err
	}
	if left != nil {
		sn.left = childSlot{child: left}
	}

	right, err := buildBalanced(puts[mid+1:], mut)
	if err != nil {
		return nil, err
	}
	if right != nil {
		sn.right = childSlot{child: right}
	}

	mut.markDirty(sn)
	return sn, nil
}

// applyToNode applies a non-empty batch to an already-materialized node,
// recursing into whichever children have work, handling the op that
// lands on node itself (if any), and rebalancing before returning the
// slot node should now occupy.
func applyToNode(node *sparseNode, fetch fetchFn, batch []BatchOp, mut *mutationSet) (childSlot, error) {
	key := node.rec.Key
	lo, mid, hi := partitionBatch(batch, key)

	if err := applySubtree(&node.left, fetch, lo, mut); err != nil {
		return childSlot{}, err
	}
	if err := applySubtree(&node.right, fetch, hi, mut); err != nil {
		return childSlot{}, err
	}

	if mid != nil {
		switch mid.Kind {
		case OpPut:
			node.rec.Value = mid.Value
			if err := node.rec.updateLeafHash(); err != nil {
				return childSlot{}, err
			}
		case OpDelete:
			replacement, err := spliceOut(node, fetch, mut)
			if err != nil {
				return childSlot{}, err
			}
			return replacement, nil
		}
	}

	mut.markDirty(node)
	rebalanced, err := rebalance(node, fetch, mut)
	if err != nil {
		return childSlot{}, err
	}
	return childSlot{child: rebalanced}, nil
}

// partitionBatch splits a sorted batch around key, returning the entries
// strictly less than key, the single entry equal to key (if any), and
// the entries strictly greater.
func partitionBatch(batch []BatchOp, key []byte) (lo []BatchOp, mid *BatchOp, hi []BatchOp) {
	i := 0
	for i < len(batch) && bytes.Compare(batch[i].Key, key) < 0 {
		i++
	}
	lo = batch[:i]
	j := i
	if j < len(batch) && bytes.Equal(batch[j].Key, key) {
		mid = &batch[j]
		j++
	}
	hi = batch[j:]
	return lo, mid, hi
}

// spliceOut removes node from the tree, promoting the in-order successor
// when node has two children. The returned slot is what node's former
// position should now hold.
func spliceOut(node *sparseNode, fetch fetchFn, mut *mutationSet) (childSlot, error) {
	oldKey := append([]byte(nil), node.rec.Key...)

	switch {
	case node.left.isEmpty() && node.right.isEmpty():
		mut.markDestroyed(oldKey)
		return childSlot{}, nil

	case node.left.isEmpty():
		mut.markDestroyed(oldKey)
		return node.right, nil

	case node.right.isEmpty():
		mut.markDestroyed(oldKey)
		return node.left, nil

	default:
		succ, err := deleteMin(&node.right, fetch, mut)
		if err != nil {
			return childSlot{}, err
		}
		mut.markDestroyed(oldKey)

		node.rec.Key = succ.Key
		node.rec.Value = succ.Value
		node.rec.LeafHash = succ.LeafHash
		mut.markDirty(node)

		rebalanced, err := rebalance(node, fetch, mut)
		if err != nil {
			return childSlot{}, err
		}
		return childSlot{child: rebalanced}, nil
	}
}

// deleteMin removes and returns the leftmost node's record from the
// subtree at *slot, leaving the subtree correctly shaped (and rebalanced
// along the path back up) in its place. The removed node's own key is
// not marked destroyed here: callers that promote it elsewhere in the
// tree are expected to keep that key alive under a new position.
func deleteMin(slot *childSlot, fetch fetchFn, mut *mutationSet) (*Node, error) {
	node, err := slot.materialize(fetch)
	if err != nil {
		return nil, err
	}

	if node.left.isEmpty() {
		min := node.rec
		*slot = node.right
		return min, nil
	}

	min, err := deleteMin(&node.left, fetch, mut)
	if err != nil {
		return nil, err
	}
	mut.markDirty(node)
	rebalanced, err := rebalance(node, fetch, mut)
	if err != nil {
		return nil, err
	}
	*slot = childSlot{child: rebalanced}
	return min, nil
}

// rebalance restores the AVL invariant at node. A single insertion or
// deletion only ever unbalances a node by exactly one level, but
// buildBalanced can graft a whole pre-balanced run of puts (height up
// to ceil(log2(b+1))) onto an empty child slot in one shot, which can
// leave a height gap wider than one rotation corrects. So rebalance
// loops: each pass performs the classic single or double rotation for
// the current sign, then recursively rebalances the child that
// rotation demoted, since that child absorbed the middle of the old
// subtree and may itself still be out of balance. It keeps going until
// node's own balance factor settles within [-1, 1]. Ties (a balance
// factor of 0 on the rotated child) resolve as a single rotation,
// taking the parent's imbalance sign.
func rebalance(node *sparseNode, fetch fetchFn, mut *mutationSet) (*sparseNode, error) {
	for {
		switch bf := node.balanceFactor(); {
		case bf > 1:
			rchild, err := node.right.materialize(fetch)
			if err != nil {
				return nil, err
			}
			node.right = childSlot{child: rchild}
			if rchild.balanceFactor() < 0 {
				rotated, err := rotateRight(rchild, fetch, mut)
				if err != nil {
					return nil, err
				}
				node.right = childSlot{child: rotated}
			}
			newTop, err := rotateLeft(node, fetch, mut)
			if err != nil {
				return nil, err
			}
			if err := rebalanceDemoted(newTop, true, fetch, mut); err != nil {
				return nil, err
			}
			node = newTop

		case bf < -1:
			lchild, err := node.left.materialize(fetch)
			if err != nil {
				return nil, err
			}
			node.left = childSlot{child: lchild}
			if lchild.balanceFactor() > 0 {
				rotated, err := rotateLeft(lchild, fetch, mut)
				if err != nil {
					return nil, err
				}
				node.left = childSlot{child: rotated}
			}
			newTop, err := rotateRight(node, fetch, mut)
			if err != nil {
				return nil, err
			}
			if err := rebalanceDemoted(newTop, false, fetch, mut); err != nil {
				return nil, err
			}
			node = newTop

		default:
			return node, nil
		}
	}
}

// rebalanceDemoted rebalances the child a rotation just demoted under
// parent (its left child if left, otherwise its right), in place. A
// rotation only ever touches that one child's composition, so it is the
// only side that can still be out of balance afterward.
func rebalanceDemoted(parent *sparseNode, left bool, fetch fetchFn, mut *mutationSet) error {
	slot := &parent.right
	if left {
		slot = &parent.left
	}
	if slot.isEmpty() {
		return nil
	}
	child, err := slot.materialize(fetch)
	if err != nil {
		return err
	}
	rebalanced, err := rebalance(child, fetch, mut)
	if err != nil {
		return err
	}
	*slot = childSlot{child: rebalanced}
	return nil
}

// rotateLeft promotes node's right child above it.
func rotateLeft(node *sparseNode, fetch fetchFn, mut *mutationSet) (*sparseNode, error) {
	newRoot, err := node.right.materialize(fetch)
	if err != nil {
		return nil, err
	}
	node.right = newRoot.left
	newRoot.left = childSlot{child: node}
	mut.markDirty(node)
	mut.markDirty(newRoot)
	return newRoot, nil
}

// rotateRight promotes node's left child above it.
func rotateRight(node *sparseNode, fetch fetchFn, mut *mutationSet) (*sparseNode, error) {
	newRoot, err := node.left.materialize(fetch)
	if err != nil {
		return nil, err
	}
	node.left = newRoot.right
	newRoot.right = childSlot{child: node}
	mut.markDirty(node)
	mut.markDirty(newRoot)
	return newRoot, nil
}

// prune collapses every materialized descendant of root back to a link,
// leaving only root itself resolved. Called after a successful commit so
// a long-lived Tree doesn't accumulate the whole working set in memory.
func prune(root *sparseNode) {
	if root == nil {
		return
	}
	root.left = childSlot{link: root.left.toLink()}
	root.right = childSlot{link: root.right.toLink()}
}
