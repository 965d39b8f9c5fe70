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
	"fmt"
)

// OpTag identifies the kind of a single ProofOp.
type OpTag int

const (
	// PushLeaf pushes a synthetic node built from a revealed key/value
	// pair: leaf digest H_leaf(key, value), null child digests, height 1.
	PushLeaf OpTag = iota
	// PushHash pushes an opaque stand-in for a whole collapsed subtree:
	// its digest and height, with no way to see inside it.
	PushHash
	// ParentLeft pops the top entry (a just-pushed node) and the entry
	// beneath it (its fully assembled left subtree), attaches the latter
	// as the former's left child, and pushes the combined node back.
	ParentLeft
	// ParentRight pops the top entry (a fully assembled right subtree)
	// and the entry beneath it (its parent), attaches the former as the
	// latter's right child, and pushes the combined node back.
	ParentRight
)

// ProofOp is one instruction in a range-proof operation stream.
type ProofOp struct {
	Tag    OpTag
	Key    []byte
	Value  []byte
	Digest Digest
	Height uint8
}

// KV is a revealed key/value pair surfaced by proof verification.
type KV struct {
	Key   []byte
	Value []byte
}

// Generate produces the operation stream proving the contents of
// [start, end] against root (nil for an empty tree). Every node whose
// key lies in the range, or that lies on the search path toward one of
// the range's boundaries, is revealed as a full PushLeaf; any subtree an
// ancestor bound already proves is wholly outside the range collapses to
// a single PushHash without being fetched at all.
func Generate(root *sparseNode, fetch fetchFn, start, end []byte) ([]ProofOp, error) {
	if root == nil {
		return []ProofOp{{Tag: PushHash, Digest: NullDigest, Height: 0}}, nil
	}
	var ops []ProofOp
	if err := emitProof(childSlot{child: root}, nil, nil, start, end, &ops, fetch); err != nil {
		return nil, err
	}
	return ops, nil
}

// emitProof appends the proof for the subtree at slot, whose keys are
// known (from ancestor comparisons) to lie strictly between lo and hi
// (either bound nil for unbounded), to *ops.
//
// The emission is an in-order traversal: a node's left subtree is fully
// emitted before the node itself, so revealed leaves stream out in
// strictly ascending key order and a verifier can check contiguity as it
// goes. The node is pushed after its left subtree and joined to it with
// ParentLeft; its right subtree follows and is joined with ParentRight.
func emitProof(slot childSlot, lo, hi, start, end []byte, ops *[]ProofOp, fetch fetchFn) error {
	if slot.isEmpty() {
		return nil
	}

	if subtreeFullyOutside(lo, hi, start, end) {
		*ops = append(*ops, ProofOp{Tag: PushHash, Digest: slot.digest(), Height: slot.height()})
		return nil
	}

	node, err := slot.materialize(fetch)
	if err != nil {
		return err
	}

	if !node.left.isEmpty() {
		if err := emitProof(node.left, lo, node.rec.Key, start, end, ops, fetch); err != nil {
			return err
		}
	}
	*ops = append(*ops, ProofOp{Tag: PushLeaf, Key: node.rec.Key, Value: node.rec.Value})
	if !node.left.isEmpty() {
		*ops = append(*ops, ProofOp{Tag: ParentLeft})
	}
	if !node.right.isEmpty() {
		if err := emitProof(node.right, node.rec.Key, hi, start, end, ops, fetch); err != nil {
			return err
		}
		*ops = append(*ops, ProofOp{Tag: ParentRight})
	}
	return nil
}

// subtreeFullyOutside reports whether the ancestor-derived bound
// (lo, hi), both exclusive, already proves every key in the subtree
// falls outside [start, end].
func subtreeFullyOutside(lo, hi, start, end []byte) bool {
	if hi != nil && bytes.Compare(hi, start) <= 0 {
		return true
	}
	if lo != nil && bytes.Compare(lo, end) >= 0 {
		return true
	}
	return false
}

// verifyEntry is a value on the verifier's stack: either an opaque hash
// (from PushHash) or an assembled node whose leaf digest and per-side
// child digest/height are tracked separately so a later ParentLeft or
// ParentRight can recompute its combined digest.
type verifyEntry struct {
	isHash bool

	hashDigest Digest
	hashHeight uint8

	leaf                    Digest
	leftDigest, rightDigest Digest
	leftHeight, rightHeight uint8
}

func (e verifyEntry) digest() Digest {
	if e.isHash {
		return e.hashDigest
	}
	return subtreeDigest(e.leaf, e.leftDigest, e.rightDigest)
}

func (e verifyEntry) height() uint8 {
	if e.isHash {
		return e.hashHeight
	}
	h := e.leftHeight
	if e.rightHeight > h {
		h = e.rightHeight
	}
	return h + 1
}

// Verify replays ops against a stack machine and checks the final
// result's digest against rootDigest (the trusted root the caller
// already holds). On success it returns every revealed leaf, in
// traversal order; the caller filters this to the keys actually inside
// its requested range with FilterRange.
func Verify(rootDigest Digest, ops []ProofOp) ([]KV, error) {
	var stack []verifyEntry
	var leaves []KV
	var lastKey []byte
	haveLast := false

	for _, op := range ops {
		switch op.Tag {
		case PushLeaf:
			d, err := leafDigest(op.Key, op.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: leaf digest: %v", errProofInvalid, err)
			}
			if haveLast && bytes.Compare(op.Key, lastKey) <= 0 {
				return nil, fmt.Errorf("%w: leaves out of ascending order", errProofInvalid)
			}
			lastKey, haveLast = op.Key, true

			stack = append(stack, verifyEntry{leaf: d, leftDigest: NullDigest, rightDigest: NullDigest})
			leaves = append(leaves, KV{Key: op.Key, Value: op.Value})

		case PushHash:
			stack = append(stack, verifyEntry{isHash: true, hashDigest: op.Digest, hashHeight: op.Height})

		case ParentLeft, ParentRight:
			if len(stack) < 2 {
				return nil, fmt.Errorf("%w: parent op with insufficient stack", errProofInvalid)
			}
			top := stack[len(stack)-1]
			second := stack[len(stack)-2]
			stack = stack[:len(stack)-2]

			// ParentLeft joins a node (top) to its left subtree (second);
			// ParentRight joins a right subtree (top) to its parent
			// (second). Either way the parent side must be an assembled
			// node, never an opaque hash.
			var parent, child verifyEntry
			if op.Tag == ParentLeft {
				parent, child = top, second
			} else {
				parent, child = second, top
			}
			if parent.isHash {
				return nil, fmt.Errorf("%w: parent op targets an opaque hash entry", errProofInvalid)
			}
			if op.Tag == ParentLeft {
				parent.leftDigest = child.digest()
				parent.leftHeight = child.height()
			} else {
				parent.rightDigest = child.digest()
				parent.rightHeight = child.height()
			}
			stack = append(stack, parent)

		default:
			return nil, fmt.Errorf("%w: unknown op tag %d", errProofInvalid, op.Tag)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("%w: %d entries left on stack, want 1", errProofInvalid, len(stack))
	}
	if got := stack[0].digest(); got != rootDigest {
		return nil, fmt.Errorf("%w: root digest mismatch", errProofInvalid)
	}
	return leaves, nil
}

// FilterRange narrows leaves (as returned by Verify, in traversal order)
// down to the ones whose key lies in [start, end].
func FilterRange(leaves []KV, start, end []byte) []KV {
	out := make([]KV, 0, len(leaves))
	for _, kv := range leaves {
		if bytes.Compare(kv.Key, start) >= 0 && bytes.Compare(kv.Key, end) <= 0 {
			out = append(out, kv)
		}
	}
	return out
}
