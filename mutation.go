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

// mutationSet accumulates, over the course of one apply call, every node
// that needs to be (re-)written or removed from the backing store once
// the batch finishes. Keys are tracked by their string form so they can
// serve as map keys; the dirty map also carries the live sparseNode
// pointer so commit can read back its final state without re-walking the
// tree.
type mutationSet struct {
	dirty     map[string]*sparseNode
	destroyed map[string]struct{}
}

func newMutationSet() *mutationSet {
	return &mutationSet{
		dirty:     make(map[string]*sparseNode),
		destroyed: make(map[string]struct{}),
	}
}

// markDirty records that n's persisted record must be (re-)written,
// keyed by n's current key. Safe to call more than once for the same
// node; later calls simply refresh the pointer.
func (m *mutationSet) markDirty(n *sparseNode) {
	m.dirty[string(n.rec.Key)] = n
}

// markDestroyed records that the record filed under key no longer
// corresponds to any node in the tree and must be deleted from the
// store.
func (m *mutationSet) markDestroyed(key []byte) {
	m.destroyed[string(key)] = struct{}{}
}
