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

// fetchFn loads the node record filed under key. It fails with
// errKeyNotFound if the store has no record under that key.
type fetchFn func(key []byte) (*Node, error)

// childSlot is the tri-state a child pointer can be in: empty (no child),
// a stub carrying only the child's link, or materialized into an
// in-memory sparseNode.
type childSlot struct {
	link  *Link
	child *sparseNode
}

// isEmpty reports whether the slot has no child at all.
func (c childSlot) isEmpty() bool {
	return c.link == nil && c.child == nil
}

// digest returns the child's subtree digest without touching the store.
func (c childSlot) digest() Digest {
	if c.child != nil {
		return c.child.subtreeDigest()
	}
	if c.link != nil {
		return c.link.Digest
	}
	return NullDigest
}

// height returns the child's height without touching the store.
func (c childSlot) height() uint8 {
	if c.child != nil {
		return c.child.height()
	}
	if c.link != nil {
		return c.link.Height
	}
	return 0
}

// toLink reduces the slot to the stub a parent node record persists.
func (c childSlot) toLink() *Link {
	if c.child != nil {
		l := c.child.asLink()
		return &l
	}
	return c.link
}

// materialize resolves the slot to its sparseNode, fetching from the
// store via fetch only if the slot is still a stub. An empty slot
// materializes to (nil, nil): there is nothing to load.
func (c *childSlot) materialize(fetch fetchFn) (*sparseNode, error) {
	if c.child != nil {
		return c.child, nil
	}
	if c.link == nil {
		return nil, nil
	}
	rec, err := fetch(c.link.Key)
	if err != nil {
		return nil, err
	}
	sn := wrapRecord(rec)
	c.child = sn
	return sn, nil
}

// sparseNode is the in-memory counterpart of Node: the node's own scalar
// fields plus two child slots that may or may not be resolved yet.
type sparseNode struct {
	rec   *Node
	left  childSlot
	right childSlot
}

// wrapRecord lifts a freshly decoded Node record into a sparseNode whose
// children start out as stubs (or empty, if the record had none).
func wrapRecord(rec *Node) *sparseNode {
	sn := &sparseNode{rec: rec}
	if rec.Left != nil {
		sn.left = childSlot{link: rec.Left}
	}
	if rec.Right != nil {
		sn.right = childSlot{link: rec.Right}
	}
	return sn
}

func (s *sparseNode) subtreeDigest() Digest {
	return subtreeDigest(s.rec.LeafHash, s.left.digest(), s.right.digest())
}

func (s *sparseNode) height() uint8 {
	l, r := s.left.height(), s.right.height()
	if l > r {
		return l + 1
	}
	return r + 1
}

func (s *sparseNode) balanceFactor() int {
	return int(s.right.height()) - int(s.left.height())
}

func (s *sparseNode) asLink() Link {
	return Link{Key: append([]byte(nil), s.rec.Key...), Digest: s.subtreeDigest(), Height: s.height()}
}

// toNodeRecord produces the persisted form of s as it currently stands,
// reducing both children to links.
func (s *sparseNode) toNodeRecord() *Node {
	return &Node{
		Key:      s.rec.Key,
		Value:    s.rec.Value,
		LeafHash: s.rec.LeafHash,
		Left:     s.left.toLink(),
		Right:    s.right.toLink(),
	}
}
