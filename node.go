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
	"encoding/binary"
	"fmt"
)

// Link is a stub standing in for a child that may not be materialized:
// the child's store key, its subtree digest, and its height. It carries
// everything a verifier or a lazy loader needs without the child's bytes.
type Link struct {
	Key    []byte
	Digest Digest
	Height uint8
}

// Node is the persisted form of a tree node: a key/value pair plus up to
// two child links. The key itself is never encoded — it is the store key
// the record is filed under, and DecodeNode injects it back in.
type Node struct {
	Key      []byte
	Value    []byte
	LeafHash Digest
	Left     *Link
	Right    *Link
}

// newNode builds a fresh leaf node (no children) and computes its leaf
// digest.
func newNode(key, value []byte) (*Node, error) {
	n := &Node{Key: key, Value: value}
	if err := n.updateLeafHash(); err != nil {
		return nil, err
	}
	return n, nil
}

// updateLeafHash recomputes LeafHash from the node's current key and
// value. Called whenever the value changes.
func (n *Node) updateLeafHash() error {
	h, err := leafDigest(n.Key, n.Value)
	if err != nil {
		return err
	}
	n.LeafHash = h
	return nil
}

func (n *Node) childDigest(left bool) Digest {
	link := n.Left
	if !left {
		link = n.Right
	}
	if link == nil {
		return NullDigest
	}
	return link.Digest
}

func (n *Node) childHeight(left bool) uint8 {
	link := n.Left
	if !left {
		link = n.Right
	}
	if link == nil {
		return 0
	}
	return link.Height
}

// Height returns 1 + max(height(left), height(right)), with a missing
// child contributing 0.
func (n *Node) Height() uint8 {
	l, r := n.childHeight(true), n.childHeight(false)
	if l > r {
		return l + 1
	}
	return r + 1
}

// BalanceFactor returns height(right) - height(left).
func (n *Node) BalanceFactor() int {
	return int(n.childHeight(false)) - int(n.childHeight(true))
}

// SubtreeDigest recomputes the node's subtree digest from its leaf
// digest and its two (possibly link-only) children.
func (n *Node) SubtreeDigest() Digest {
	return subtreeDigest(n.LeafHash, n.childDigest(true), n.childDigest(false))
}

// AsLink reduces the node to the stub that a parent keeps for it.
func (n *Node) AsLink() Link {
	return Link{Key: append([]byte(nil), n.Key...), Digest: n.SubtreeDigest(), Height: n.Height()}
}

// Encode serializes the value, leaf digest, and both optional links to a
// fixed, length-prefixed, self-delimiting binary layout. The key is
// omitted; it is recovered from the store lookup key by DecodeNode.
//
// Layout:
//
//	u16_be(len(value)) || value || leafHash[20]
//	  || hasLeft(u8) || [ u8(len(key)) || key || digest[20] || height(u8) ]
//	  || hasRight(u8) || [ u8(len(key)) || key || digest[20] || height(u8) ]
func (n *Node) Encode() ([]byte, error) {
	if len(n.Value) > MaxValueLen {
		return nil, errValueTooLong
	}

	var buf bytes.Buffer
	var vlen [2]byte
	binary.BigEndian.PutUint16(vlen[:], uint16(len(n.Value)))
	buf.Write(vlen[:])
	buf.Write(n.Value)
	buf.Write(n.LeafHash[:])

	if err := encodeLink(&buf, n.Left); err != nil {
		return nil, err
	}
	if err := encodeLink(&buf, n.Right); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeLink(buf *bytes.Buffer, link *Link) error {
	if link == nil {
		buf.WriteByte(0)
		return nil
	}
	if len(link.Key) > MaxKeyLen {
		return errKeyTooLong
	}
	buf.WriteByte(1)
	buf.WriteByte(byte(len(link.Key)))
	buf.Write(link.Key)
	buf.Write(link.Digest[:])
	buf.WriteByte(link.Height)
	return nil
}

// DecodeNode reverses Encode, injecting the supplied key.
func DecodeNode(key, data []byte) (*Node, error) {
	r := bytes.NewReader(data)

	var vlen [2]byte
	if _, err := readFull(r, vlen[:]); err != nil {
		return nil, fmt.Errorf("%w: value length: %v", errDecode, err)
	}
	value := make([]byte, binary.BigEndian.Uint16(vlen[:]))
	if _, err := readFull(r, value); err != nil {
		return nil, fmt.Errorf("%w: value: %v", errDecode, err)
	}

	var leafHash Digest
	if _, err := readFull(r, leafHash[:]); err != nil {
		return nil, fmt.Errorf("%w: leaf digest: %v", errDecode, err)
	}

	left, err := decodeLink(r)
	if err != nil {
		return nil, err
	}
	right, err := decodeLink(r)
	if err != nil {
		return nil, err
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errDecode, r.Len())
	}

	return &Node{
		Key:      append([]byte(nil), key...),
		Value:    value,
		LeafHash: leafHash,
		Left:     left,
		Right:    right,
	}, nil
}

func decodeLink(r *bytes.Reader) (*Link, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: link presence flag: %v", errDecode, err)
	}
	if present == 0 {
		return nil, nil
	}

	klen, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: link key length: %v", errDecode, err)
	}
	key := make([]byte, klen)
	if _, err := readFull(r, key); err != nil {
		return nil, fmt.Errorf("%w: link key: %v", errDecode, err)
	}

	var digest Digest
	if _, err := readFull(r, digest[:]); err != nil {
		return nil, fmt.Errorf("%w: link digest: %v", errDecode, err)
	}

	height, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: link height: %v", errDecode, err)
	}

	return &Link{Key: key, Digest: digest, Height: height}, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, fmt.Errorf("short read: got %d want %d", n, len(buf))
	}
	return n, nil
}
