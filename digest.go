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
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the width, in bytes, of every digest produced by this
// package: Blake2b truncated to 160 bits.
const DigestSize = 20

// MaxKeyLen and MaxValueLen bound the byte strings this package will
// hash or persist. The length prefixes baked into the leaf digest
// preimage (one byte for the key, two for the value) make these limits
// structural, not configurable.
const (
	MaxKeyLen   = 1<<8 - 1
	MaxValueLen = 1<<16 - 1
)

// Digest is a 20-byte Blake2b-160 hash. The zero Digest is the null
// digest, standing in for "no child".
type Digest [DigestSize]byte

// NullDigest is the sentinel digest contributed by a missing child.
var NullDigest Digest

// IsNull reports whether d is the all-zero sentinel digest.
func (d Digest) IsNull() bool {
	return d == NullDigest
}

func (d Digest) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2*DigestSize)
	for i, b := range d {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// leafDigest computes Blake2b-160( u8(len(key)) || key || u16_be(len(value)) || value ),
// the preimage fixed by this store's wire format. The length prefixes are
// part of the hashed bytes and must never change independently of the
// format version.
func leafDigest(key, value []byte) (Digest, error) {
	if len(key) > MaxKeyLen {
		return Digest{}, errKeyTooLong
	}
	if len(value) > MaxValueLen {
		return Digest{}, errValueTooLong
	}

	h, err := blake2b.New(DigestSize, nil)
	if err != nil {
		// Only returned for invalid key material or an out-of-range
		// size, neither of which applies to a fixed, valid DigestSize.
		panic(err)
	}

	h.Write([]byte{byte(len(key))})
	h.Write(key)

	var vlen [2]byte
	binary.BigEndian.PutUint16(vlen[:], uint16(len(value)))
	h.Write(vlen[:])
	h.Write(value)

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// subtreeDigest computes Blake2b-160( leaf || left || right ), where a
// missing child contributes NullDigest.
func subtreeDigest(leaf, left, right Digest) Digest {
	h, err := blake2b.New(DigestSize, nil)
	if err != nil {
		panic(err)
	}
	h.Write(leaf[:])
	h.Write(left[:])
	h.Write(right[:])

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
