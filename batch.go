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
	"sort"
)

// OpKind distinguishes a batch entry's effect: write a value, or remove
// the key entirely.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// BatchOp is one entry of a batch passed to ApplyChecked or
// ApplyUnchecked: a key and the operation to perform on it.
type BatchOp struct {
	Key   []byte
	Kind  OpKind
	Value []byte
}

// Put returns a BatchOp that inserts or overwrites key with value.
func Put(key, value []byte) BatchOp {
	return BatchOp{Key: key, Kind: OpPut, Value: value}
}

// Del returns a BatchOp that removes key. Deleting a key that isn't
// present is a no-op, not an error.
func Del(key []byte) BatchOp {
	return BatchOp{Key: key, Kind: OpDelete}
}

// sortBatch sorts ops by key ascending and reports whether any two
// entries shared a key.
func sortBatch(ops []BatchOp) (duplicate bool) {
	sort.Slice(ops, func(i, j int) bool {
		return bytes.Compare(ops[i].Key, ops[j].Key) < 0
	})
	for i := 1; i < len(ops); i++ {
		if bytes.Equal(ops[i-1].Key, ops[i].Key) {
			duplicate = true
		}
	}
	return duplicate
}
