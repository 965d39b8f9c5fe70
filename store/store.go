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

// Package store defines the persistent key-indexed backing a tree is
// opened over, and ships three implementations of it: an in-memory map
// for tests, a durable Pebble-backed store, and a scratch Pebble store
// rooted in a throwaway directory.
package store

// BatchEntry is one write in a WriteBatch call: either a Put (Delete
// false) or a Delete (Delete true, Value ignored).
type BatchEntry struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Store is the persistence boundary a Tree is opened over. Implementations
// must give Get a read-your-writes view of prior Put/Delete/WriteBatch
// calls on the same handle.
type Store interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	// Get returns the value for key, (nil, false, nil) if absent, or a
	// non-nil error on an underlying I/O or decode failure.
	Get(key []byte) ([]byte, bool, error)
	WriteBatch(entries []BatchEntry) error
	// Iter returns keys in [start, end], inclusive on both ends, in
	// ascending order.
	Iter(start, end []byte) (Iterator, error)
	Close() error
}

// Iterator walks a key range in ascending order. Callers must call Close
// when done, even after Err returns non-nil.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}
