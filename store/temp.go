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

package store

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Temporary is a Pebble store rooted in a uniquely named scratch
// directory under a parent dir, removed entirely on Close. It is meant
// for tests and throwaway trees that need a real on-disk store (e.g. to
// exercise the same code path as Pebble) without leaving files behind.
type Temporary struct {
	*Pebble
	dir string
}

// OpenTemporary creates a scratch directory under parent (the system
// temp dir if parent is empty) and opens a Pebble store inside it.
func OpenTemporary(parent string) (*Temporary, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "merkavl-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "create scratch dir %q", dir)
	}
	p, err := OpenPebble(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &Temporary{Pebble: p, dir: dir}, nil
}

// Close closes the underlying database and removes the scratch
// directory, regardless of whether the database closed cleanly.
func (t *Temporary) Close() error {
	closeErr := t.Pebble.Close()
	if err := os.RemoveAll(t.dir); err != nil {
		if closeErr != nil {
			return errors.Wrapf(closeErr, "also failed to remove scratch dir %q: %v", t.dir, err)
		}
		return errors.Wrapf(err, "remove scratch dir %q", t.dir)
	}
	return closeErr
}
