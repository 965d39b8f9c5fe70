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
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// Pebble is a durable Store backed by a cockroachdb/pebble LSM database.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (creating if necessary) a Pebble database at dir.
func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble store at %q", dir)
	}
	return &Pebble{db: db}, nil
}

func (s *Pebble) Put(key, value []byte) error {
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return errors.Wrap(err, "pebble put")
	}
	return nil
}

func (s *Pebble) Delete(key []byte) error {
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return errors.Wrap(err, "pebble delete")
	}
	return nil
}

func (s *Pebble) Get(key []byte) ([]byte, bool, error) {
	v, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble get")
	}
	out := append([]byte(nil), v...)
	if cerr := closer.Close(); cerr != nil {
		return nil, false, errors.Wrap(cerr, "pebble get: close value handle")
	}
	return out, true, nil
}

func (s *Pebble) WriteBatch(entries []BatchEntry) error {
	b := s.db.NewBatch()
	defer b.Close()
	for _, e := range entries {
		var err error
		if e.Delete {
			err = b.Delete(e.Key, nil)
		} else {
			err = b.Set(e.Key, e.Value, nil)
		}
		if err != nil {
			return errors.Wrap(err, "pebble batch stage")
		}
	}
	if err := s.db.Apply(b, pebble.Sync); err != nil {
		return errors.Wrap(err, "pebble batch apply")
	}
	return nil
}

// inclusiveUpperBound returns the smallest byte string that sorts
// strictly after end, so pebble's exclusive-upper-bound iterator range
// can express an inclusive end.
func inclusiveUpperBound(end []byte) []byte {
	return append(append([]byte(nil), end...), 0x00)
}

func (s *Pebble) Iter(start, end []byte) (Iterator, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: inclusiveUpperBound(end),
	})
	if err != nil {
		return nil, errors.Wrap(err, "pebble new iterator")
	}
	return &pebbleIter{it: it, started: false}, nil
}

func (s *Pebble) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "pebble close")
	}
	return nil
}

type pebbleIter struct {
	it      *pebble.Iterator
	started bool
}

func (p *pebbleIter) Next() bool {
	if !p.started {
		p.started = true
		return p.it.First()
	}
	return p.it.Next()
}

func (p *pebbleIter) Key() []byte   { return append([]byte(nil), p.it.Key()...) }
func (p *pebbleIter) Value() []byte { return append([]byte(nil), p.it.Value()...) }
func (p *pebbleIter) Err() error    { return p.it.Error() }
func (p *pebbleIter) Close() error  { return p.it.Close() }
