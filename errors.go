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

import "errors"

// Sentinel errors returned by this package. Wrapped errors (e.g. a failure
// surfaced from the backing store) should be matched with errors.Is against
// these, not compared directly.
var (
	errKeyNotFound         = errors.New("merkavl: key not found")
	errDuplicateKeyInBatch = errors.New("merkavl: duplicate key in batch")
	errKeyTooLong          = errors.New("merkavl: key exceeds 255 bytes")
	errValueTooLong        = errors.New("merkavl: value exceeds 65535 bytes")
	errDecode              = errors.New("merkavl: could not decode node record")
	errProofInvalid        = errors.New("merkavl: proof verification failed")
	errStore               = errors.New("merkavl: store error")
)

// IsKeyNotFound reports whether err is, or wraps, the error returned when
// Get, or an internal fetch of a linked node, cannot find the requested
// key in the store.
func IsKeyNotFound(err error) bool { return errors.Is(err, errKeyNotFound) }

// IsDuplicateKeyInBatch reports whether err is, or wraps, the error
// returned when ApplyChecked sees two batch entries with equal keys.
func IsDuplicateKeyInBatch(err error) bool { return errors.Is(err, errDuplicateKeyInBatch) }

// IsKeyTooLong reports whether err is, or wraps, the error returned when a
// key exceeds the 255 byte limit.
func IsKeyTooLong(err error) bool { return errors.Is(err, errKeyTooLong) }

// IsValueTooLong reports whether err is, or wraps, the error returned when
// a value exceeds the 65535 byte limit.
func IsValueTooLong(err error) bool { return errors.Is(err, errValueTooLong) }

// IsDecodeError reports whether err is, or wraps, a node decode failure.
func IsDecodeError(err error) bool { return errors.Is(err, errDecode) }

// IsProofInvalid reports whether err is, or wraps, a proof verification
// failure.
func IsProofInvalid(err error) bool { return errors.Is(err, errProofInvalid) }

// IsStoreError reports whether err is, or wraps, a failure surfaced from
// the backing store.
func IsStoreError(err error) bool { return errors.Is(err, errStore) }
