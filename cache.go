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

import lru "github.com/hashicorp/golang-lru/v2"

// defaultCacheSize bounds how many decoded node records a Tree keeps
// around between prune passes, so a long-lived handle over a large store
// doesn't re-decode hot ancestors on every fetch.
const defaultCacheSize = 4096

// nodeCache is a small bounded cache in front of fetchFn, keyed by the
// string form of a node's store key.
type nodeCache struct {
	inner *lru.Cache[string, *Node]
}

func newNodeCache(size int) *nodeCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, *Node](size)
	if err != nil {
		// Only returned for a non-positive size, which is guarded above.
		panic(err)
	}
	return &nodeCache{inner: c}
}

func (c *nodeCache) get(key string) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	return c.inner.Get(key)
}

func (c *nodeCache) add(key string, n *Node) {
	if c == nil {
		return
	}
	c.inner.Add(key, n)
}

func (c *nodeCache) remove(key string) {
	if c == nil {
		return
	}
	c.inner.Remove(key)
}

// invalidate drops every entry touched by a just-committed mutation set,
// so a subsequent fetch for one of those keys never returns stale bytes.
func (c *nodeCache) invalidate(mut *mutationSet) {
	if c == nil {
		return
	}
	for k := range mut.dirty {
		c.remove(k)
	}
	for k := range mut.destroyed {
		c.remove(k)
	}
}
