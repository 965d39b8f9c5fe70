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

// merkdump is a small inspector for a merkavl store: it opens a Pebble
// database, prints the root digest, and either dumps every node in a key
// range or walks the search path to a single key.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/hypermerkle/merkavl"
	"github.com/hypermerkle/merkavl/store"
)

func main() {
	var (
		dir       = flag.String("db", "", "path to the pebble database (required)")
		walkKey   = flag.String("walk", "", "print the search path to this key instead of a full dump")
		rangeFrom = flag.String("from", "", "inclusive start of the range to dump")
		rangeTo   = flag.String("to", "", "inclusive end of the range to dump")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: merkdump -db <path> [-walk key | -from start -to end]")
		os.Exit(2)
	}

	db, err := store.OpenPebble(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	tree, err := merkavl.Open(db)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open tree:", err)
		os.Exit(1)
	}
	defer tree.Close()

	fmt.Println("root digest:", tree.RootDigest())

	if *walkKey != "" {
		dumpWalk(tree, []byte(*walkKey))
		return
	}

	from, to := []byte(*rangeFrom), []byte(*rangeTo)
	if len(to) == 0 {
		// Sorts after every key the tree can hold (keys cap at 255 bytes).
		to = bytes.Repeat([]byte{0xff}, 256)
	}
	dumpRange(tree, from, to)
}

func dumpWalk(tree *merkavl.Tree, key []byte) {
	found := false
	err := tree.WalkPath(key, func(n *merkavl.Node) error {
		if string(n.Key) == string(key) {
			found = true
		}
		spew.Dump(n)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "walk:", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("(key not present in tree)")
	}
}

func dumpRange(tree *merkavl.Tree, from, to []byte) {
	n := 0
	err := tree.RangeScan(from, to, func(key, value []byte) error {
		n++
		fmt.Printf("%s => %s\n", key, value)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan:", err)
		os.Exit(1)
	}
	fmt.Println("total:", n)
}
