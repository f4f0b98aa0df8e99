// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package safemem

import (
	"bytes"
	"slices"
	"testing"
)

// seqOf returns a BlockSeq over the given pieces, one Block each.
func seqOf(pieces ...string) BlockSeq {
	blocks := make([]Block, 0, len(pieces))
	for _, p := range pieces {
		blocks = append(blocks, BlockFromSafeSlice([]byte(p)))
	}
	return BlockSeqFromSlice(blocks)
}

// flatten copies bs into a single byte slice.
func flatten(t *testing.T, bs BlockSeq) string {
	t.Helper()
	dst := make([]byte, bs.NumBytes())
	n, err := CopySeq(BlockSeqOf(BlockFromSafeSlice(dst)), bs)
	if err != nil || n != uint64(len(dst)) {
		t.Fatalf("CopySeq(%v): got (%d, %v), wanted (%d, nil)", bs, n, err, len(dst))
	}
	return string(dst)
}

func TestBlockSeqSlicing(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		pieces     []string
		drop, take uint64
		want       string
		wantBlocks int
	}{
		{
			desc:       "empty sequence",
			take:       10,
			wantBlocks: 0,
		},
		{
			desc:       "single block",
			pieces:     []string{"foobar"},
			take:       6,
			want:       "foobar",
			wantBlocks: 1,
		},
		{
			desc:       "empty blocks are skipped",
			pieces:     []string{"", "foo", "", "", "bar", ""},
			take:       6,
			want:       "foobar",
			wantBlocks: 2,
		},
		{
			desc:       "drop into the first block",
			pieces:     []string{"foo", "bar"},
			drop:       2,
			take:       4,
			want:       "obar",
			wantBlocks: 2,
		},
		{
			desc:       "drop a whole block",
			pieces:     []string{"foo", "bar"},
			drop:       3,
			take:       3,
			want:       "bar",
			wantBlocks: 1,
		},
		{
			desc:       "take ends inside the second block",
			pieces:     []string{"foo", "bar"},
			take:       5,
			want:       "fooba",
			wantBlocks: 2,
		},
		{
			desc:       "drop and take inside one block",
			pieces:     []string{"foo", "barbaz", "qux"},
			drop:       4,
			take:       3,
			want:       "arb",
			wantBlocks: 1,
		},
		{
			desc:       "drop beyond the end",
			pieces:     []string{"123", "4"},
			drop:       9,
			take:       1,
			wantBlocks: 0,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			bs := seqOf(tc.pieces...).DropFirst64(tc.drop).TakeFirst64(tc.take)
			if got := bs.NumBytes(); got != uint64(len(tc.want)) {
				t.Errorf("NumBytes: got %d, wanted %d", got, len(tc.want))
			}
			if got := bs.NumBlocks(); got != tc.wantBlocks {
				t.Errorf("NumBlocks: got %d, wanted %d", got, tc.wantBlocks)
			}
			if got := flatten(t, bs); got != tc.want {
				t.Errorf("contents: got %q, wanted %q", got, tc.want)
			}
		})
	}
}

func TestBlockSeqHeadTail(t *testing.T) {
	bs := seqOf("ab", "", "cde", "f")
	var got []string
	for !bs.IsEmpty() {
		head := bs.Head()
		got = append(got, string(head.ToSlice()))
		tail := bs.Tail()
		if tail.NumBytes() != bs.NumBytes()-uint64(head.Len()) {
			t.Fatalf("%v.Tail(): got %d bytes, wanted %d", bs, tail.NumBytes(), bs.NumBytes()-uint64(head.Len()))
		}
		bs = tail
	}
	if want := []string{"ab", "cde", "f"}; !slices.Equal(got, want) {
		t.Errorf("blocks: got %q, wanted %q", got, want)
	}
}

func TestBlocksMatchesSeq(t *testing.T) {
	bs := seqOf("page0", "page1").DropFirst(3)
	blocks := bs.Blocks()
	if len(blocks) != 2 || string(blocks[0].ToSlice()) != "e0" || string(blocks[1].ToSlice()) != "page1" {
		t.Errorf("Blocks(): got %v", blocks)
	}
	if got := BlockSeqOf(Block{}).Blocks(); len(got) != 0 {
		t.Errorf("Blocks() of an empty sequence: got %v", got)
	}
}

func TestCopySeqScatter(t *testing.T) {
	// A 16-byte record split 5/11 across two destination Blocks must land
	// exactly as a contiguous copy would.
	src := []byte("0123456789abcdef")
	first := make([]byte, 5)
	second := make([]byte, 11)
	dsts := BlockSeqFromSlice([]Block{BlockFromSafeSlice(first), BlockFromSafeSlice(second)})

	n, err := CopySeq(dsts, BlockSeqOf(BlockFromSafeSlice(src)))
	if n != uint64(len(src)) || err != nil {
		t.Fatalf("CopySeq: got (%d, %v), wanted (%d, nil)", n, err, len(src))
	}
	if got := string(first) + string(second); got != string(src) {
		t.Errorf("scattered bytes: got %q, wanted %q", got, src)
	}
}

func TestCopySeqShortDestination(t *testing.T) {
	dst := make([]byte, 3)
	n, err := CopySeq(BlockSeqOf(BlockFromSafeSlice(dst)), BlockSeqOf(BlockFromSafeSlice([]byte("foobar"))))
	if n != 3 || err != nil {
		t.Fatalf("CopySeq: got (%d, %v), wanted (3, nil)", n, err)
	}
	if !bytes.Equal(dst, []byte("foo")) {
		t.Errorf("dst: got %q, wanted %q", dst, "foo")
	}
}

func TestZeroSeq(t *testing.T) {
	a, b := []byte("abc"), []byte("de")
	n, err := ZeroSeq(BlockSeqFromSlice([]Block{BlockFromSafeSlice(a), BlockFromSafeSlice(b)}))
	if n != 5 || err != nil {
		t.Fatalf("ZeroSeq: got (%d, %v), wanted (5, nil)", n, err)
	}
	if !bytes.Equal(a, make([]byte, 3)) || !bytes.Equal(b, make([]byte, 2)) {
		t.Errorf("ZeroSeq left non-zero bytes: %q %q", a, b)
	}
}
