package ext4

import (
	"bytes"
	"testing"
)

func TestByteStreamSingleRange(t *testing.T) {
	data := []byte("0123456789")
	s := &ByteStream{chain: bufferChain{ranges: [][]byte{data}}}
	var out []byte
	for {
		b, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, b)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("expected %q, got %q", data, out)
	}
	// the stream is drained
	if _, ok := s.Next(); ok {
		t.Errorf("expected exhausted stream to yield nothing")
	}
}

func TestByteStreamCrossesRanges(t *testing.T) {
	s := &ByteStream{chain: bufferChain{ranges: [][]byte{
		[]byte("abc"),
		{},
		[]byte("de"),
		[]byte("f"),
	}}}
	var out []byte
	for {
		b, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, b)
	}
	if string(out) != "abcdef" {
		t.Errorf("expected abcdef, got %q", out)
	}
}

func TestByteStreamEmpty(t *testing.T) {
	s := &ByteStream{}
	if _, ok := s.Next(); ok {
		t.Errorf("expected empty stream to yield nothing")
	}
	if got := s.ReadAll(); len(got) != 0 {
		t.Errorf("expected ReadAll of empty stream to be empty, got %d bytes", len(got))
	}
}

func TestByteStreamReadAll(t *testing.T) {
	s := &ByteStream{chain: bufferChain{ranges: [][]byte{
		[]byte("abc"),
		[]byte("def"),
	}}}
	// consume two bytes, then drain
	s.Next()
	s.Next()
	if got := s.ReadAll(); string(got) != "cdef" {
		t.Errorf("expected cdef, got %q", got)
	}
	if got := s.ReadAll(); len(got) != 0 {
		t.Errorf("expected drained stream to be empty, got %q", got)
	}
}

func testCollectEntries(s *DirEntryStream) []*directoryEntry {
	var entries []*directoryEntry
	for {
		de, ok := s.Next()
		if !ok {
			return entries
		}
		entries = append(entries, de)
	}
}

func TestDirEntryStream(t *testing.T) {
	block := testEncodeDirBlock(testGetRootDirEntries())
	s := &DirEntryStream{chain: bufferChain{ranges: [][]byte{block}}}
	entries := testCollectEntries(s)
	expected := testGetRootDirEntries()
	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %d", len(expected), len(entries))
	}
	var recLenSum int
	for i, e := range entries {
		if e.filename != expected[i].filename || e.inode != expected[i].inode || e.fileType != expected[i].fileType {
			t.Errorf("entry %d: got %+v, expected %+v", i, e, expected[i])
		}
		recLenSum += int(e.recLen)
	}
	// entries tile the block exactly
	if recLenSum != testBlockSize {
		t.Errorf("expected record lengths to sum to %d, got %d", testBlockSize, recLenSum)
	}
}

func TestDirEntryStreamCrossesRanges(t *testing.T) {
	blockA := testEncodeDirBlock([]*directoryEntry{
		{inode: 2, filename: ".", fileType: dirFileTypeDirectory},
		{inode: 2, filename: "..", fileType: dirFileTypeDirectory},
	})
	blockB := testEncodeDirBlock([]*directoryEntry{
		{inode: 11, filename: "foo.txt", fileType: dirFileTypeRegular},
	})
	s := &DirEntryStream{chain: bufferChain{ranges: [][]byte{blockA, blockB}}}
	entries := testCollectEntries(s)
	names := []string{".", "..", "foo.txt"}
	if len(entries) != len(names) {
		t.Fatalf("expected %d entries, got %d", len(names), len(entries))
	}
	for i, name := range names {
		if entries[i].filename != name {
			t.Errorf("entry %d: expected %q, got %q", i, name, entries[i].filename)
		}
	}
}

// TestDirEntryStreamZeroRecLen a zero record length would never advance, so
// it ends the stream
func TestDirEntryStreamZeroRecLen(t *testing.T) {
	block := make([]byte, testBlockSize)
	copy(block, (&directoryEntry{inode: 2, recLen: 12, filename: ".", fileType: dirFileTypeDirectory}).toBytes())
	// bytes 12.. are zero, so the next record has recLen 0
	s := &DirEntryStream{chain: bufferChain{ranges: [][]byte{block}}}
	entries := testCollectEntries(s)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry before zero record length, got %d", len(entries))
	}
	if _, ok := s.Next(); ok {
		t.Errorf("expected stream to stay ended")
	}
}

// TestDirEntryStreamStraddling a record claiming to run past its range is
// skipped along with the rest of the range, and iteration continues in the
// next one
func TestDirEntryStreamStraddling(t *testing.T) {
	truncated := (&directoryEntry{inode: 2, recLen: 512, filename: "straddler", fileType: dirFileTypeRegular}).toBytes()[:20]
	blockB := testEncodeDirBlock([]*directoryEntry{
		{inode: 11, filename: "foo.txt", fileType: dirFileTypeRegular},
	})
	s := &DirEntryStream{chain: bufferChain{ranges: [][]byte{truncated, blockB}}}
	entries := testCollectEntries(s)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].filename != "foo.txt" {
		t.Errorf("expected foo.txt from the following range, got %q", entries[0].filename)
	}
}
