package ext4

import "encoding/binary"

// bufferChain tracks a cursor across an ordered list of byte ranges, so that
// record streams can cross range boundaries without ever concatenating the
// underlying bytes.
type bufferChain struct {
	ranges     [][]byte
	rangeIndex int
	byteOffset int
}

// rest the unread remainder of the current range, skipping forward past
// ranges with fewer than minSize bytes left. Returns nil once the chain is
// exhausted.
func (c *bufferChain) rest(minSize int) []byte {
	for c.rangeIndex < len(c.ranges) {
		remaining := len(c.ranges[c.rangeIndex]) - c.byteOffset
		if remaining < minSize {
			c.rangeIndex++
			c.byteOffset = 0
			continue
		}
		return c.ranges[c.rangeIndex][c.byteOffset:]
	}
	return nil
}

// advance move the cursor n bytes forward within the current range
func (c *bufferChain) advance(n int) {
	c.byteOffset += n
}

// skipRange abandon the remainder of the current range
func (c *bufferChain) skipRange() {
	c.rangeIndex++
	c.byteOffset = 0
}

// ByteStream yields the bytes of an inode's data ranges one at a time,
// lazily; it never materialises a contiguous copy of the file. The bytes
// include any padding up to the final block boundary; callers that care about
// exact file size bound their reads by the inode size.
type ByteStream struct {
	chain bufferChain
}

// Next the next byte, and whether one was available
func (s *ByteStream) Next() (byte, bool) {
	b := s.chain.rest(1)
	if b == nil {
		return 0, false
	}
	s.chain.advance(1)
	return b[0], true
}

// ReadAll drain the remainder of the stream into one slice
func (s *ByteStream) ReadAll() []byte {
	var total int
	for i := s.chain.rangeIndex; i < len(s.chain.ranges); i++ {
		total += len(s.chain.ranges[i])
	}
	out := make([]byte, 0, total)
	for {
		b := s.chain.rest(1)
		if b == nil {
			return out
		}
		out = append(out, b...)
		s.chain.advance(len(b))
	}
}

// DirEntryStream yields the directory entries packed into an inode's data
// ranges, in physical order, advancing by each entry's record length.
// Directory blocks are padded so that no entry straddles a block boundary; a
// record that would is skipped along with the rest of its range. A record
// length of zero would never terminate, so it ends the stream instead.
type DirEntryStream struct {
	chain bufferChain
	done  bool
}

// Next the next directory entry, and whether one was available. Unused slots
// (inode 0) are yielded like any other entry; filtering them is the caller's
// concern.
func (s *DirEntryStream) Next() (*directoryEntry, bool) {
	for !s.done {
		b := s.chain.rest(directoryEntryHeaderLength)
		if b == nil {
			break
		}
		recLen := binary.LittleEndian.Uint16(b[0x4:0x6])
		if recLen == 0 {
			break
		}
		if int(recLen) > len(b) {
			s.chain.skipRange()
			continue
		}
		de, err := directoryEntryFromBytes(b[:recLen])
		if err != nil {
			break
		}
		s.chain.advance(int(recLen))
		return de, true
	}
	s.done = true
	return nil, false
}
