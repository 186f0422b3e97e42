package ext4

import (
	"encoding/binary"
	"fmt"
)

const (
	// directoryEntryHeaderLength the fixed 8 bytes before the name
	directoryEntryHeaderLength int = 8
	// minDirEntryLength actually 9 for 1-byte name, but stride must be a multiple of 4 bytes
	minDirEntryLength int = 12
	// maxDirEntryLength header plus the 255-byte name cap
	maxDirEntryLength int = 263
)

// directoryEntry is a single directory entry as stored on disk. Entries tile
// their directory block; recLen is the stride to the next entry and includes
// any padding. An entry with inode 0 is an unused slot.
type directoryEntry struct {
	inode    uint32
	recLen   uint16
	filename string
	fileType dirFileType
}

// directoryEntryFromBytes create a directoryEntry struct from bytes. The
// bytes must hold the whole record, i.e. recLen may not exceed len(b).
func directoryEntryFromBytes(b []byte) (*directoryEntry, error) {
	if len(b) < directoryEntryHeaderLength {
		return nil, fmt.Errorf("directory entry of length %d is less than minimum %d", len(b), directoryEntryHeaderLength)
	}
	recLen := binary.LittleEndian.Uint16(b[0x4:0x6])
	if int(recLen) > len(b) {
		return nil, fmt.Errorf("directory entry record length %d exceeds available %d bytes", recLen, len(b))
	}
	nameLength := int(b[0x6])
	if directoryEntryHeaderLength+nameLength > int(recLen) {
		return nil, fmt.Errorf("directory entry name of %d bytes does not fit record length %d", nameLength, recLen)
	}
	de := directoryEntry{
		inode:    binary.LittleEndian.Uint32(b[0x0:0x4]),
		recLen:   recLen,
		fileType: dirFileType(b[0x7]),
		filename: string(b[directoryEntryHeaderLength : directoryEntryHeaderLength+nameLength]),
	}
	return &de, nil
}

// toBytes returns a directoryEntry in its on-disk layout, recLen bytes long
func (de *directoryEntry) toBytes() []byte {
	length := de.recLen
	if length == 0 {
		length = directoryEntryLength(de.filename)
	}
	b := make([]byte, length)

	binary.LittleEndian.PutUint32(b[0x0:0x4], de.inode)
	binary.LittleEndian.PutUint16(b[0x4:0x6], length)
	b[0x6] = uint8(len(de.filename))
	b[0x7] = byte(de.fileType)
	copy(b[directoryEntryHeaderLength:], de.filename)

	return b
}

// directoryEntryLength the stride a name needs: the 8-byte header plus the
// name, rounded up to the next multiple of 4
func directoryEntryLength(filename string) uint16 {
	length := directoryEntryHeaderLength + len(filename)
	if leftover := length % 4; leftover > 0 {
		length += 4 - leftover
	}
	return uint16(length)
}
