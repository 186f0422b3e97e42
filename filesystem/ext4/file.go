package ext4

import (
	"fmt"
	"io"
	"io/fs"
)

// File represents a single file in an ext4 filesystem
type File struct {
	*directoryEntry
	*inode
	offset     int64
	filesystem *FileSystem
	extents    extents
}

// Read reads up to len(b) bytes from the File.
// It returns the number of bytes read and any error encountered.
// At end of file, Read returns 0, io.EOF
// reads from the last known offset in the file from last read or seek
// use Seek() to set at a particular point
func (fl *File) Read(b []byte) (int, error) {
	var (
		fileSize  = int64(fl.size)
		blocksize = int64(fl.filesystem.superblock.blockSize)
	)
	if fl.offset >= fileSize {
		return 0, io.EOF
	}

	bytesToRead := int64(len(b))
	if fl.offset+bytesToRead > fileSize {
		bytesToRead = fileSize - fl.offset
	}

	// the offset is relative to the file, so walk the extents to find which
	// one, if any, covers it; anything not covered is a hole and reads as zeros
	readBytes := int64(0)
	for readBytes < bytesToRead {
		offset := fl.offset + readBytes
		var (
			covering  *extent
			nextStart = int64(-1)
		)
		for i := range fl.extents {
			start := int64(fl.extents[i].fileBlock) * blocksize
			end := start + int64(fl.extents[i].count)*blocksize
			if offset >= start && offset < end {
				covering = &fl.extents[i]
				break
			}
			if start > offset && (nextStart == -1 || start < nextStart) {
				nextStart = start
			}
		}

		toRead := bytesToRead - readBytes
		if covering != nil {
			positionInExtent := offset - int64(covering.fileBlock)*blocksize
			if left := int64(covering.count)*blocksize - positionInExtent; toRead > left {
				toRead = left
			}
			startPosOnDisk := int64(covering.startingBlock)*blocksize + positionInExtent
			copy(b[readBytes:readBytes+toRead], fl.filesystem.image[startPosOnDisk:startPosOnDisk+toRead])
		} else {
			if nextStart != -1 && nextStart-offset < toRead {
				toRead = nextStart - offset
			}
			for i := int64(0); i < toRead; i++ {
				b[readBytes+i] = 0
			}
		}
		readBytes += toRead
	}
	fl.offset += readBytes

	var err error
	if fl.offset >= fileSize {
		err = io.EOF
	}

	return int(readBytes), err
}

// Seek set the offset to a particular point in the file
func (fl *File) Seek(offset int64, whence int) (int64, error) {
	newOffset := int64(0)
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekEnd:
		newOffset = int64(fl.size) + offset
	case io.SeekCurrent:
		newOffset = fl.offset + offset
	}
	if newOffset < 0 {
		return fl.offset, fmt.Errorf("cannot set offset %d before start of file", offset)
	}
	fl.offset = newOffset
	return fl.offset, nil
}

// Stat return the FileInfo for the file
func (fl *File) Stat() (fs.FileInfo, error) {
	return &directoryEntryInfo{
		directoryEntry: fl.directoryEntry,
		inode:          fl.inode,
	}, nil
}

// Close close a file that is being read
func (fl *File) Close() error {
	*fl = File{}
	return nil
}
