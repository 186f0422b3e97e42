package ext4

import (
	"encoding/binary"
	"fmt"
)

const (
	extentTreeHeaderLength int    = 12
	extentTreeEntryLength  int    = 12
	extentHeaderSignature  uint16 = 0xf30a
	extentTreeMaxDepth     int    = 5
	extentInodeMaxEntries  int    = 4
)

// extents a structure holding multiple extents
type extents []extent

// extent a structure with information about a single contiguous run of blocks containing file data
type extent struct {
	// fileBlock block number relative to the file. E.g. if the file is composed of 5 blocks, this could be 0-4
	fileBlock uint32
	// startingBlock the first block on disk that contains the data in this extent. E.g. if the file is made up of data from blocks 100-104 on the disk, this would be 100
	startingBlock uint64
	// count how many contiguous blocks are covered by this extent
	count uint16
}

// blockCount how many filesystem blocks are covered in the extents
func (e extents) blockCount() uint64 {
	var count uint64
	for _, ext := range e {
		count += uint64(ext.count)
	}
	return count
}

// extentNodeHeader represents the header of an extent tree node
type extentNodeHeader struct {
	entries    uint16 // number of valid entries that follow
	max        uint16 // maximum number of entries this node can hold
	depth      uint16 // the depth of tree below here; for leaf nodes, will be 0
	generation uint32
}

// extentNodeHeaderFromBytes decode an extent node header, checking the signature
func extentNodeHeaderFromBytes(b []byte) (*extentNodeHeader, error) {
	if len(b) < extentTreeHeaderLength {
		return nil, fmt.Errorf("cannot parse extent node header from %d bytes, minimum required %d", len(b), extentTreeHeaderLength)
	}
	if signature := binary.LittleEndian.Uint16(b[0x0:0x2]); signature != extentHeaderSignature {
		return nil, fmt.Errorf("invalid extent node signature: %x", signature)
	}
	e := extentNodeHeader{
		entries:    binary.LittleEndian.Uint16(b[0x2:0x4]),
		max:        binary.LittleEndian.Uint16(b[0x4:0x6]),
		depth:      binary.LittleEndian.Uint16(b[0x6:0x8]),
		generation: binary.LittleEndian.Uint32(b[0x8:0xc]),
	}
	return &e, nil
}

func (e extentNodeHeader) toBytes() []byte {
	b := make([]byte, extentTreeHeaderLength)
	binary.LittleEndian.PutUint16(b[0x0:0x2], extentHeaderSignature)
	binary.LittleEndian.PutUint16(b[0x2:0x4], e.entries)
	binary.LittleEndian.PutUint16(b[0x4:0x6], e.max)
	binary.LittleEndian.PutUint16(b[0x6:0x8], e.depth)
	binary.LittleEndian.PutUint32(b[0x8:0xc], e.generation)
	return b
}

// extentIndex a pointer from an interior extent tree node down to a child node.
// The child could be a leaf node or another interior node; only reading its
// header tells.
type extentIndex struct {
	// fileBlock the first file block covered by the subtree below this index
	fileBlock uint32
	// childBlock the disk block where the child node lives
	childBlock uint64
}

// extentFromBytes decode one 12-byte leaf entry
func extentFromBytes(b []byte) extent {
	diskBlock := make([]byte, 8)
	copy(diskBlock[0:4], b[0x8:0xc])
	copy(diskBlock[4:6], b[0x6:0x8])
	return extent{
		fileBlock:     binary.LittleEndian.Uint32(b[0x0:0x4]),
		count:         binary.LittleEndian.Uint16(b[0x4:0x6]),
		startingBlock: binary.LittleEndian.Uint64(diskBlock),
	}
}

func (e extent) toBytes() []byte {
	b := make([]byte, extentTreeEntryLength)
	binary.LittleEndian.PutUint32(b[0x0:0x4], e.fileBlock)
	binary.LittleEndian.PutUint16(b[0x4:0x6], e.count)
	diskBlock := make([]byte, 8)
	binary.LittleEndian.PutUint64(diskBlock, e.startingBlock)
	copy(b[0x6:0x8], diskBlock[4:6])
	copy(b[0x8:0xc], diskBlock[0:4])
	return b
}

// extentIndexFromBytes decode one 12-byte interior entry
func extentIndexFromBytes(b []byte) extentIndex {
	diskBlock := make([]byte, 8)
	copy(diskBlock[0:4], b[0x4:0x8])
	copy(diskBlock[4:6], b[0x8:0xa])
	return extentIndex{
		fileBlock:  binary.LittleEndian.Uint32(b[0x0:0x4]),
		childBlock: binary.LittleEndian.Uint64(diskBlock),
	}
}

func (e extentIndex) toBytes() []byte {
	b := make([]byte, extentTreeEntryLength)
	binary.LittleEndian.PutUint32(b[0x0:0x4], e.fileBlock)
	diskBlock := make([]byte, 8)
	binary.LittleEndian.PutUint64(diskBlock, e.childBlock)
	copy(b[0x4:0x8], diskBlock[0:4])
	copy(b[0x8:0xa], diskBlock[4:6])
	return b
}

// encodeExtentNode serialize a header plus its leaf or index entries into a
// node image. Used when constructing trees; the walker only ever decodes.
func encodeExtentNode(header extentNodeHeader, leaves extents, indexes []extentIndex) []byte {
	b := header.toBytes()
	for _, leaf := range leaves {
		b = append(b, leaf.toBytes()...)
	}
	for _, index := range indexes {
		b = append(b, index.toBytes()...)
	}
	return b
}

// walkExtentTree resolve the extent tree whose node begins at b into the
// ordered list of leaf extents below it, appending to found. Interior entries
// pointing at nodes with a bad signature or no entries are skipped, as are
// entries pointing outside the image: one corrupt branch must not take down
// the rest of the traversal.
func (fs *FileSystem) walkExtentTree(b []byte, found extents, depthRemaining int) (extents, error) {
	header, err := extentNodeHeaderFromBytes(b)
	if err != nil {
		return nil, err
	}

	// never trust entries beyond what the node actually holds
	entries := int(header.entries)
	if maxFit := (len(b) - extentTreeHeaderLength) / extentTreeEntryLength; entries > maxFit {
		entries = maxFit
	}

	blocksize := uint64(fs.superblock.blockSize)
	imageBlocks := uint64(len(fs.image)) / blocksize

	if header.depth == 0 {
		for i := 0; i < entries; i++ {
			start := extentTreeHeaderLength + i*extentTreeEntryLength
			leaf := extentFromBytes(b[start : start+extentTreeEntryLength])
			if leaf.startingBlock+uint64(leaf.count) > imageBlocks {
				// the extent points past the end of the image
				continue
			}
			found = append(found, leaf)
		}
		return found, nil
	}

	if depthRemaining <= 0 {
		// deeper than any valid ext4 extent tree; assume a cycle and stop
		return found, nil
	}

	for i := 0; i < entries; i++ {
		start := extentTreeHeaderLength + i*extentTreeEntryLength
		index := extentIndexFromBytes(b[start : start+extentTreeEntryLength])
		if index.childBlock >= imageBlocks {
			continue
		}
		nodeStart := index.childBlock * blocksize
		child := fs.image[nodeStart : nodeStart+blocksize]
		childHeader, err := extentNodeHeaderFromBytes(child)
		if err != nil || childHeader.entries == 0 {
			// uninitialised or corrupt child node
			continue
		}
		found, err = fs.walkExtentTree(child, found, depthRemaining-1)
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

// extents resolve the extent tree rooted in the inode's block-pointer region
// into the ordered list of leaf extents covering the inode's data
func (fs *FileSystem) extents(in *inode) (extents, error) {
	if !in.flags.usesExtents {
		return nil, fmt.Errorf("inode %d does not use extents", in.number)
	}
	return fs.walkExtentTree(in.block[:], nil, extentTreeMaxDepth)
}

// extentRanges resolve an inode's extent tree into the ordered byte ranges of
// the image covering its data. The ranges are subslices of the image, in file
// order; their concatenation is the inode's data, padded out to whole blocks.
// Logical holes between extents are simply absent.
func (fs *FileSystem) extentRanges(in *inode) ([][]byte, error) {
	exts, err := fs.extents(in)
	if err != nil {
		return nil, err
	}
	blocksize := uint64(fs.superblock.blockSize)
	ranges := make([][]byte, 0, len(exts))
	for _, ext := range exts {
		start := ext.startingBlock * blocksize
		end := start + uint64(ext.count)*blocksize
		ranges = append(ranges, fs.image[start:end])
	}
	return ranges, nil
}
