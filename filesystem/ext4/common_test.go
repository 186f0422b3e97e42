package ext4

import (
	"time"

	"github.com/google/uuid"
)

// The test volume is a single-group, 1KiB-block image built entirely in
// memory, laid out as follows:
//
//	block 0        boot area
//	block 1        superblock
//	block 2        group descriptor table
//	block 3        block bitmap
//	block 4        inode bitmap
//	blocks 5-12    inode table (32 inodes of 256 bytes)
//	block 13       root directory data
//	block 14       foo.txt data
//	block 15       sub directory data
//	block 16       bar.txt data
//	block 17       big.dat extent leaf node
//	blocks 18-24   big.dat data (extents of 2, 1 and 4 blocks)
//	block 25       corrupt.dat valid extent leaf node
//	block 26       corrupt.dat data
//	block 27       corrupt.dat second "leaf node", deliberately garbage
//	blocks 28-63   unused
const (
	testBlockSize      = 1024
	testBlockCount     = 64
	testInodesPerGroup = 32
	testInodeSize      = 256

	testRootInode    uint32 = 2
	testFooInode     uint32 = 11
	testEmptyInode   uint32 = 12
	testLinkInode    uint32 = 13
	testSubInode     uint32 = 14
	testBigInode     uint32 = 15
	testBarInode     uint32 = 16
	testCorruptInode uint32 = 17
	testFifoInode    uint32 = 18

	testLinkTarget = "hello/world"
)

var (
	testTime = time.Unix(1577836800, 0) // 2020-01-01T00:00:00Z
	testUUID = uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
)

// testVolume holds a built image along with the structures that were encoded
// into it, for comparing against what the decoders produce
type testVolume struct {
	image  []byte
	sb     *superblock
	gds    *groupDescriptors
	inodes map[uint32]*inode
}

func testGetValidSuperblock() *superblock {
	return &superblock{
		inodeCount:            testInodesPerGroup,
		blockCount:            testBlockCount,
		reservedBlocks:        0,
		freeBlocks:            testBlockCount - 28,
		freeInodes:            testInodesPerGroup - 18,
		firstDataBlock:        1,
		blockSize:             testBlockSize,
		logClusterSize:        0,
		blocksPerGroup:        testBlockCount,
		clustersPerGroup:      testBlockCount,
		inodesPerGroup:        testInodesPerGroup,
		mountTime:             testTime,
		writeTime:             testTime,
		mountCount:            1,
		mountsToFsck:          0xffff,
		filesystemState:       fsStateCleanlyUnmounted,
		errorBehaviour:        errorsContinue,
		minorRevision:         0,
		lastCheck:             testTime,
		checkInterval:         0,
		creatorOS:             osLinux,
		revisionLevel:         1,
		firstNonReservedInode: firstNonReservedInode,
		inodeSize:             testInodeSize,
		blockGroup:            0,
		features: parseFeatureFlags(
			0,
			uint32(incompatFeatureDirectoryEntriesRecordFileType|incompatFeatureExtents),
			uint32(roCompatFeatureSparseSuperblock|roCompatFeatureLargeFile),
		),
		uuid:                 testUUID,
		volumeLabel:          "go-ext4-test",
		lastMountedDirectory: "/",
		mkfsTime:             testTime,
		hashVersion:          hashHalfMD4,
		groupDescriptorSize:  uint16(groupDescriptorSize),
		inodeMinBytes:        minInodeExtraSize,
		inodeReserveBytes:    minInodeExtraSize,
		miscFlags:            miscFlags{signedDirectoryHash: true},
		totalKBWritten:       64,
		lostFoundInode:       firstNonReservedInode,
	}
}

func testGetValidGroupDescriptors() *groupDescriptors {
	return &groupDescriptors{
		descriptors: []groupDescriptor{
			{
				number:           0,
				blockBitmapBlock: 3,
				inodeBitmapBlock: 4,
				inodeTableBlock:  5,
				freeBlocks:       testBlockCount - 28,
				freeInodes:       testInodesPerGroup - 18,
				usedDirectories:  2,
			},
		},
	}
}

// testInodeBlockRegion the 60-byte block-pointer region holding an encoded
// extent tree root
func testInodeBlockRegion(header extentNodeHeader, leaves extents, indexes []extentIndex) [inodeBlockRegionSize]byte {
	var region [inodeBlockRegionSize]byte
	copy(region[:], encodeExtentNode(header, leaves, indexes))
	return region
}

// testSymlinkBlockRegion the block-pointer region holding an inline target
func testSymlinkBlockRegion(target string) [inodeBlockRegionSize]byte {
	var region [inodeBlockRegionSize]byte
	copy(region[:], target)
	return region
}

func testGetValidInodes() map[uint32]*inode {
	perms755 := filePermissions{read: true, write: true, execute: true}
	perms644 := filePermissions{read: true, write: true}
	read := filePermissions{read: true}
	readExec := filePermissions{read: true, execute: true}
	perms777 := filePermissions{read: true, write: true, execute: true}
	extentFlags := inodeFlags{usesExtents: true}

	inodes := map[uint32]*inode{
		testRootInode: {
			number:           testRootInode,
			permissionsOwner: perms755,
			permissionsGroup: readExec,
			permissionsOther: readExec,
			fileType:         fileTypeDirectory,
			size:             testBlockSize,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        3,
			blocks:           2,
			flags:            extentFlags,
			block:            testInodeBlockRegion(extentNodeHeader{entries: 1, max: uint16(extentInodeMaxEntries)}, extents{{fileBlock: 0, startingBlock: 13, count: 1}}, nil),
		},
		testFooInode: {
			number:           testFooInode,
			permissionsOwner: perms644,
			permissionsGroup: read,
			permissionsOther: read,
			fileType:         fileTypeRegularFile,
			size:             testBlockSize,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
			blocks:           2,
			flags:            extentFlags,
			block:            testInodeBlockRegion(extentNodeHeader{entries: 1, max: uint16(extentInodeMaxEntries)}, extents{{fileBlock: 0, startingBlock: 14, count: 1}}, nil),
		},
		testEmptyInode: {
			number:           testEmptyInode,
			permissionsOwner: perms644,
			permissionsGroup: read,
			permissionsOther: read,
			fileType:         fileTypeRegularFile,
			size:             0,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
			blocks:           0,
			flags:            extentFlags,
			block:            testInodeBlockRegion(extentNodeHeader{entries: 0, max: uint16(extentInodeMaxEntries)}, nil, nil),
		},
		testLinkInode: {
			number:           testLinkInode,
			permissionsOwner: perms777,
			permissionsGroup: perms777,
			permissionsOther: perms777,
			fileType:         fileTypeSymbolicLink,
			size:             uint64(len(testLinkTarget)),
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
			blocks:           0,
			block:            testSymlinkBlockRegion(testLinkTarget),
			linkTarget:       testLinkTarget,
		},
		testSubInode: {
			number:           testSubInode,
			permissionsOwner: perms755,
			permissionsGroup: readExec,
			permissionsOther: readExec,
			fileType:         fileTypeDirectory,
			size:             testBlockSize,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        2,
			blocks:           2,
			flags:            extentFlags,
			block:            testInodeBlockRegion(extentNodeHeader{entries: 1, max: uint16(extentInodeMaxEntries)}, extents{{fileBlock: 0, startingBlock: 15, count: 1}}, nil),
		},
		testBigInode: {
			number:           testBigInode,
			permissionsOwner: perms644,
			permissionsGroup: read,
			permissionsOther: read,
			fileType:         fileTypeRegularFile,
			size:             7 * testBlockSize,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
			blocks:           16,
			flags:            extentFlags,
			block:            testInodeBlockRegion(extentNodeHeader{entries: 1, max: uint16(extentInodeMaxEntries), depth: 1}, nil, []extentIndex{{fileBlock: 0, childBlock: 17}}),
		},
		testBarInode: {
			number:           testBarInode,
			permissionsOwner: perms644,
			permissionsGroup: read,
			permissionsOther: read,
			fileType:         fileTypeRegularFile,
			size:             5,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
			blocks:           2,
			flags:            extentFlags,
			block:            testInodeBlockRegion(extentNodeHeader{entries: 1, max: uint16(extentInodeMaxEntries)}, extents{{fileBlock: 0, startingBlock: 16, count: 1}}, nil),
		},
		testCorruptInode: {
			number:           testCorruptInode,
			permissionsOwner: perms644,
			permissionsGroup: read,
			permissionsOther: read,
			fileType:         fileTypeRegularFile,
			size:             2 * testBlockSize,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
			blocks:           6,
			flags:            extentFlags,
			block: testInodeBlockRegion(extentNodeHeader{entries: 2, max: uint16(extentInodeMaxEntries), depth: 1}, nil, []extentIndex{
				{fileBlock: 0, childBlock: 25},
				{fileBlock: 1, childBlock: 27},
			}),
		},
		testFifoInode: {
			number:           testFifoInode,
			permissionsOwner: perms644,
			permissionsGroup: read,
			permissionsOther: read,
			fileType:         fileTypeFifo,
			size:             0,
			accessTime:       testTime,
			changeTime:       testTime,
			modifyTime:       testTime,
			hardLinks:        1,
		},
	}
	return inodes
}

func testGetRootDirEntries() []*directoryEntry {
	return []*directoryEntry{
		{inode: testRootInode, recLen: 12, filename: ".", fileType: dirFileTypeDirectory},
		{inode: testRootInode, recLen: 12, filename: "..", fileType: dirFileTypeDirectory},
		{inode: testFooInode, recLen: 16, filename: "foo.txt", fileType: dirFileTypeRegular},
		{inode: testEmptyInode, recLen: 20, filename: "empty.txt", fileType: dirFileTypeRegular},
		{inode: testLinkInode, recLen: 12, filename: "link", fileType: dirFileTypeSymlink},
		{inode: testSubInode, recLen: 12, filename: "sub", fileType: dirFileTypeDirectory},
		{inode: testBigInode, recLen: 16, filename: "big.dat", fileType: dirFileTypeRegular},
		{inode: testCorruptInode, recLen: 20, filename: "corrupt.dat", fileType: dirFileTypeRegular},
		{inode: testFifoInode, recLen: 0, filename: "fifo", fileType: dirFileTypeFifo},
	}
}

func testGetSubDirEntries() []*directoryEntry {
	return []*directoryEntry{
		{inode: testSubInode, recLen: 12, filename: ".", fileType: dirFileTypeDirectory},
		{inode: testRootInode, recLen: 12, filename: "..", fileType: dirFileTypeDirectory},
		{inode: testBarInode, recLen: 0, filename: "bar.txt", fileType: dirFileTypeRegular},
	}
}

// testEncodeDirBlock tile a directory block with entries; the final entry's
// record length is stretched to run to the end of the block
func testEncodeDirBlock(entries []*directoryEntry) []byte {
	b := make([]byte, testBlockSize)
	offset := 0
	for i, de := range entries {
		rec := *de
		if i == len(entries)-1 {
			rec.recLen = uint16(testBlockSize - offset)
		} else if rec.recLen == 0 {
			rec.recLen = directoryEntryLength(rec.filename)
		}
		copy(b[offset:], rec.toBytes())
		offset += int(rec.recLen)
	}
	return b
}

// testFillBlock a block's worth of a repeating pattern
func testFillBlock(pattern byte) []byte {
	b := make([]byte, testBlockSize)
	for i := range b {
		b[i] = pattern
	}
	return b
}

func testFooContents() []byte {
	b := make([]byte, testBlockSize)
	pattern := "0123456789abcdef"
	for i := range b {
		b[i] = pattern[i%len(pattern)]
	}
	return b
}

// testBuildVolume construct the complete image and the structures encoded in it
func testBuildVolume() *testVolume {
	image := make([]byte, testBlockCount*testBlockSize)
	sb := testGetValidSuperblock()
	gds := testGetValidGroupDescriptors()
	inodes := testGetValidInodes()

	blockAt := func(n int) []byte {
		return image[n*testBlockSize : (n+1)*testBlockSize]
	}

	copy(image[superblockOffset:], sb.toBytes())
	copy(blockAt(2), gds.toBytes(sb.groupDescriptorSize))

	// block bitmap: blocks 0-27 in use
	blockBitmap := blockAt(3)
	for block := 0; block < 28; block++ {
		blockBitmap[block/8] |= 1 << (block % 8)
	}

	// inode bitmap: inodes 1-18 allocated, i.e. bits 0-17
	inodeBitmap := blockAt(4)
	for slot := 0; slot < 18; slot++ {
		inodeBitmap[slot/8] |= 1 << (slot % 8)
	}

	// inode table
	for number, in := range inodes {
		offset := 5*testBlockSize + int(number-1)*testInodeSize
		copy(image[offset:], in.toBytes(testInodeSize))
	}

	// directory and file data
	copy(blockAt(13), testEncodeDirBlock(testGetRootDirEntries()))
	copy(blockAt(14), testFooContents())
	copy(blockAt(15), testEncodeDirBlock(testGetSubDirEntries()))
	copy(blockAt(16), "hello")

	// big.dat: a two-level tree, with the leaf node in block 17 covering
	// extents of 2, 1 and 4 blocks
	copy(blockAt(17), encodeExtentNode(
		extentNodeHeader{entries: 3, max: uint16((testBlockSize - extentTreeHeaderLength) / extentTreeEntryLength)},
		extents{
			{fileBlock: 0, startingBlock: 18, count: 2},
			{fileBlock: 2, startingBlock: 20, count: 1},
			{fileBlock: 3, startingBlock: 21, count: 4},
		},
		nil,
	))
	for i := 0; i < 7; i++ {
		copy(blockAt(18+i), testFillBlock(byte('A'+i)))
	}

	// corrupt.dat: one valid leaf node and one node of garbage
	copy(blockAt(25), encodeExtentNode(
		extentNodeHeader{entries: 1, max: uint16((testBlockSize - extentTreeHeaderLength) / extentTreeEntryLength)},
		extents{{fileBlock: 0, startingBlock: 26, count: 1}},
		nil,
	))
	copy(blockAt(26), testFillBlock(0xcc))
	copy(blockAt(27), testFillBlock(0xde))

	return &testVolume{
		image:  image,
		sb:     sb,
		gds:    gds,
		inodes: inodes,
	}
}
