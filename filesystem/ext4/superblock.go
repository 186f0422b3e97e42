package ext4

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type filesystemState uint16
type errorBehaviour uint16
type osFlag uint32
type hashAlgorithm byte

const (
	// superblockSignature is the signature for every superblock
	superblockSignature uint16 = 0xef53
	// superblockOffset how far into the image the superblock begins, after the boot sector
	superblockOffset int = 1024
	// optional states for the filesystem
	fsStateCleanlyUnmounted filesystemState = 0x0001
	fsStateErrors           filesystemState = 0x0002
	fsStateOrphansRecovered filesystemState = 0x0004
	// how to handle errors
	errorsContinue        errorBehaviour = 1
	errorsRemountReadOnly errorBehaviour = 2
	errorsPanic           errorBehaviour = 3
	// oses
	osLinux   osFlag = 0
	osHurd    osFlag = 1
	osMasix   osFlag = 2
	osFreeBSD osFlag = 3
	osLites   osFlag = 4
	// hash algorithms for htree directory entries
	hashLegacy          hashAlgorithm = 0x0
	hashHalfMD4         hashAlgorithm = 0x1
	hashTea             hashAlgorithm = 0x2
	hashLegacyUnsigned  hashAlgorithm = 0x3
	hashHalfMD4Unsigned hashAlgorithm = 0x4
	hashTeaUnsigned     hashAlgorithm = 0x5
	// miscellaneous flags
	flagSignedDirectoryHash   uint32 = 0x0001
	flagUnsignedDirectoryHash uint32 = 0x0002
	flagTestDevCode           uint32 = 0x0004

	minBlockLogSize int = 10 /* 1024 */
	maxBlockLogSize int = 16 /* 65536 */

	ext2InodeSize uint16 = 128
)

// superblock is a structure holding the ext4 superblock
type superblock struct {
	inodeCount               uint32
	blockCount               uint32
	reservedBlocks           uint32
	freeBlocks               uint32
	freeInodes               uint32
	firstDataBlock           uint32
	blockSize                uint32
	logClusterSize           uint32
	blocksPerGroup           uint32
	clustersPerGroup         uint32
	inodesPerGroup           uint32
	mountTime                time.Time
	writeTime                time.Time
	mountCount               uint16
	mountsToFsck             uint16
	filesystemState          filesystemState
	errorBehaviour           errorBehaviour
	minorRevision            uint16
	lastCheck                time.Time
	checkInterval            uint32
	creatorOS                osFlag
	revisionLevel            uint32
	reservedBlocksDefaultUID uint16
	reservedBlocksDefaultGID uint16
	firstNonReservedInode    uint32
	inodeSize                uint16
	blockGroup               uint16
	features                 featureFlags
	uuid                     uuid.UUID
	volumeLabel              string
	lastMountedDirectory     string
	reservedGDTBlocks        uint16
	journalSuperblockUUID    uuid.UUID
	journalInode             uint32
	journalDeviceNumber      uint32
	orphanedInodesStart      uint32
	hashTreeSeed             [4]uint32
	hashVersion              hashAlgorithm
	journalBackupType        byte
	groupDescriptorSize      uint16
	defaultMountOptions      uint32
	firstMetablockGroup      uint32
	mkfsTime                 time.Time
	inodeMinBytes            uint16
	inodeReserveBytes        uint16
	miscFlags                miscFlags
	totalKBWritten           uint64
	backupSuperblockGroups   [2]uint32
	lostFoundInode           uint32
	checksumSeed             uint32
	// checksum is decoded for completeness; this engine never verifies it
	checksum uint32
}

func (sb *superblock) equal(a *superblock) bool {
	if (sb == nil && a != nil) || (a == nil && sb != nil) {
		return false
	}
	if sb == nil && a == nil {
		return true
	}
	return *sb == *a
}

// superblockFromBytes create a superblock struct from bytes
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < int(SuperblockSize) {
		return nil, fmt.Errorf("cannot read superblock from %d bytes, less than expected %d", len(b), SuperblockSize)
	}
	b = b[:SuperblockSize]

	// check the magic signature
	actualSignature := binary.LittleEndian.Uint16(b[0x38:0x3a])
	if actualSignature != superblockSignature {
		return nil, fmt.Errorf("erroneous signature at location 0x38 was %x instead of expected %x", actualSignature, superblockSignature)
	}

	sb := superblock{}

	// first read feature flags of various types
	compatFlags := binary.LittleEndian.Uint32(b[0x5c:0x60])
	incompatFlags := binary.LittleEndian.Uint32(b[0x60:0x64])
	roCompatFlags := binary.LittleEndian.Uint32(b[0x64:0x68])
	sb.features = parseFeatureFlags(compatFlags, incompatFlags, roCompatFlags)

	sb.inodeCount = binary.LittleEndian.Uint32(b[0x0:0x4])
	sb.blockCount = binary.LittleEndian.Uint32(b[0x4:0x8])
	sb.reservedBlocks = binary.LittleEndian.Uint32(b[0x8:0xc])
	sb.freeBlocks = binary.LittleEndian.Uint32(b[0xc:0x10])
	sb.freeInodes = binary.LittleEndian.Uint32(b[0x10:0x14])
	sb.firstDataBlock = binary.LittleEndian.Uint32(b[0x14:0x18])

	// the on-disk field holds log2(blocksize) - 10, so 0 means 1024
	logBlockSize := binary.LittleEndian.Uint32(b[0x18:0x1c])
	if int(logBlockSize) > maxBlockLogSize-minBlockLogSize {
		return nil, fmt.Errorf("invalid log block size %d, maximum %d", logBlockSize, maxBlockLogSize-minBlockLogSize)
	}
	sb.blockSize = uint32(1024) << logBlockSize
	sb.logClusterSize = binary.LittleEndian.Uint32(b[0x1c:0x20])

	sb.blocksPerGroup = binary.LittleEndian.Uint32(b[0x20:0x24])
	sb.clustersPerGroup = binary.LittleEndian.Uint32(b[0x24:0x28])
	sb.inodesPerGroup = binary.LittleEndian.Uint32(b[0x28:0x2c])
	if sb.blocksPerGroup == 0 || sb.inodesPerGroup == 0 {
		return nil, fmt.Errorf("invalid geometry: %d blocks and %d inodes per group", sb.blocksPerGroup, sb.inodesPerGroup)
	}

	sb.mountTime = time.Unix(int64(binary.LittleEndian.Uint32(b[0x2c:0x30])), 0)
	sb.writeTime = time.Unix(int64(binary.LittleEndian.Uint32(b[0x30:0x34])), 0)
	sb.mountCount = binary.LittleEndian.Uint16(b[0x34:0x36])
	sb.mountsToFsck = binary.LittleEndian.Uint16(b[0x36:0x38])

	sb.filesystemState = filesystemState(binary.LittleEndian.Uint16(b[0x3a:0x3c]))
	sb.errorBehaviour = errorBehaviour(binary.LittleEndian.Uint16(b[0x3c:0x3e]))

	sb.minorRevision = binary.LittleEndian.Uint16(b[0x3e:0x40])
	sb.lastCheck = time.Unix(int64(binary.LittleEndian.Uint32(b[0x40:0x44])), 0)
	sb.checkInterval = binary.LittleEndian.Uint32(b[0x44:0x48])

	sb.creatorOS = osFlag(binary.LittleEndian.Uint32(b[0x48:0x4c]))
	sb.revisionLevel = binary.LittleEndian.Uint32(b[0x4c:0x50])
	sb.reservedBlocksDefaultUID = binary.LittleEndian.Uint16(b[0x50:0x52])
	sb.reservedBlocksDefaultGID = binary.LittleEndian.Uint16(b[0x52:0x54])

	sb.firstNonReservedInode = binary.LittleEndian.Uint32(b[0x54:0x58])
	sb.inodeSize = binary.LittleEndian.Uint16(b[0x58:0x5a])
	if sb.revisionLevel == 0 {
		sb.inodeSize = ext2InodeSize
	}
	if sb.inodeSize < ext2InodeSize || uint32(sb.inodeSize) > sb.blockSize {
		return nil, fmt.Errorf("invalid inode size %d for block size %d", sb.inodeSize, sb.blockSize)
	}
	sb.blockGroup = binary.LittleEndian.Uint16(b[0x5a:0x5c])

	voluuid, err := uuid.FromBytes(b[0x68:0x78])
	if err != nil {
		return nil, fmt.Errorf("unable to read volume UUID: %v", err)
	}
	sb.uuid = voluuid
	sb.volumeLabel = strings.TrimRight(string(b[0x78:0x88]), "\x00")
	sb.lastMountedDirectory = strings.TrimRight(string(b[0x88:0xc8]), "\x00")

	sb.reservedGDTBlocks = binary.LittleEndian.Uint16(b[0xce:0xd0])

	journaluuid, err := uuid.FromBytes(b[0xd0:0xe0])
	if err != nil {
		return nil, fmt.Errorf("unable to read journal UUID: %v", err)
	}
	sb.journalSuperblockUUID = journaluuid
	sb.journalInode = binary.LittleEndian.Uint32(b[0xe0:0xe4])
	sb.journalDeviceNumber = binary.LittleEndian.Uint32(b[0xe4:0xe8])
	sb.orphanedInodesStart = binary.LittleEndian.Uint32(b[0xe8:0xec])

	for i := 0; i < 4; i++ {
		sb.hashTreeSeed[i] = binary.LittleEndian.Uint32(b[0xec+4*i : 0xf0+4*i])
	}
	sb.hashVersion = hashAlgorithm(b[0xfc])
	sb.journalBackupType = b[0xfd]

	sb.groupDescriptorSize = binary.LittleEndian.Uint16(b[0xfe:0x100])
	if sb.groupDescriptorSize == 0 {
		sb.groupDescriptorSize = uint16(groupDescriptorSize)
	}

	sb.defaultMountOptions = binary.LittleEndian.Uint32(b[0x100:0x104])
	sb.firstMetablockGroup = binary.LittleEndian.Uint32(b[0x104:0x108])
	sb.mkfsTime = time.Unix(int64(binary.LittleEndian.Uint32(b[0x108:0x10c])), 0)

	sb.inodeMinBytes = binary.LittleEndian.Uint16(b[0x15c:0x15e])
	sb.inodeReserveBytes = binary.LittleEndian.Uint16(b[0x15e:0x160])
	sb.miscFlags = parseMiscFlags(binary.LittleEndian.Uint32(b[0x160:0x164]))

	sb.totalKBWritten = binary.LittleEndian.Uint64(b[0x178:0x180])

	sb.backupSuperblockGroups[0] = binary.LittleEndian.Uint32(b[0x24c:0x250])
	sb.backupSuperblockGroups[1] = binary.LittleEndian.Uint32(b[0x250:0x254])
	sb.lostFoundInode = binary.LittleEndian.Uint32(b[0x268:0x26c])
	sb.checksumSeed = binary.LittleEndian.Uint32(b[0x270:0x274])

	sb.checksum = binary.LittleEndian.Uint32(b[0x3fc:0x400])

	return &sb, nil
}

// toBytes returns the superblock in its on-disk layout
func (sb *superblock) toBytes() []byte {
	b := make([]byte, SuperblockSize)

	binary.LittleEndian.PutUint16(b[0x38:0x3a], superblockSignature)
	compatFlags, incompatFlags, roCompatFlags := sb.features.toInts()
	binary.LittleEndian.PutUint32(b[0x5c:0x60], compatFlags)
	binary.LittleEndian.PutUint32(b[0x60:0x64], incompatFlags)
	binary.LittleEndian.PutUint32(b[0x64:0x68], roCompatFlags)

	binary.LittleEndian.PutUint32(b[0x0:0x4], sb.inodeCount)
	binary.LittleEndian.PutUint32(b[0x4:0x8], sb.blockCount)
	binary.LittleEndian.PutUint32(b[0x8:0xc], sb.reservedBlocks)
	binary.LittleEndian.PutUint32(b[0xc:0x10], sb.freeBlocks)
	binary.LittleEndian.PutUint32(b[0x10:0x14], sb.freeInodes)
	binary.LittleEndian.PutUint32(b[0x14:0x18], sb.firstDataBlock)

	var logBlockSize uint32
	for bs := sb.blockSize; bs > 1024; bs >>= 1 {
		logBlockSize++
	}
	binary.LittleEndian.PutUint32(b[0x18:0x1c], logBlockSize)
	binary.LittleEndian.PutUint32(b[0x1c:0x20], sb.logClusterSize)

	binary.LittleEndian.PutUint32(b[0x20:0x24], sb.blocksPerGroup)
	binary.LittleEndian.PutUint32(b[0x24:0x28], sb.clustersPerGroup)
	binary.LittleEndian.PutUint32(b[0x28:0x2c], sb.inodesPerGroup)
	binary.LittleEndian.PutUint32(b[0x2c:0x30], uint32(sb.mountTime.Unix()))
	binary.LittleEndian.PutUint32(b[0x30:0x34], uint32(sb.writeTime.Unix()))
	binary.LittleEndian.PutUint16(b[0x34:0x36], sb.mountCount)
	binary.LittleEndian.PutUint16(b[0x36:0x38], sb.mountsToFsck)

	binary.LittleEndian.PutUint16(b[0x3a:0x3c], uint16(sb.filesystemState))
	binary.LittleEndian.PutUint16(b[0x3c:0x3e], uint16(sb.errorBehaviour))

	binary.LittleEndian.PutUint16(b[0x3e:0x40], sb.minorRevision)
	binary.LittleEndian.PutUint32(b[0x40:0x44], uint32(sb.lastCheck.Unix()))
	binary.LittleEndian.PutUint32(b[0x44:0x48], sb.checkInterval)

	binary.LittleEndian.PutUint32(b[0x48:0x4c], uint32(sb.creatorOS))
	binary.LittleEndian.PutUint32(b[0x4c:0x50], sb.revisionLevel)
	binary.LittleEndian.PutUint16(b[0x50:0x52], sb.reservedBlocksDefaultUID)
	binary.LittleEndian.PutUint16(b[0x52:0x54], sb.reservedBlocksDefaultGID)

	binary.LittleEndian.PutUint32(b[0x54:0x58], sb.firstNonReservedInode)
	binary.LittleEndian.PutUint16(b[0x58:0x5a], sb.inodeSize)
	binary.LittleEndian.PutUint16(b[0x5a:0x5c], sb.blockGroup)

	copy(b[0x68:0x78], sb.uuid[:])
	copy(b[0x78:0x88], sb.volumeLabel)
	copy(b[0x88:0xc8], sb.lastMountedDirectory)

	binary.LittleEndian.PutUint16(b[0xce:0xd0], sb.reservedGDTBlocks)

	copy(b[0xd0:0xe0], sb.journalSuperblockUUID[:])
	binary.LittleEndian.PutUint32(b[0xe0:0xe4], sb.journalInode)
	binary.LittleEndian.PutUint32(b[0xe4:0xe8], sb.journalDeviceNumber)
	binary.LittleEndian.PutUint32(b[0xe8:0xec], sb.orphanedInodesStart)

	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(b[0xec+4*i:0xf0+4*i], sb.hashTreeSeed[i])
	}
	b[0xfc] = byte(sb.hashVersion)
	b[0xfd] = sb.journalBackupType
	binary.LittleEndian.PutUint16(b[0xfe:0x100], sb.groupDescriptorSize)

	binary.LittleEndian.PutUint32(b[0x100:0x104], sb.defaultMountOptions)
	binary.LittleEndian.PutUint32(b[0x104:0x108], sb.firstMetablockGroup)
	binary.LittleEndian.PutUint32(b[0x108:0x10c], uint32(sb.mkfsTime.Unix()))

	binary.LittleEndian.PutUint16(b[0x15c:0x15e], sb.inodeMinBytes)
	binary.LittleEndian.PutUint16(b[0x15e:0x160], sb.inodeReserveBytes)
	binary.LittleEndian.PutUint32(b[0x160:0x164], sb.miscFlags.toInt())

	binary.LittleEndian.PutUint64(b[0x178:0x180], sb.totalKBWritten)

	binary.LittleEndian.PutUint32(b[0x24c:0x250], sb.backupSuperblockGroups[0])
	binary.LittleEndian.PutUint32(b[0x250:0x254], sb.backupSuperblockGroups[1])
	binary.LittleEndian.PutUint32(b[0x268:0x26c], sb.lostFoundInode)
	binary.LittleEndian.PutUint32(b[0x270:0x274], sb.checksumSeed)

	binary.LittleEndian.PutUint32(b[0x3fc:0x400], sb.checksum)

	return b
}

// blockGroupCount how many block groups the volume geometry describes
func (sb *superblock) blockGroupCount() uint64 {
	return (uint64(sb.blockCount) + uint64(sb.blocksPerGroup) - 1) / uint64(sb.blocksPerGroup)
}

// gdtBlock the block where the group descriptor table begins. It is the block
// immediately after the one containing the superblock: block 2 for 1KiB
// blocks, where the superblock has a block of its own, block 1 otherwise.
func (sb *superblock) gdtBlock() uint64 {
	if sb.blockSize == 1024 {
		return 2
	}
	return 1
}

// isPowerOf reports whether n is b^k for some k >= 1
func isPowerOf(n, b uint64) bool {
	if n < b {
		return false
	}
	for n%b == 0 {
		n /= b
	}
	return n == 1
}

// groupHasSuperblock whether block group carries a copy of the superblock,
// the primary in group 0 or a backup elsewhere. With sparse_super set, copies
// live only in groups 0, 1 and powers of 3, 5 and 7; without it, every group
// has one.
func (sb *superblock) groupHasSuperblock(group uint64) bool {
	if !sb.features.sparseSuperblock {
		return true
	}
	if group <= 1 {
		return true
	}
	return isPowerOf(group, 3) || isPowerOf(group, 5) || isPowerOf(group, 7)
}
