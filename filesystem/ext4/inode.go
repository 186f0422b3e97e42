package ext4

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

type inodeFlag uint32
type fileType uint16
type dirFileType uint8

func (i inodeFlag) included(a uint32) bool {
	return a&uint32(i) == uint32(i)
}

const (
	// minInodeSize is ext2 + the extra min 32 bytes in ext4
	minInodeExtraSize uint16 = 32
	minInodeSize      uint16 = ext2InodeSize + minInodeExtraSize

	// inodeBlockRegionSize the 60-byte block-pointer area, 15 32-bit words
	inodeBlockRegionSize int = 60

	inodeFlagSecureDeletion          inodeFlag = 0x1
	inodeFlagPreserveForUndeletion   inodeFlag = 0x2
	inodeFlagCompressed              inodeFlag = 0x4
	inodeFlagSynchronous             inodeFlag = 0x8
	inodeFlagImmutable               inodeFlag = 0x10
	inodeFlagAppendOnly              inodeFlag = 0x20
	inodeFlagNoDump                  inodeFlag = 0x40
	inodeFlagNoAccessTimeUpdate      inodeFlag = 0x80
	inodeFlagDirtyCompressed         inodeFlag = 0x100
	inodeFlagCompressedClusters      inodeFlag = 0x200
	inodeFlagNoCompress              inodeFlag = 0x400
	inodeFlagEncryptedInode          inodeFlag = 0x800
	inodeFlagHashedDirectoryIndexes  inodeFlag = 0x1000
	inodeFlagAFSMagicDirectory       inodeFlag = 0x2000
	inodeFlagAlwaysJournal           inodeFlag = 0x4000
	inodeFlagNoMergeTail             inodeFlag = 0x8000
	inodeFlagSyncDirectoryData       inodeFlag = 0x10000
	inodeFlagTopDirectory            inodeFlag = 0x20000
	inodeFlagHugeFile                inodeFlag = 0x40000
	inodeFlagUsesExtents             inodeFlag = 0x80000
	inodeFlagExtendedAttributes      inodeFlag = 0x200000
	inodeFlagBlocksPastEOF           inodeFlag = 0x400000
	inodeFlagSnapshot                inodeFlag = 0x1000000
	inodeFlagDeletingSnapshot        inodeFlag = 0x4000000
	inodeFlagCompletedSnapshotShrink inodeFlag = 0x8000000
	inodeFlagInlineData              inodeFlag = 0x10000000
	inodeFlagInheritProject          inodeFlag = 0x20000000

	fileTypeFifo            fileType = 0x1000
	fileTypeCharacterDevice fileType = 0x2000
	fileTypeDirectory       fileType = 0x4000
	fileTypeBlockDevice     fileType = 0x6000
	fileTypeRegularFile     fileType = 0x8000
	fileTypeSymbolicLink    fileType = 0xA000
	fileTypeSocket          fileType = 0xC000

	dirFileTypeUnknown   dirFileType = 0x0
	dirFileTypeRegular   dirFileType = 0x1
	dirFileTypeDirectory dirFileType = 0x2
	dirFileTypeCharacter dirFileType = 0x3
	dirFileTypeBlock     dirFileType = 0x4
	dirFileTypeFifo      dirFileType = 0x5
	dirFileTypeSocket    dirFileType = 0x6
	dirFileTypeSymlink   dirFileType = 0x7

	filePermissionsOwnerExecute uint16 = 0x40
	filePermissionsOwnerWrite   uint16 = 0x80
	filePermissionsOwnerRead    uint16 = 0x100
	filePermissionsGroupExecute uint16 = 0x8
	filePermissionsGroupWrite   uint16 = 0x10
	filePermissionsGroupRead    uint16 = 0x20
	filePermissionsOtherExecute uint16 = 0x1
	filePermissionsOtherWrite   uint16 = 0x2
	filePermissionsOtherRead    uint16 = 0x4
	filePermissionsSticky       uint16 = 0x200
	filePermissionsGroupSetgid  uint16 = 0x400
	filePermissionsOwnerSetuid  uint16 = 0x800
)

// inodeFlags is a structure holding the flags for an inode
type inodeFlags struct {
	secureDeletion          bool
	preserveForUndeletion   bool
	compressed              bool
	synchronous             bool
	immutable               bool
	appendOnly              bool
	noDump                  bool
	noAccessTimeUpdate      bool
	dirtyCompressed         bool
	compressedClusters      bool
	noCompress              bool
	encryptedInode          bool
	hashedDirectoryIndexes  bool
	AFSMagicDirectory       bool
	alwaysJournal           bool
	noMergeTail             bool
	syncDirectoryData       bool
	topDirectory            bool
	hugeFile                bool
	usesExtents             bool
	extendedAttributes      bool
	blocksPastEOF           bool
	snapshot                bool
	deletingSnapshot        bool
	completedSnapshotShrink bool
	inlineData              bool
	inheritProject          bool
}

type filePermissions struct {
	read    bool
	write   bool
	execute bool
	special bool
}

// inode is a structure holding the data about an inode
type inode struct {
	number                 uint32
	permissionsOther       filePermissions
	permissionsGroup       filePermissions
	permissionsOwner       filePermissions
	fileType               fileType
	owner                  uint32
	group                  uint32
	size                   uint64
	accessTime             time.Time
	changeTime             time.Time
	modifyTime             time.Time
	deletionTime           uint32
	hardLinks              uint16
	blocks                 uint64
	flags                  inodeFlags
	version                uint32
	generation             uint32
	extendedAttributeBlock uint32
	// block is the raw 60-byte block-pointer region. When flags.usesExtents
	// is set it holds the root node of the extent tree; for short symlinks
	// it holds the literal target.
	block [inodeBlockRegionSize]byte
	// linkTarget is set when the target is stored inline in the block region
	linkTarget string
}

func (in *inode) equal(a *inode) bool {
	if (in == nil && a != nil) || (a == nil && in != nil) {
		return false
	}
	if in == nil && a == nil {
		return true
	}
	return *in == *a
}

// inodeFromBytes create an inode struct from bytes
func inodeFromBytes(b []byte, number uint32) (*inode, error) {
	// safely make sure it is the min size
	if len(b) < int(ext2InodeSize) {
		return nil, fmt.Errorf("inode data too short: %d bytes, must be min %d bytes", len(b), ext2InodeSize)
	}

	mode := binary.LittleEndian.Uint16(b[0x0:0x2])

	owner := make([]byte, 4)
	group := make([]byte, 4)
	fileSize := make([]byte, 8)
	blocks := make([]byte, 8)

	copy(owner[0:2], b[0x2:0x4])
	copy(owner[2:4], b[0x78:0x7a])
	copy(group[0:2], b[0x18:0x1a])
	copy(group[2:4], b[0x7a:0x7c])
	copy(fileSize[0:4], b[0x4:0x8])
	copy(fileSize[4:8], b[0x6c:0x70])
	copy(blocks[0:4], b[0x1c:0x20])
	copy(blocks[4:6], b[0x74:0x76])

	flags := parseInodeFlags(binary.LittleEndian.Uint32(b[0x20:0x24]))

	in := inode{
		number:                 number,
		permissionsGroup:       parseGroupPermissions(mode),
		permissionsOwner:       parseOwnerPermissions(mode),
		permissionsOther:       parseOtherPermissions(mode),
		fileType:               parseFileType(mode),
		owner:                  binary.LittleEndian.Uint32(owner),
		group:                  binary.LittleEndian.Uint32(group),
		size:                   binary.LittleEndian.Uint64(fileSize),
		accessTime:             time.Unix(int64(binary.LittleEndian.Uint32(b[0x8:0xc])), 0),
		changeTime:             time.Unix(int64(binary.LittleEndian.Uint32(b[0xc:0x10])), 0),
		modifyTime:             time.Unix(int64(binary.LittleEndian.Uint32(b[0x10:0x14])), 0),
		deletionTime:           binary.LittleEndian.Uint32(b[0x14:0x18]),
		hardLinks:              binary.LittleEndian.Uint16(b[0x1a:0x1c]),
		blocks:                 binary.LittleEndian.Uint64(blocks),
		flags:                  flags,
		version:                binary.LittleEndian.Uint32(b[0x24:0x28]),
		generation:             binary.LittleEndian.Uint32(b[0x64:0x68]),
		extendedAttributeBlock: binary.LittleEndian.Uint32(b[0x68:0x6c]),
	}
	copy(in.block[:], b[0x28:0x64])

	// short symlinks keep the target right in the block region instead of
	// growing an extent tree
	if in.fileType == fileTypeSymbolicLink && in.size <= uint64(inodeBlockRegionSize) {
		in.linkTarget = string(in.block[:in.size])
	}

	return &in, nil
}

// toBytes returns an inode in its on-disk layout, sized to inodeSize
func (in *inode) toBytes(inodeSize uint16) []byte {
	b := make([]byte, inodeSize)

	mode := in.permissionsGroup.toGroupInt() | in.permissionsOther.toOtherInt() | in.permissionsOwner.toOwnerInt() | uint16(in.fileType)
	binary.LittleEndian.PutUint16(b[0x0:0x2], mode)

	owner := make([]byte, 4)
	group := make([]byte, 4)
	fileSize := make([]byte, 8)
	blocks := make([]byte, 8)
	binary.LittleEndian.PutUint32(owner, in.owner)
	binary.LittleEndian.PutUint32(group, in.group)
	binary.LittleEndian.PutUint64(fileSize, in.size)
	binary.LittleEndian.PutUint64(blocks, in.blocks)

	copy(b[0x2:0x4], owner[0:2])
	copy(b[0x4:0x8], fileSize[0:4])
	binary.LittleEndian.PutUint32(b[0x8:0xc], uint32(in.accessTime.Unix()))
	binary.LittleEndian.PutUint32(b[0xc:0x10], uint32(in.changeTime.Unix()))
	binary.LittleEndian.PutUint32(b[0x10:0x14], uint32(in.modifyTime.Unix()))
	binary.LittleEndian.PutUint32(b[0x14:0x18], in.deletionTime)
	copy(b[0x18:0x1a], group[0:2])
	binary.LittleEndian.PutUint16(b[0x1a:0x1c], in.hardLinks)
	copy(b[0x1c:0x20], blocks[0:4])
	binary.LittleEndian.PutUint32(b[0x20:0x24], in.flags.toInt())
	binary.LittleEndian.PutUint32(b[0x24:0x28], in.version)
	copy(b[0x28:0x64], in.block[:])
	binary.LittleEndian.PutUint32(b[0x64:0x68], in.generation)
	binary.LittleEndian.PutUint32(b[0x68:0x6c], in.extendedAttributeBlock)
	copy(b[0x6c:0x70], fileSize[4:8])
	copy(b[0x74:0x76], blocks[4:6])
	copy(b[0x78:0x7a], owner[2:4])
	copy(b[0x7a:0x7c], group[2:4])
	if inodeSize > ext2InodeSize {
		binary.LittleEndian.PutUint16(b[0x80:0x82], minInodeExtraSize)
	}

	return b
}

func (in *inode) permissionsToMode() os.FileMode {
	var mode os.FileMode

	switch in.fileType {
	case fileTypeRegularFile:
		// no extra bits for regular files
	case fileTypeDirectory:
		mode |= os.ModeDir
	case fileTypeSymbolicLink:
		mode |= os.ModeSymlink
	case fileTypeCharacterDevice:
		mode |= os.ModeDevice | os.ModeCharDevice
	case fileTypeBlockDevice:
		mode |= os.ModeDevice
	case fileTypeFifo:
		mode |= os.ModeNamedPipe
	case fileTypeSocket:
		mode |= os.ModeSocket
	}

	if in.permissionsOwner.read {
		mode |= 0o400
	}
	if in.permissionsOwner.write {
		mode |= 0o200
	}
	if in.permissionsOwner.execute {
		mode |= 0o100
	}
	if in.permissionsOwner.special {
		mode |= os.ModeSetuid
	}
	if in.permissionsGroup.read {
		mode |= 0o040
	}
	if in.permissionsGroup.write {
		mode |= 0o020
	}
	if in.permissionsGroup.execute {
		mode |= 0o010
	}
	if in.permissionsGroup.special {
		mode |= os.ModeSetgid
	}
	if in.permissionsOther.read {
		mode |= 0o004
	}
	if in.permissionsOther.write {
		mode |= 0o002
	}
	if in.permissionsOther.execute {
		mode |= 0o001
	}
	if in.permissionsOther.special {
		mode |= os.ModeSticky
	}

	return mode
}

// dirFileType the directory-entry file_type byte matching this inode's type
func (in *inode) dirFileType() dirFileType {
	switch in.fileType {
	case fileTypeRegularFile:
		return dirFileTypeRegular
	case fileTypeDirectory:
		return dirFileTypeDirectory
	case fileTypeCharacterDevice:
		return dirFileTypeCharacter
	case fileTypeBlockDevice:
		return dirFileTypeBlock
	case fileTypeFifo:
		return dirFileTypeFifo
	case fileTypeSocket:
		return dirFileTypeSocket
	case fileTypeSymbolicLink:
		return dirFileTypeSymlink
	default:
		return dirFileTypeUnknown
	}
}

func parseOwnerPermissions(mode uint16) filePermissions {
	return filePermissions{
		execute: mode&filePermissionsOwnerExecute == filePermissionsOwnerExecute,
		write:   mode&filePermissionsOwnerWrite == filePermissionsOwnerWrite,
		read:    mode&filePermissionsOwnerRead == filePermissionsOwnerRead,
		special: mode&filePermissionsOwnerSetuid == filePermissionsOwnerSetuid,
	}
}

func parseGroupPermissions(mode uint16) filePermissions {
	return filePermissions{
		execute: mode&filePermissionsGroupExecute == filePermissionsGroupExecute,
		write:   mode&filePermissionsGroupWrite == filePermissionsGroupWrite,
		read:    mode&filePermissionsGroupRead == filePermissionsGroupRead,
		special: mode&filePermissionsGroupSetgid == filePermissionsGroupSetgid,
	}
}

func parseOtherPermissions(mode uint16) filePermissions {
	return filePermissions{
		execute: mode&filePermissionsOtherExecute == filePermissionsOtherExecute,
		write:   mode&filePermissionsOtherWrite == filePermissionsOtherWrite,
		read:    mode&filePermissionsOtherRead == filePermissionsOtherRead,
		special: mode&filePermissionsSticky == filePermissionsSticky,
	}
}

func (fp *filePermissions) toOwnerInt() uint16 {
	var mode uint16
	if fp.execute {
		mode |= filePermissionsOwnerExecute
	}
	if fp.write {
		mode |= filePermissionsOwnerWrite
	}
	if fp.read {
		mode |= filePermissionsOwnerRead
	}
	if fp.special {
		mode |= filePermissionsOwnerSetuid
	}
	return mode
}

func (fp *filePermissions) toOtherInt() uint16 {
	var mode uint16
	if fp.execute {
		mode |= filePermissionsOtherExecute
	}
	if fp.write {
		mode |= filePermissionsOtherWrite
	}
	if fp.read {
		mode |= filePermissionsOtherRead
	}
	if fp.special {
		mode |= filePermissionsSticky
	}
	return mode
}

func (fp *filePermissions) toGroupInt() uint16 {
	var mode uint16
	if fp.execute {
		mode |= filePermissionsGroupExecute
	}
	if fp.write {
		mode |= filePermissionsGroupWrite
	}
	if fp.read {
		mode |= filePermissionsGroupRead
	}
	if fp.special {
		mode |= filePermissionsGroupSetgid
	}
	return mode
}

// parseFileType from the uint16 mode. The mode is built of bottom 12 bits
// being "any of" several permissions, and thus resolved via AND,
// while the top 4 bits are "only one of" several types, and thus resolved via just equal.
func parseFileType(mode uint16) fileType {
	return fileType(mode & 0xF000)
}

func parseInodeFlags(flags uint32) inodeFlags {
	return inodeFlags{
		secureDeletion:          inodeFlagSecureDeletion.included(flags),
		preserveForUndeletion:   inodeFlagPreserveForUndeletion.included(flags),
		compressed:              inodeFlagCompressed.included(flags),
		synchronous:             inodeFlagSynchronous.included(flags),
		immutable:               inodeFlagImmutable.included(flags),
		appendOnly:              inodeFlagAppendOnly.included(flags),
		noDump:                  inodeFlagNoDump.included(flags),
		noAccessTimeUpdate:      inodeFlagNoAccessTimeUpdate.included(flags),
		dirtyCompressed:         inodeFlagDirtyCompressed.included(flags),
		compressedClusters:      inodeFlagCompressedClusters.included(flags),
		noCompress:              inodeFlagNoCompress.included(flags),
		encryptedInode:          inodeFlagEncryptedInode.included(flags),
		hashedDirectoryIndexes:  inodeFlagHashedDirectoryIndexes.included(flags),
		AFSMagicDirectory:       inodeFlagAFSMagicDirectory.included(flags),
		alwaysJournal:           inodeFlagAlwaysJournal.included(flags),
		noMergeTail:             inodeFlagNoMergeTail.included(flags),
		syncDirectoryData:       inodeFlagSyncDirectoryData.included(flags),
		topDirectory:            inodeFlagTopDirectory.included(flags),
		hugeFile:                inodeFlagHugeFile.included(flags),
		usesExtents:             inodeFlagUsesExtents.included(flags),
		extendedAttributes:      inodeFlagExtendedAttributes.included(flags),
		blocksPastEOF:           inodeFlagBlocksPastEOF.included(flags),
		snapshot:                inodeFlagSnapshot.included(flags),
		deletingSnapshot:        inodeFlagDeletingSnapshot.included(flags),
		completedSnapshotShrink: inodeFlagCompletedSnapshotShrink.included(flags),
		inlineData:              inodeFlagInlineData.included(flags),
		inheritProject:          inodeFlagInheritProject.included(flags),
	}
}

func (i *inodeFlags) toInt() uint32 {
	var flags uint32

	if i.secureDeletion {
		flags |= uint32(inodeFlagSecureDeletion)
	}
	if i.preserveForUndeletion {
		flags |= uint32(inodeFlagPreserveForUndeletion)
	}
	if i.compressed {
		flags |= uint32(inodeFlagCompressed)
	}
	if i.synchronous {
		flags |= uint32(inodeFlagSynchronous)
	}
	if i.immutable {
		flags |= uint32(inodeFlagImmutable)
	}
	if i.appendOnly {
		flags |= uint32(inodeFlagAppendOnly)
	}
	if i.noDump {
		flags |= uint32(inodeFlagNoDump)
	}
	if i.noAccessTimeUpdate {
		flags |= uint32(inodeFlagNoAccessTimeUpdate)
	}
	if i.dirtyCompressed {
		flags |= uint32(inodeFlagDirtyCompressed)
	}
	if i.compressedClusters {
		flags |= uint32(inodeFlagCompressedClusters)
	}
	if i.noCompress {
		flags |= uint32(inodeFlagNoCompress)
	}
	if i.encryptedInode {
		flags |= uint32(inodeFlagEncryptedInode)
	}
	if i.hashedDirectoryIndexes {
		flags |= uint32(inodeFlagHashedDirectoryIndexes)
	}
	if i.AFSMagicDirectory {
		flags |= uint32(inodeFlagAFSMagicDirectory)
	}
	if i.alwaysJournal {
		flags |= uint32(inodeFlagAlwaysJournal)
	}
	if i.noMergeTail {
		flags |= uint32(inodeFlagNoMergeTail)
	}
	if i.syncDirectoryData {
		flags |= uint32(inodeFlagSyncDirectoryData)
	}
	if i.topDirectory {
		flags |= uint32(inodeFlagTopDirectory)
	}
	if i.hugeFile {
		flags |= uint32(inodeFlagHugeFile)
	}
	if i.usesExtents {
		flags |= uint32(inodeFlagUsesExtents)
	}
	if i.extendedAttributes {
		flags |= uint32(inodeFlagExtendedAttributes)
	}
	if i.blocksPastEOF {
		flags |= uint32(inodeFlagBlocksPastEOF)
	}
	if i.snapshot {
		flags |= uint32(inodeFlagSnapshot)
	}
	if i.deletingSnapshot {
		flags |= uint32(inodeFlagDeletingSnapshot)
	}
	if i.completedSnapshotShrink {
		flags |= uint32(inodeFlagCompletedSnapshotShrink)
	}
	if i.inlineData {
		flags |= uint32(inodeFlagInlineData)
	}
	if i.inheritProject {
		flags |= uint32(inodeFlagInheritProject)
	}

	return flags
}
