// Package ext4 reads ext4 filesystem images. The engine is strictly
// read-only: it decodes the superblock, group descriptors, inode tables,
// allocation bitmaps, and per-inode extent trees of a volume image held in a
// single contiguous byte slice, and exposes the directory tree and file
// contents on top of them. It never performs I/O and never mutates the image.
package ext4

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/diskfs/go-ext4/filesystem"
	"github.com/diskfs/go-ext4/util/bitmap"
)

// SectorSize indicates what the sector size in bytes is
type SectorSize uint16

const (
	// SectorSize512 is a sector size of 512 bytes, used as the logical size for all ext4 filesystems
	SectorSize512  SectorSize = 512
	BootSectorSize SectorSize = 2 * SectorSize512
	SuperblockSize SectorSize = 2 * SectorSize512

	// fixed inodes
	rootInode             uint32 = 2
	firstNonReservedInode uint32 = 11 // traditional

	// maxSymlinkDepth how many symbolic links a path lookup will follow
	maxSymlinkDepth int = 40
)

// ErrIncompatibleFeatures the image sets incompatible-feature bits this
// engine cannot safely ignore
var ErrIncompatibleFeatures = errors.New("image has unsupported incompatible features")

var log = logrus.StandardLogger()

// FileSystem implements the read side of the filesystem.FileSystem interface
// on top of an in-memory volume image. Decoded structures reference the image
// slice and share its lifetime; the image is never copied or modified.
type FileSystem struct {
	image            []byte
	superblock       *superblock
	groupDescriptors *groupDescriptors
}

// Equal compare if two filesystems are equal
func (fs *FileSystem) Equal(a *FileSystem) bool {
	localMatch := len(fs.image) == len(a.image)
	sbMatch := fs.superblock.equal(a.superblock)
	gdMatch := fs.groupDescriptors.equal(a.groupDescriptors)
	return localMatch && sbMatch && gdMatch
}

// Read reads a filesystem from an ext4 volume image held in memory.
//
// The image must be the complete volume as a contiguous byte slice, beginning
// with the 1024-byte boot area that precedes the superblock. All returned
// structures, streams and file handles reference the image slice; the caller
// must keep it alive for as long as they are in use.
func Read(image []byte) (*FileSystem, error) {
	if int64(len(image)) < Ext4MinSize {
		return nil, fmt.Errorf("provided image is smaller than minimum allowed ext4 size %d", Ext4MinSize)
	}

	// the superblock is one minimal block, i.e. 2 sectors, at a fixed offset
	sb, err := superblockFromBytes(image[superblockOffset : superblockOffset+int(SuperblockSize)])
	if err != nil {
		return nil, fmt.Errorf("could not interpret superblock data: %v", err)
	}

	_, incompat, _ := sb.features.toInts()
	if unsupported := incompat &^ uint32(incompatFeaturesSupported); unsupported != 0 {
		return nil, fmt.Errorf("%w: 0x%x", ErrIncompatibleFeatures, unsupported)
	}

	// the geometry check is diagnostic only: images carrying blocks_count_hi
	// legitimately fail it
	if uint64(sb.blockSize)*uint64(sb.blockCount) != uint64(len(image)) {
		log.Debugf("image is %d bytes but superblock geometry describes %d blocks of %d bytes", len(image), sb.blockCount, sb.blockSize)
	}

	// now read the GDT, which starts at the block after the superblock
	groupCount := sb.blockGroupCount()
	gdtStart := sb.gdtBlock() * uint64(sb.blockSize)
	gdtSize := groupCount * uint64(sb.groupDescriptorSize)
	if gdtSize == 0 {
		return nil, errors.New("calculated Group Descriptor Table size is zero")
	}
	if gdtStart+gdtSize > uint64(len(image)) {
		return nil, fmt.Errorf("Group Descriptor Table of %d bytes at offset %d runs past the end of the %d byte image", gdtSize, gdtStart, len(image))
	}
	gdt, err := groupDescriptorsFromBytes(image[gdtStart:gdtStart+gdtSize], sb.groupDescriptorSize, groupCount)
	if err != nil {
		return nil, fmt.Errorf("could not interpret Group Descriptor Table data: %v", err)
	}

	return &FileSystem{
		image:            image,
		superblock:       sb,
		groupDescriptors: gdt,
	}, nil
}

// interface guard
var _ filesystem.FileSystem = (*FileSystem)(nil)

// Type returns the type code for the filesystem. Always returns filesystem.TypeExt4
func (fs *FileSystem) Type() filesystem.Type {
	return filesystem.TypeExt4
}

// Label read the volume label
func (fs *FileSystem) Label() string {
	if fs.superblock == nil {
		return ""
	}
	return fs.superblock.volumeLabel
}

// UUID read the volume UUID
func (fs *FileSystem) UUID() string {
	if fs.superblock == nil {
		return ""
	}
	return fs.superblock.uuid.String()
}

// BlockSize the size in bytes of a single block
func (fs *FileSystem) BlockSize() uint32 {
	return fs.superblock.blockSize
}

// InodeSize the size in bytes of a single on-disk inode record
func (fs *FileSystem) InodeSize() uint16 {
	return fs.superblock.inodeSize
}

// InodesPerGroup how many inodes each block group holds
func (fs *FileSystem) InodesPerGroup() uint32 {
	return fs.superblock.inodesPerGroup
}

// InodeCount how many inodes the volume holds in total
func (fs *FileSystem) InodeCount() uint32 {
	return fs.superblock.inodeCount
}

// BlockGroupCount how many block groups the volume holds
func (fs *FileSystem) BlockGroupCount() uint64 {
	return fs.superblock.blockGroupCount()
}

// FreeBlockCount how many blocks the group descriptors report free
func (fs *FileSystem) FreeBlockCount() uint64 {
	var count uint64
	for i := range fs.groupDescriptors.descriptors {
		count += uint64(fs.groupDescriptors.descriptors[i].freeBlocks)
	}
	return count
}

// FreeInodeCount how many inodes the group descriptors report free
func (fs *FileSystem) FreeInodeCount() uint64 {
	var count uint64
	for i := range fs.groupDescriptors.descriptors {
		count += uint64(fs.groupDescriptors.descriptors[i].freeInodes)
	}
	return count
}

// HasSuperblock whether the given block group carries a copy of the
// superblock, primary or backup
func (fs *FileSystem) HasSuperblock(group uint64) bool {
	return group < fs.superblock.blockGroupCount() && fs.superblock.groupHasSuperblock(group)
}

// groupDescriptor look up a group descriptor by block group number
func (fs *FileSystem) groupDescriptor(group uint64) (*groupDescriptor, bool) {
	if group >= uint64(len(fs.groupDescriptors.descriptors)) {
		return nil, false
	}
	return &fs.groupDescriptors.descriptors[group], true
}

// inodeBitmap the allocation bitmap for a group's inodes, or nil when the
// bitmap location points outside the image
func (fs *FileSystem) inodeBitmap(gd *groupDescriptor) *bitmap.Bitmap {
	blocksize := uint64(fs.superblock.blockSize)
	start := uint64(gd.inodeBitmapBlock) * blocksize
	length := (uint64(fs.superblock.inodesPerGroup) + 7) / 8
	if start+length > uint64(len(fs.image)) {
		return nil
	}
	return bitmap.FromBytes(fs.image[start : start+length])
}

// readInode locate and decode an inode record by number. Inodes are numbered
// from 1; the root directory is always inode 2. The lookup is speculative:
// out-of-range numbers, a clear allocation bit, and undecodable records all
// come back as a plain "not present" rather than distinct errors.
func (fs *FileSystem) readInode(number uint32) (*inode, bool) {
	if number < 1 {
		return nil, false
	}
	index := uint64(number - 1)
	group := index / uint64(fs.superblock.inodesPerGroup)
	slot := index % uint64(fs.superblock.inodesPerGroup)

	gd, ok := fs.groupDescriptor(group)
	if !ok {
		return nil, false
	}

	bm := fs.inodeBitmap(gd)
	if bm == nil || !bm.IsSet(uint(slot)) {
		return nil, false
	}

	inodeSize := uint64(fs.superblock.inodeSize)
	offset := uint64(gd.inodeTableBlock)*uint64(fs.superblock.blockSize) + slot*inodeSize
	if offset+inodeSize > uint64(len(fs.image)) {
		return nil, false
	}
	in, err := inodeFromBytes(fs.image[offset:offset+inodeSize], number)
	if err != nil {
		return nil, false
	}
	return in, true
}

// readDirectory the entries of a directory inode in physical order,
// including the "." and ".." entries and any unused slots
func (fs *FileSystem) readDirectory(in *inode) ([]*directoryEntry, error) {
	if in.fileType != fileTypeDirectory {
		return nil, fmt.Errorf("inode %d is not a directory", in.number)
	}
	contents, err := fs.contents(in)
	if err != nil {
		return nil, err
	}
	stream, ok := contents.(*DirEntryStream)
	if !ok {
		return nil, fmt.Errorf("inode %d did not yield directory entries", in.number)
	}
	var entries []*directoryEntry
	for {
		de, ok := stream.Next()
		if !ok {
			return entries, nil
		}
		entries = append(entries, de)
	}
}

// splitPath break a slash-separated path into its components, with "" "." and
// "/" all naming the root
func splitPath(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// resolveEntry walk the directory tree from the root to the named file and
// return its directory entry. Symbolic links along the way are not followed.
// The root itself has no directory entry, so it is returned as a synthesized
// entry pointing at inode 2.
func (fs *FileSystem) resolveEntry(p string) (*directoryEntry, error) {
	parts := splitPath(p)
	current := &directoryEntry{
		inode:    rootInode,
		recLen:   directoryEntryLength("/"),
		filename: "/",
		fileType: dirFileTypeDirectory,
	}
	for _, part := range parts {
		in, ok := fs.readInode(current.inode)
		if !ok {
			return nil, fmt.Errorf("could not read directory inode %d", current.inode)
		}
		entries, err := fs.readDirectory(in)
		if err != nil {
			return nil, fmt.Errorf("could not read directory %s: %v", current.filename, err)
		}
		var found *directoryEntry
		for _, e := range entries {
			if e.inode != 0 && e.filename == part {
				found = e
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("%s: %w", p, iofs.ErrNotExist)
		}
		current = found
	}
	return current, nil
}

// directoryEntryInfo is the fs.DirEntry and fs.FileInfo for one entry
type directoryEntryInfo struct {
	*directoryEntry
	*inode
}

// DirEntry is the fs.DirEntry implementation returned by ReadDir. It also
// carries the entry's inode number, which external tree walkers need to break
// the cycles that "." and ".." introduce.
type DirEntry interface {
	iofs.DirEntry
	InodeNumber() uint32
}

var _ DirEntry = (*directoryEntryInfo)(nil)

func (de *directoryEntryInfo) Name() string { return de.filename }

func (de *directoryEntryInfo) IsDir() bool { return de.inode.fileType == fileTypeDirectory }

func (de *directoryEntryInfo) Type() iofs.FileMode { return de.Mode().Type() }

func (de *directoryEntryInfo) Info() (iofs.FileInfo, error) { return de, nil }

func (de *directoryEntryInfo) Size() int64 { return int64(de.size) }

func (de *directoryEntryInfo) Mode() iofs.FileMode { return de.permissionsToMode() }

func (de *directoryEntryInfo) ModTime() time.Time { return de.modifyTime }

func (de *directoryEntryInfo) Sys() any { return nil }

// InodeNumber the number of the inode this entry points at
func (de *directoryEntryInfo) InodeNumber() uint32 { return de.directoryEntry.inode }

// ReadDir return the contents of a given directory in a given filesystem.
//
// Returns a slice of fs.DirEntry in the physical order of the directory's
// blocks, which is not necessarily lexical order. The "." and ".." entries
// and unused slots are elided. Every returned entry also implements
// ext4.DirEntry.
//
// Will return an error if the directory does not exist or is a regular file and not a directory
func (fs *FileSystem) ReadDir(p string) ([]iofs.DirEntry, error) {
	entry, err := fs.resolveEntry(p)
	if err != nil {
		return nil, err
	}
	in, ok := fs.readInode(entry.inode)
	if !ok {
		return nil, fmt.Errorf("could not read inode %d for directory %s", entry.inode, p)
	}
	entries, err := fs.readDirectory(in)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %v", p, err)
	}
	ret := make([]iofs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.inode == 0 || e.filename == "." || e.filename == ".." || e.filename == "" {
			continue
		}
		ein, ok := fs.readInode(e.inode)
		if !ok {
			// the entry points at an unallocated inode; nothing to show
			continue
		}
		ret = append(ret, &directoryEntryInfo{
			directoryEntry: e,
			inode:          ein,
		})
	}
	return ret, nil
}

// Open returns an fs.File from which you can read the contents of a file.
// Symbolic links, including chains of them, are followed.
func (fs *FileSystem) Open(p string) (iofs.File, error) {
	return fs.openFile(p, 0)
}

// OpenFile returns a filesystem.File from which you can read the contents of
// a file. The engine is read-only, so any flag requesting write access is
// rejected.
func (fs *FileSystem) OpenFile(p string, flag int) (filesystem.File, error) {
	// os.O_RDONLY is 0, so any set bit asks for more than reading
	if flag != 0 {
		return nil, filesystem.ErrReadonlyFilesystem
	}
	return fs.openFile(p, 0)
}

func (fs *FileSystem) openFile(p string, depth int) (*File, error) {
	entry, err := fs.resolveEntry(p)
	if err != nil {
		return nil, err
	}
	in, ok := fs.readInode(entry.inode)
	if !ok {
		return nil, fmt.Errorf("could not read inode %d for %s", entry.inode, p)
	}

	// if a symlink, read the target, rather than the inode itself, which does not point to anything
	if in.fileType == fileTypeSymbolicLink {
		if depth >= maxSymlinkDepth {
			return nil, fmt.Errorf("too many levels of symbolic links resolving %s", p)
		}
		linkTarget, err := fs.readlinkInode(in)
		if err != nil {
			return nil, err
		}
		if !path.IsAbs(linkTarget) {
			linkTarget = path.Clean(path.Join(path.Dir(p), linkTarget))
		}
		return fs.openFile(linkTarget, depth+1)
	}
	if in.fileType == fileTypeDirectory {
		return nil, fmt.Errorf("cannot open directory %s as a file", p)
	}
	if in.fileType != fileTypeRegularFile {
		return nil, fmt.Errorf("cannot open special file %s", p)
	}

	// when we open a file, we load the inode but also all of the extents
	exts, err := fs.extents(in)
	if err != nil {
		return nil, fmt.Errorf("could not read extent tree for inode %d: %v", in.number, err)
	}
	return &File{
		directoryEntry: entry,
		inode:          in,
		filesystem:     fs,
		extents:        exts,
	}, nil
}

// ReadFile implements ReadFileFS to read an entire file into memory
func (fs *FileSystem) ReadFile(name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Stat return fs.FileInfo about a specific file path. Symbolic links are not
// followed; the info describes the link itself.
func (fs *FileSystem) Stat(p string) (iofs.FileInfo, error) {
	entry, err := fs.resolveEntry(p)
	if err != nil {
		return nil, err
	}
	in, ok := fs.readInode(entry.inode)
	if !ok {
		return nil, fmt.Errorf("could not read inode %d for %s", entry.inode, p)
	}
	return &directoryEntryInfo{
		directoryEntry: entry,
		inode:          in,
	}, nil
}

// Readlink return the target of the symbolic link at the given path
func (fs *FileSystem) Readlink(p string) (string, error) {
	entry, err := fs.resolveEntry(p)
	if err != nil {
		return "", err
	}
	in, ok := fs.readInode(entry.inode)
	if !ok {
		return "", fmt.Errorf("could not read inode %d for %s", entry.inode, p)
	}
	if in.fileType != fileTypeSymbolicLink {
		return "", fmt.Errorf("%s is not a symbolic link", p)
	}
	return fs.readlinkInode(in)
}

func (fs *FileSystem) readlinkInode(in *inode) (string, error) {
	contents, err := fs.contents(in)
	if err != nil {
		return "", fmt.Errorf("could not read link target for inode %d: %v", in.number, err)
	}
	target, ok := contents.(SymlinkTarget)
	if !ok {
		return "", fmt.Errorf("inode %d did not yield a link target", in.number)
	}
	return string(target), nil
}

// interface guards for io/fs integration
var (
	_ iofs.FS         = (*FileSystem)(nil)
	_ iofs.ReadDirFS  = (*FileSystem)(nil)
	_ iofs.ReadFileFS = (*FileSystem)(nil)
	_ iofs.StatFS     = (*FileSystem)(nil)
)
