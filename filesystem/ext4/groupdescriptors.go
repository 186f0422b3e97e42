package ext4

import (
	"encoding/binary"
	"fmt"
)

type blockGroupFlag uint16

const (
	groupDescriptorSize                    int            = 32
	groupDescriptorSize64Bit               int            = 64
	blockGroupFlagInodesUninitialized      blockGroupFlag = 0x1
	blockGroupFlagBlockBitmapUninitialized blockGroupFlag = 0x2
	blockGroupFlagInodeTableZeroed         blockGroupFlag = 0x4
)

type blockGroupFlags struct {
	inodesUninitialized      bool
	blockBitmapUninitialized bool
	inodeTableZeroed         bool
}

// groupDescriptors is a structure holding all of the group descriptors for all of the block groups
type groupDescriptors struct {
	descriptors []groupDescriptor
}

// groupDescriptor is a structure holding the data about a single block group.
// Only the low 32 bits of the location fields are kept; volumes whose
// metadata sits above 2^32 blocks are out of scope for this engine.
type groupDescriptor struct {
	number                     uint32
	blockBitmapBlock           uint32
	inodeBitmapBlock           uint32
	inodeTableBlock            uint32
	freeBlocks                 uint16
	freeInodes                 uint16
	usedDirectories            uint16
	flags                      blockGroupFlags
	snapshotExcludeBitmapBlock uint32
	blockBitmapChecksum        uint16
	inodeBitmapChecksum        uint16
	unusedInodes               uint16
	checksum                   uint16
}

func (gds *groupDescriptors) equal(a *groupDescriptors) bool {
	if (gds == nil && a != nil) || (a == nil && gds != nil) {
		return false
	}
	if gds == nil && a == nil {
		return true
	}
	if len(gds.descriptors) != len(a.descriptors) {
		return false
	}
	for i := range gds.descriptors {
		if gds.descriptors[i] != a.descriptors[i] {
			return false
		}
	}
	return true
}

// groupDescriptorsFromBytes create a groupDescriptors struct from bytes
func groupDescriptorsFromBytes(b []byte, gdSize uint16, count uint64) (*groupDescriptors, error) {
	if gdSize < uint16(groupDescriptorSize) {
		return nil, fmt.Errorf("invalid group descriptor size %d, must be at least %d", gdSize, groupDescriptorSize)
	}
	if uint64(len(b)) < count*uint64(gdSize) {
		return nil, fmt.Errorf("group descriptor table of %d bytes cannot hold %d descriptors of %d bytes", len(b), count, gdSize)
	}
	gds := groupDescriptors{
		descriptors: make([]groupDescriptor, 0, count),
	}
	for i := uint64(0); i < count; i++ {
		start := i * uint64(gdSize)
		gd := groupDescriptorFromBytes(b[start:start+uint64(gdSize)], uint32(i))
		gds.descriptors = append(gds.descriptors, *gd)
	}

	return &gds, nil
}

// toBytes returns the group descriptor table in its on-disk layout
func (gds *groupDescriptors) toBytes(gdSize uint16) []byte {
	b := make([]byte, 0, int(gdSize)*len(gds.descriptors))
	for i := range gds.descriptors {
		b = append(b, gds.descriptors[i].toBytes(gdSize)...)
	}

	return b
}

// groupDescriptorFromBytes create a groupDescriptor struct from bytes. The
// caller guarantees at least groupDescriptorSize bytes.
func groupDescriptorFromBytes(b []byte, number uint32) *groupDescriptor {
	gd := groupDescriptor{
		number:                     number,
		blockBitmapBlock:           binary.LittleEndian.Uint32(b[0x0:0x4]),
		inodeBitmapBlock:           binary.LittleEndian.Uint32(b[0x4:0x8]),
		inodeTableBlock:            binary.LittleEndian.Uint32(b[0x8:0xc]),
		freeBlocks:                 binary.LittleEndian.Uint16(b[0xc:0xe]),
		freeInodes:                 binary.LittleEndian.Uint16(b[0xe:0x10]),
		usedDirectories:            binary.LittleEndian.Uint16(b[0x10:0x12]),
		flags:                      parseBlockGroupFlags(binary.LittleEndian.Uint16(b[0x12:0x14])),
		snapshotExcludeBitmapBlock: binary.LittleEndian.Uint32(b[0x14:0x18]),
		blockBitmapChecksum:        binary.LittleEndian.Uint16(b[0x18:0x1a]),
		inodeBitmapChecksum:        binary.LittleEndian.Uint16(b[0x1a:0x1c]),
		unusedInodes:               binary.LittleEndian.Uint16(b[0x1c:0x1e]),
		checksum:                   binary.LittleEndian.Uint16(b[0x1e:0x20]),
	}

	return &gd
}

// toBytes returns a groupDescriptor in its on-disk layout, padded out to
// gdSize. The high halves of a 64-byte descriptor are left zero.
func (gd *groupDescriptor) toBytes(gdSize uint16) []byte {
	b := make([]byte, gdSize)

	binary.LittleEndian.PutUint32(b[0x0:0x4], gd.blockBitmapBlock)
	binary.LittleEndian.PutUint32(b[0x4:0x8], gd.inodeBitmapBlock)
	binary.LittleEndian.PutUint32(b[0x8:0xc], gd.inodeTableBlock)
	binary.LittleEndian.PutUint16(b[0xc:0xe], gd.freeBlocks)
	binary.LittleEndian.PutUint16(b[0xe:0x10], gd.freeInodes)
	binary.LittleEndian.PutUint16(b[0x10:0x12], gd.usedDirectories)
	binary.LittleEndian.PutUint16(b[0x12:0x14], gd.flags.toInt())
	binary.LittleEndian.PutUint32(b[0x14:0x18], gd.snapshotExcludeBitmapBlock)
	binary.LittleEndian.PutUint16(b[0x18:0x1a], gd.blockBitmapChecksum)
	binary.LittleEndian.PutUint16(b[0x1a:0x1c], gd.inodeBitmapChecksum)
	binary.LittleEndian.PutUint16(b[0x1c:0x1e], gd.unusedInodes)
	binary.LittleEndian.PutUint16(b[0x1e:0x20], gd.checksum)

	return b
}

func parseBlockGroupFlags(flags uint16) blockGroupFlags {
	f := blockGroupFlags{
		inodesUninitialized:      flags&uint16(blockGroupFlagInodesUninitialized) == uint16(blockGroupFlagInodesUninitialized),
		blockBitmapUninitialized: flags&uint16(blockGroupFlagBlockBitmapUninitialized) == uint16(blockGroupFlagBlockBitmapUninitialized),
		inodeTableZeroed:         flags&uint16(blockGroupFlagInodeTableZeroed) == uint16(blockGroupFlagInodeTableZeroed),
	}

	return f
}

func (f *blockGroupFlags) toInt() uint16 {
	var flags uint16

	if f.inodesUninitialized {
		flags |= uint16(blockGroupFlagInodesUninitialized)
	}
	if f.blockBitmapUninitialized {
		flags |= uint16(blockGroupFlagBlockBitmapUninitialized)
	}
	if f.inodeTableZeroed {
		flags |= uint16(blockGroupFlagInodeTableZeroed)
	}
	return flags
}
