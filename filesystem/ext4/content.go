package ext4

// Contents is the data behind an inode, as one of exactly four shapes keyed
// off the inode's file type:
//
//   - SymlinkTarget for symbolic links: the target stored inline in the
//     inode's block-pointer region or, for longer targets, read from the
//     link's data blocks
//   - *ByteStream for regular files
//   - *DirEntryStream for directories
//   - nil for types the engine does not model (fifos, devices, sockets)
type Contents interface {
	isContents()
}

// SymlinkTarget the raw target bytes of a symbolic link
type SymlinkTarget []byte

func (SymlinkTarget) isContents()   {}
func (*ByteStream) isContents()     {}
func (*DirEntryStream) isContents() {}

// contents dispatch on the inode's type to its data representation
func (fs *FileSystem) contents(in *inode) (Contents, error) {
	switch in.fileType {
	case fileTypeSymbolicLink:
		if in.linkTarget != "" || in.size == 0 {
			return SymlinkTarget(in.linkTarget), nil
		}
		// long targets spill into data blocks like a regular file's bytes
		ranges, err := fs.extentRanges(in)
		if err != nil {
			return nil, err
		}
		stream := &ByteStream{chain: bufferChain{ranges: ranges}}
		target := stream.ReadAll()
		if uint64(len(target)) > in.size {
			target = target[:in.size]
		}
		return SymlinkTarget(target), nil
	case fileTypeRegularFile:
		ranges, err := fs.extentRanges(in)
		if err != nil {
			return nil, err
		}
		return &ByteStream{chain: bufferChain{ranges: ranges}}, nil
	case fileTypeDirectory:
		ranges, err := fs.extentRanges(in)
		if err != nil {
			return nil, err
		}
		return &DirEntryStream{chain: bufferChain{ranges: ranges}}, nil
	default:
		return nil, nil
	}
}

// Contents resolve an inode number and dispatch on its type to its data. The
// second return is false when the inode is out of range, unallocated, or
// cannot be decoded; a nil Contents with true means the inode exists but has
// a type the engine does not model.
func (fs *FileSystem) Contents(number uint32) (Contents, bool) {
	in, ok := fs.readInode(number)
	if !ok {
		return nil, false
	}
	contents, err := fs.contents(in)
	if err != nil {
		return nil, false
	}
	return contents, true
}
