package ext4

const (
	// KB represents one KB
	KB int64 = 1024
	// MB represents one MB
	MB int64 = 1024 * KB
	// GB represents one GB
	GB int64 = 1024 * MB
	// TB represents one TB
	TB int64 = 1024 * GB

	// Ext4MinSize is the minimum size for an ext4 filesystem:
	// a single block group with
	//   blocksize = 2 sectors = 1KB
	//   1 block for boot code
	//   1 block for superblock
	//   1 block for block group descriptors
	//   1 block for block and inode bitmaps and inode table
	//   1 block for data
	Ext4MinSize int64 = 5 * KB
)
