package ext4

type feature uint32

const (
	// compatible, incompatible, and compatibleReadOnly feature flags
	compatFeatureDirectoryPreAllocate               feature = 0x1
	compatFeatureImagicInodes                       feature = 0x2
	compatFeatureHasJournal                         feature = 0x4
	compatFeatureExtendedAttributes                 feature = 0x8
	compatFeatureReservedGDTBlocksForExpansion      feature = 0x10
	compatFeatureDirectoryIndices                   feature = 0x20
	compatFeatureLazyBlockGroup                     feature = 0x40
	compatFeatureExcludeInode                       feature = 0x80
	compatFeatureExcludeBitmap                      feature = 0x100
	compatFeatureSparseSuperBlockV2                 feature = 0x200
	incompatFeatureCompression                      feature = 0x1
	incompatFeatureDirectoryEntriesRecordFileType   feature = 0x2
	incompatFeatureRecoveryNeeded                   feature = 0x4
	incompatFeatureSeparateJournalDevice            feature = 0x8
	incompatFeatureMetaBlockGroups                  feature = 0x10
	incompatFeatureExtents                          feature = 0x40
	incompatFeature64Bit                            feature = 0x80
	incompatFeatureMultipleMountProtection          feature = 0x100
	incompatFeatureFlexBlockGroups                  feature = 0x200
	incompatFeatureExtendedAttributeInodes          feature = 0x400
	incompatFeatureDataInDirectoryEntries           feature = 0x1000
	incompatFeatureMetadataChecksumSeedInSuperblock feature = 0x2000
	incompatFeatureLargeDirectory                   feature = 0x4000
	incompatFeatureDataInInode                      feature = 0x8000
	incompatFeatureEncryptInodes                    feature = 0x10000
	roCompatFeatureSparseSuperblock                 feature = 0x1
	roCompatFeatureLargeFile                        feature = 0x2
	roCompatFeatureBtreeDirectory                   feature = 0x4
	roCompatFeatureHugeFile                         feature = 0x8
	roCompatFeatureGDTChecksum                      feature = 0x10
	roCompatFeatureLargeSubdirectoryCount           feature = 0x20
	roCompatFeatureLargeInodes                      feature = 0x40
	roCompatFeatureSnapshot                         feature = 0x80
	roCompatFeatureQuota                            feature = 0x100
	roCompatFeatureBigalloc                         feature = 0x200
	roCompatFeatureMetadataChecksums                feature = 0x400
	roCompatFeatureReplicas                         feature = 0x800
	roCompatFeatureReadOnly                         feature = 0x1000
	roCompatFeatureProjectQuotas                    feature = 0x2000
)

// incompatFeaturesSupported is the set of incompatible features this read
// engine knows how to interpret. Anything else changes the on-disk format in
// ways we cannot safely ignore, so Read refuses such images.
const incompatFeaturesSupported = incompatFeatureDirectoryEntriesRecordFileType | incompatFeatureExtents

func (f feature) included(a uint32) bool {
	return a&uint32(f) == uint32(f)
}

// featureFlags is a structure holding which flags are set - compatible, incompatible and read-only compatible
type featureFlags struct {
	// compatible, incompatible, and compatibleReadOnly feature flags
	directoryPreAllocate             bool
	imagicInodes                     bool
	hasJournal                       bool
	extendedAttributes               bool
	reservedGDTBlocksForExpansion    bool
	directoryIndices                 bool
	lazyBlockGroup                   bool
	excludeInode                     bool
	excludeBitmap                    bool
	sparseSuperBlockV2               bool
	compression                      bool
	directoryEntriesRecordFileType   bool
	recoveryNeeded                   bool
	separateJournalDevice            bool
	metaBlockGroups                  bool
	extents                          bool
	fs64Bit                          bool
	multipleMountProtection          bool
	flexBlockGroups                  bool
	extendedAttributeInodes          bool
	dataInDirectoryEntries           bool
	metadataChecksumSeedInSuperblock bool
	largeDirectory                   bool
	dataInInode                      bool
	encryptInodes                    bool
	sparseSuperblock                 bool
	largeFile                        bool
	btreeDirectory                   bool
	hugeFile                         bool
	gdtChecksum                      bool
	largeSubdirectoryCount           bool
	largeInodes                      bool
	snapshot                         bool
	quota                            bool
	bigalloc                         bool
	metadataChecksums                bool
	replicas                         bool
	readOnly                         bool
	projectQuotas                    bool
}

func parseFeatureFlags(compatFlags, incompatFlags, roCompatFlags uint32) featureFlags {
	f := featureFlags{
		directoryPreAllocate:             compatFeatureDirectoryPreAllocate.included(compatFlags),
		imagicInodes:                     compatFeatureImagicInodes.included(compatFlags),
		hasJournal:                       compatFeatureHasJournal.included(compatFlags),
		extendedAttributes:               compatFeatureExtendedAttributes.included(compatFlags),
		reservedGDTBlocksForExpansion:    compatFeatureReservedGDTBlocksForExpansion.included(compatFlags),
		directoryIndices:                 compatFeatureDirectoryIndices.included(compatFlags),
		lazyBlockGroup:                   compatFeatureLazyBlockGroup.included(compatFlags),
		excludeInode:                     compatFeatureExcludeInode.included(compatFlags),
		excludeBitmap:                    compatFeatureExcludeBitmap.included(compatFlags),
		sparseSuperBlockV2:               compatFeatureSparseSuperBlockV2.included(compatFlags),
		compression:                      incompatFeatureCompression.included(incompatFlags),
		directoryEntriesRecordFileType:   incompatFeatureDirectoryEntriesRecordFileType.included(incompatFlags),
		recoveryNeeded:                   incompatFeatureRecoveryNeeded.included(incompatFlags),
		separateJournalDevice:            incompatFeatureSeparateJournalDevice.included(incompatFlags),
		metaBlockGroups:                  incompatFeatureMetaBlockGroups.included(incompatFlags),
		extents:                          incompatFeatureExtents.included(incompatFlags),
		fs64Bit:                          incompatFeature64Bit.included(incompatFlags),
		multipleMountProtection:          incompatFeatureMultipleMountProtection.included(incompatFlags),
		flexBlockGroups:                  incompatFeatureFlexBlockGroups.included(incompatFlags),
		extendedAttributeInodes:          incompatFeatureExtendedAttributeInodes.included(incompatFlags),
		dataInDirectoryEntries:           incompatFeatureDataInDirectoryEntries.included(incompatFlags),
		metadataChecksumSeedInSuperblock: incompatFeatureMetadataChecksumSeedInSuperblock.included(incompatFlags),
		largeDirectory:                   incompatFeatureLargeDirectory.included(incompatFlags),
		dataInInode:                      incompatFeatureDataInInode.included(incompatFlags),
		encryptInodes:                    incompatFeatureEncryptInodes.included(incompatFlags),
		sparseSuperblock:                 roCompatFeatureSparseSuperblock.included(roCompatFlags),
		largeFile:                        roCompatFeatureLargeFile.included(roCompatFlags),
		btreeDirectory:                   roCompatFeatureBtreeDirectory.included(roCompatFlags),
		hugeFile:                         roCompatFeatureHugeFile.included(roCompatFlags),
		gdtChecksum:                      roCompatFeatureGDTChecksum.included(roCompatFlags),
		largeSubdirectoryCount:           roCompatFeatureLargeSubdirectoryCount.included(roCompatFlags),
		largeInodes:                      roCompatFeatureLargeInodes.included(roCompatFlags),
		snapshot:                         roCompatFeatureSnapshot.included(roCompatFlags),
		quota:                            roCompatFeatureQuota.included(roCompatFlags),
		bigalloc:                         roCompatFeatureBigalloc.included(roCompatFlags),
		metadataChecksums:                roCompatFeatureMetadataChecksums.included(roCompatFlags),
		replicas:                         roCompatFeatureReplicas.included(roCompatFlags),
		readOnly:                         roCompatFeatureReadOnly.included(roCompatFlags),
		projectQuotas:                    roCompatFeatureProjectQuotas.included(roCompatFlags),
	}

	return f
}

func (f *featureFlags) toInts() (compatFlags, incompatFlags, roCompatFlags uint32) {
	// compatible flags
	if f.directoryPreAllocate {
		compatFlags |= uint32(compatFeatureDirectoryPreAllocate)
	}
	if f.imagicInodes {
		compatFlags |= uint32(compatFeatureImagicInodes)
	}
	if f.hasJournal {
		compatFlags |= uint32(compatFeatureHasJournal)
	}
	if f.extendedAttributes {
		compatFlags |= uint32(compatFeatureExtendedAttributes)
	}
	if f.reservedGDTBlocksForExpansion {
		compatFlags |= uint32(compatFeatureReservedGDTBlocksForExpansion)
	}
	if f.directoryIndices {
		compatFlags |= uint32(compatFeatureDirectoryIndices)
	}
	if f.lazyBlockGroup {
		compatFlags |= uint32(compatFeatureLazyBlockGroup)
	}
	if f.excludeInode {
		compatFlags |= uint32(compatFeatureExcludeInode)
	}
	if f.excludeBitmap {
		compatFlags |= uint32(compatFeatureExcludeBitmap)
	}
	if f.sparseSuperBlockV2 {
		compatFlags |= uint32(compatFeatureSparseSuperBlockV2)
	}

	// incompatible flags
	if f.compression {
		incompatFlags |= uint32(incompatFeatureCompression)
	}
	if f.directoryEntriesRecordFileType {
		incompatFlags |= uint32(incompatFeatureDirectoryEntriesRecordFileType)
	}
	if f.recoveryNeeded {
		incompatFlags |= uint32(incompatFeatureRecoveryNeeded)
	}
	if f.separateJournalDevice {
		incompatFlags |= uint32(incompatFeatureSeparateJournalDevice)
	}
	if f.metaBlockGroups {
		incompatFlags |= uint32(incompatFeatureMetaBlockGroups)
	}
	if f.extents {
		incompatFlags |= uint32(incompatFeatureExtents)
	}
	if f.fs64Bit {
		incompatFlags |= uint32(incompatFeature64Bit)
	}
	if f.multipleMountProtection {
		incompatFlags |= uint32(incompatFeatureMultipleMountProtection)
	}
	if f.flexBlockGroups {
		incompatFlags |= uint32(incompatFeatureFlexBlockGroups)
	}
	if f.extendedAttributeInodes {
		incompatFlags |= uint32(incompatFeatureExtendedAttributeInodes)
	}
	if f.dataInDirectoryEntries {
		incompatFlags |= uint32(incompatFeatureDataInDirectoryEntries)
	}
	if f.metadataChecksumSeedInSuperblock {
		incompatFlags |= uint32(incompatFeatureMetadataChecksumSeedInSuperblock)
	}
	if f.largeDirectory {
		incompatFlags |= uint32(incompatFeatureLargeDirectory)
	}
	if f.dataInInode {
		incompatFlags |= uint32(incompatFeatureDataInInode)
	}
	if f.encryptInodes {
		incompatFlags |= uint32(incompatFeatureEncryptInodes)
	}

	// read-only compatible flags
	if f.sparseSuperblock {
		roCompatFlags |= uint32(roCompatFeatureSparseSuperblock)
	}
	if f.largeFile {
		roCompatFlags |= uint32(roCompatFeatureLargeFile)
	}
	if f.btreeDirectory {
		roCompatFlags |= uint32(roCompatFeatureBtreeDirectory)
	}
	if f.hugeFile {
		roCompatFlags |= uint32(roCompatFeatureHugeFile)
	}
	if f.gdtChecksum {
		roCompatFlags |= uint32(roCompatFeatureGDTChecksum)
	}
	if f.largeSubdirectoryCount {
		roCompatFlags |= uint32(roCompatFeatureLargeSubdirectoryCount)
	}
	if f.largeInodes {
		roCompatFlags |= uint32(roCompatFeatureLargeInodes)
	}
	if f.snapshot {
		roCompatFlags |= uint32(roCompatFeatureSnapshot)
	}
	if f.quota {
		roCompatFlags |= uint32(roCompatFeatureQuota)
	}
	if f.bigalloc {
		roCompatFlags |= uint32(roCompatFeatureBigalloc)
	}
	if f.metadataChecksums {
		roCompatFlags |= uint32(roCompatFeatureMetadataChecksums)
	}
	if f.replicas {
		roCompatFlags |= uint32(roCompatFeatureReplicas)
	}
	if f.readOnly {
		roCompatFlags |= uint32(roCompatFeatureReadOnly)
	}
	if f.projectQuotas {
		roCompatFlags |= uint32(roCompatFeatureProjectQuotas)
	}

	return compatFlags, incompatFlags, roCompatFlags
}
