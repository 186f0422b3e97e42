package ext4

import (
	"testing"

	"github.com/go-test/deep"
)

func TestDirectoryEntryRoundTrip(t *testing.T) {
	deep.CompareUnexportedFields = true
	tests := []struct {
		name  string
		entry directoryEntry
	}{
		{"dot", directoryEntry{inode: 2, recLen: 12, filename: ".", fileType: dirFileTypeDirectory}},
		{"regular", directoryEntry{inode: 11, recLen: 16, filename: "foo.txt", fileType: dirFileTypeRegular}},
		{"symlink", directoryEntry{inode: 13, recLen: 12, filename: "link", fileType: dirFileTypeSymlink}},
		{"unused slot", directoryEntry{inode: 0, recLen: 12, filename: "", fileType: dirFileTypeUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := directoryEntryFromBytes(tt.entry.toBytes())
			if err != nil {
				t.Fatalf("failed to decode entry: %v", err)
			}
			if diff := deep.Equal(*decoded, tt.entry); diff != nil {
				t.Errorf("directory entry round trip = %v", diff)
			}
		})
	}
}

func TestDirectoryEntryLength(t *testing.T) {
	tests := []struct {
		filename string
		expected uint16
	}{
		{".", 12},
		{"..", 12},
		{"abc", 12},
		{"abcd", 12},
		{"abcde", 16},
		{"foo.txt", 16},
		{"empty.txt", 20},
	}
	for _, tt := range tests {
		if got := directoryEntryLength(tt.filename); got != tt.expected {
			t.Errorf("directoryEntryLength(%q) = %d, expected %d", tt.filename, got, tt.expected)
		}
	}
}

func TestDirectoryEntryFromBytesErrors(t *testing.T) {
	valid := directoryEntry{inode: 11, recLen: 16, filename: "foo.txt", fileType: dirFileTypeRegular}
	b := valid.toBytes()

	// header does not fit
	if _, err := directoryEntryFromBytes(b[:4]); err == nil {
		t.Errorf("expected error for short header, got nil")
	}
	// record length runs past the available bytes
	if _, err := directoryEntryFromBytes(b[:12]); err == nil {
		t.Errorf("expected error for straddling record, got nil")
	}
	// name does not fit the record length
	bad := make([]byte, len(b))
	copy(bad, b)
	bad[0x6] = 200
	if _, err := directoryEntryFromBytes(bad); err == nil {
		t.Errorf("expected error for name longer than record, got nil")
	}
}
