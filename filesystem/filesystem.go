// Package filesystem provides interfaces and constants required for filesystem implementations.
// All interesting implementations are in subpackages, e.g. github.com/diskfs/go-ext4/filesystem/ext4
package filesystem

import (
	"errors"
	"io/fs"
)

var (
	ErrNotSupported       = errors.New("method not supported by this filesystem")
	ErrReadonlyFilesystem = errors.New("read-only filesystem")
)

// FileSystem is a reference to a single filesystem decoded from a disk image
type FileSystem interface {
	// Type return the type of filesystem
	Type() Type
	// ReadDir read the contents of a directory
	ReadDir(pathname string) ([]fs.DirEntry, error)
	// Open open a handle to read a file
	Open(pathname string) (fs.File, error)
	// ReadFile read an entire file into memory
	ReadFile(pathname string) ([]byte, error)
	// Readlink return the target of a symbolic link
	Readlink(pathname string) (string, error)
	// Label get the label for the filesystem, or "" if none. Be careful to trim it, as it may contain
	// leading or following whitespace. The label is passed as-is and not cleaned up at all.
	Label() string
}

// Type represents the type of filesystem this is
type Type int

const (
	// TypeExt4 is an ext4 compatible filesystem
	TypeExt4 Type = iota
)
