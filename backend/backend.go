// Package backend acquires the raw bytes of ext4 volume images. The decode
// engine consumes a single contiguous byte slice; this package is the side
// that produces one, loading a dump from disk and transparently decompressing
// xz- and lz4-compressed images by sniffing their magic bytes.
package backend

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

var log = logrus.StandardLogger()

var (
	xzMagic  = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Load read a volume image into memory. Images compressed with xz or lz4 are
// decompressed on the fly; anything else is returned as-is.
func Load(pathName string) ([]byte, error) {
	if pathName == "" {
		return nil, fmt.Errorf("must pass a device or file name")
	}
	f, err := os.Open(pathName)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s: %w", pathName, err)
	}
	defer f.Close()

	return load(f)
}

func load(r io.Reader) ([]byte, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not read image header: %w", err)
	}

	switch {
	case bytes.HasPrefix(magic, xzMagic):
		log.Debug("image is xz compressed, decompressing")
		xzReader, err := xz.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("could not start xz decompression: %w", err)
		}
		return readAll(xzReader)
	case bytes.HasPrefix(magic, lz4Magic):
		log.Debug("image is lz4 compressed, decompressing")
		return readAll(lz4.NewReader(buffered))
	default:
		return readAll(buffered)
	}
}

func readAll(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read image: %w", err)
	}
	return b, nil
}
