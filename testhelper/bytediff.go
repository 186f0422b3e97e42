// Package testhelper provides helpers shared by _test files across the module.
package testhelper

import (
	"fmt"
	"strings"
)

// DumpByteSlicesWithDiffs compare two byte slices row by row, returning
// whether they differ and a hex dump of the rows that do. With onlyFirstDiff
// set, the dump stops after the first differing row; showOffsets and
// showChars control whether each row is prefixed with its offset and suffixed
// with its printable characters.
func DumpByteSlicesWithDiffs(actual, expected []byte, width int, onlyFirstDiff, showOffsets, showChars bool) (bool, string) {
	if width <= 0 {
		width = 16
	}
	length := len(actual)
	if len(expected) > length {
		length = len(expected)
	}

	var (
		diff bool
		sb   strings.Builder
	)
	if len(actual) != len(expected) {
		diff = true
		fmt.Fprintf(&sb, "length mismatch: actual %d bytes, expected %d bytes\n", len(actual), len(expected))
	}
	for start := 0; start < length; start += width {
		end := start + width
		if end > length {
			end = length
		}
		rowActual := sliceRow(actual, start, end)
		rowExpected := sliceRow(expected, start, end)
		if string(rowActual) == string(rowExpected) {
			continue
		}
		diff = true
		sb.WriteString(dumpRow(rowActual, start, showOffsets, showChars))
		sb.WriteString(dumpRow(rowExpected, start, showOffsets, showChars))
		sb.WriteString("\n")
		if onlyFirstDiff {
			break
		}
	}
	return diff, sb.String()
}

func sliceRow(b []byte, start, end int) []byte {
	if start >= len(b) {
		return nil
	}
	if end > len(b) {
		end = len(b)
	}
	return b[start:end]
}

func dumpRow(b []byte, offset int, showOffsets, showChars bool) string {
	var sb strings.Builder
	if showOffsets {
		fmt.Fprintf(&sb, "%08x  ", offset)
	}
	for _, c := range b {
		fmt.Fprintf(&sb, "%02x ", c)
	}
	if showChars {
		sb.WriteString(" |")
		for _, c := range b {
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|")
	}
	sb.WriteString("\n")
	return sb.String()
}
