package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/diskfs/go-ext4/filesystem/ext4"
)

var treeCmd = &cobra.Command{
	Use:   "tree IMAGE [FILEPATH]",
	Short: "Print the directory tree of an ext4 image.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		fsys, err := openImage(args[0])
		if err != nil {
			return err
		}
		root := "/"
		if len(args) > 1 {
			root = args[1]
		}
		return tree(os.Stdout, fsys, root)
	},
}

// inodeNumberer is implemented by the entries and file infos the ext4 engine
// returns; the inode numbers break the cycles "." and ".." would introduce
type inodeNumberer interface {
	InodeNumber() uint32
}

// tree print the directory tree below root, one entry per line, with the
// box-drawing connectors of tree(1)
func tree(w io.Writer, fsys *ext4.FileSystem, root string) error {
	fmt.Fprintln(w, root)

	visited := map[uint32]bool{}
	if info, err := fsys.Stat(root); err == nil {
		if n, ok := info.(inodeNumberer); ok {
			visited[n.InodeNumber()] = true
		}
	}

	var recurse func(dir, prefix string) error
	recurse = func(dir, prefix string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		for i, entry := range entries {
			connector, childPrefix := "├── ", prefix+"│   "
			if i == len(entries)-1 {
				connector, childPrefix = "└── ", prefix+"    "
			}

			name := entry.Name()
			if entry.Type()&fs.ModeSymlink != 0 {
				if target, err := fsys.Readlink(path.Join(dir, name)); err == nil {
					name += " -> " + target
				}
			}
			fmt.Fprintf(w, "%s%s%s\n", prefix, connector, name)

			if !entry.IsDir() {
				continue
			}
			n, ok := entry.(inodeNumberer)
			if !ok {
				continue
			}
			// reserved inodes are never directory targets, and a directory
			// already seen means a cycle
			number := n.InodeNumber()
			if number < 2 || visited[number] {
				continue
			}
			visited[number] = true
			if err := recurse(path.Join(dir, entry.Name()), childPrefix); err != nil {
				return err
			}
		}
		return nil
	}

	return recurse(root, "")
}
