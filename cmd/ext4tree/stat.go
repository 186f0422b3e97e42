package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat IMAGE [FILEPATH]",
	Short: "Print filesystem information, or information about one file.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		fsys, err := openImage(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		if len(args) > 1 {
			info, err := fsys.Stat(args[1])
			if err != nil {
				return err
			}
			var number uint32
			if n, ok := info.(inodeNumberer); ok {
				number = n.InodeNumber()
			}
			fmt.Fprintf(w, "File:\t%s\n", args[1])
			fmt.Fprintf(w, "Inode:\t%d\n", number)
			fmt.Fprintf(w, "Size:\t%d\n", info.Size())
			fmt.Fprintf(w, "Mode:\t%s\n", info.Mode())
			fmt.Fprintf(w, "Modified:\t%s\n", info.ModTime().UTC())
			return nil
		}

		fmt.Fprintf(w, "Label:\t%q\n", fsys.Label())
		fmt.Fprintf(w, "UUID:\t%s\n", fsys.UUID())
		fmt.Fprintf(w, "Block size:\t%d\n", fsys.BlockSize())
		fmt.Fprintf(w, "Inode size:\t%d\n", fsys.InodeSize())
		fmt.Fprintf(w, "Inodes:\t%d (%d free)\n", fsys.InodeCount(), fsys.FreeInodeCount())
		fmt.Fprintf(w, "Free blocks:\t%d\n", fsys.FreeBlockCount())
		fmt.Fprintf(w, "Block groups:\t%d\n", fsys.BlockGroupCount())
		for g := uint64(0); g < fsys.BlockGroupCount(); g++ {
			if fsys.HasSuperblock(g) {
				fmt.Fprintf(w, "Superblock in group:\t%d\n", g)
			}
		}
		return nil
	},
}
