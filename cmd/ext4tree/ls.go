package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls IMAGE [FILEPATH]",
	Short: "List the contents of a directory in an ext4 image.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		fsys, err := openImage(args[0])
		if err != nil {
			return err
		}
		dir := "/"
		if len(args) > 1 {
			dir = args[1]
		}
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			var number uint32
			if n, ok := entry.(inodeNumberer); ok {
				number = n.InodeNumber()
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
				info.Mode(), number, info.Size(), info.ModTime().UTC().Format("Jan _2 15:04"), entry.Name())
		}
		return w.Flush()
	},
}
