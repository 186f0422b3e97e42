package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat IMAGE FILEPATH [FILEPATH...]",
	Short: "Write the contents of files in an ext4 image to stdout.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		fsys, err := openImage(args[0])
		if err != nil {
			return err
		}
		for _, fpath := range args[1:] {
			f, err := fsys.Open(fpath)
			if err != nil {
				return err
			}
			_, err = io.Copy(os.Stdout, f)
			f.Close()
			if err != nil {
				return err
			}
		}
		return nil
	},
}
