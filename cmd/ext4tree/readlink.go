package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readlinkCmd = &cobra.Command{
	Use:   "readlink IMAGE FILEPATH",
	Short: "Print the target of a symbolic link in an ext4 image.",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		fsys, err := openImage(args[0])
		if err != nil {
			return err
		}
		target, err := fsys.Readlink(args[1])
		if err != nil {
			return err
		}
		fmt.Println(target)
		return nil
	},
}
