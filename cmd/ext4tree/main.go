// ext4tree inspects ext4 volume images without mounting them: it prints the
// directory tree, lists directories, and dumps file contents, driving the
// read-only decode engine in filesystem/ext4.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/diskfs/go-ext4/backend"
	"github.com/diskfs/go-ext4/filesystem/ext4"
)

var log = logrus.StandardLogger()

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "ext4tree",
		Short:         "Inspect ext4 volume images without mounting them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(treeCmd, lsCmd, catCmd, statCmd, readlinkCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

// openImage load an image file and hand it to the decode engine
func openImage(pathName string) (*ext4.FileSystem, error) {
	image, err := backend.Load(pathName)
	if err != nil {
		return nil, err
	}
	fs, err := ext4.Read(image)
	if err != nil {
		return nil, fmt.Errorf("could not read ext4 filesystem from %s: %w", pathName, err)
	}
	return fs, nil
}
