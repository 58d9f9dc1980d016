package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/histostore/container/h5"
)

func newExportCommand(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "export <container> <file.h5>",
		Short: "Write the numeric datasets of a container to an HDF5 file",
		Long: `export copies every numeric dataset of a container, with its attributes,
into a new HDF5 file readable by h5py and other HDF5 tools. Record
datasets are left out and reported.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openContainer(cmd.Context(), args[0], remote)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			err = h5.Export(f, args[1])
			if err != nil && !errors.Is(err, h5.ErrSkipped) {
				return err
			}
			if err != nil {
				a.logger.Warn("hdf5 export incomplete", "file", args[1], "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s (%s) to %s\n", args[0], humanize.IBytes(uint64(f.Size())), args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "read the container from the configured store")

	return cmd
}
