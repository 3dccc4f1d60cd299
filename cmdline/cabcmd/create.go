//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package cabcmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sassoftware/cabtool/cmdline/shared"
	"github.com/sassoftware/cabtool/lib/atomicfile"
	"github.com/sassoftware/cabtool/lib/cabfile"
)

var CreateCmd = &cobra.Command{
	Use:   "create -o out.cab [flags] path...",
	Short: "Create a cabinet from files and directories",
	Long: `Create a cabinet from files and directories.

Files are stored under their base name. Directories are added recursively
with names relative to the directory. With --max-size the files are spread
over a set of cabinets named out.cab, out2.cab, out3.cab and so on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: createCmd,
}

var (
	argOutput      string
	argCompression compressionFlag
	argLevel       int
	argMaxSize     int64
	argNoChecksum  bool
	argFolder      uint16
	argSetID       uint16
)

func init() {
	shared.RootCmd.AddCommand(CreateCmd)
	CreateCmd.Flags().StringVarP(&argOutput, "output", "o", "", "Write cabinet to this file, or - for standard output")
	CreateCmd.Flags().VarP(&argCompression, "compression", "z", "Compression type")
	CreateCmd.Flags().IntVar(&argLevel, "level", 0, "MSZIP compression level (1-9)")
	CreateCmd.Flags().Int64Var(&argMaxSize, "max-size", 0, "Split into a set of cabinets no larger than this many bytes")
	CreateCmd.Flags().BoolVar(&argNoChecksum, "no-checksum", false, "Don't compute data block checksums")
	CreateCmd.Flags().Uint16Var(&argFolder, "folder", 0, "Folder to place the files in")
	CreateCmd.Flags().Uint16Var(&argSetID, "set-id", 0, "Use a fixed set ID instead of a random one")
	_ = CreateCmd.MarkFlagRequired("output")
}

func createCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := shared.CurrentConfig.Create
	archive := cabfile.NewArchive()
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			err = archive.AddDirectory(path, cabfile.WithFolder(argFolder))
		} else {
			err = archive.AddPath(info.Name(), path, cabfile.WithFolder(argFolder))
		}
		if err != nil {
			return err
		}
	}
	gen := cabfile.NewGenerator(archive)
	gen.Compression = cfg.CompressionType()
	if cmd.Flags().Changed("compression") {
		gen.Compression = argCompression.value
	}
	gen.CompressionLevel = cfg.CompressionLevel
	if cmd.Flags().Changed("level") {
		gen.CompressionLevel = argLevel
	}
	gen.DisableChecksum = argNoChecksum || !cfg.ChecksumsEnabled()
	gen.SpoolThreshold = cfg.SpoolThreshold
	if cmd.Flags().Changed("set-id") {
		gen.SetSetID(argSetID)
	}
	maxSize := cfg.MaxCabinetSize
	if cmd.Flags().Changed("max-size") {
		maxSize = argMaxSize
	}
	log := zerolog.Ctx(ctx)
	if maxSize > 0 {
		if argOutput == "-" {
			return errors.New("a cabinet set can't be written to standard output")
		}
		count, err := gen.WriteSet(ctx, maxSize, func(index int) (cabfile.FileWriter, error) {
			return atomicfile.WriteAny(setMemberName(argOutput, index))
		})
		if err != nil {
			return err
		}
		log.Info().
			Str("output", argOutput).
			Int("files", archive.Len()).
			Int("cabinets", count).
			Uint16("set_id", gen.SetID()).
			Msg("created cabinet set")
		return nil
	}
	w, err := atomicfile.WriteAny(argOutput)
	if err != nil {
		return err
	}
	defer w.Close()
	n, err := gen.WriteCabinet(ctx, w)
	if err != nil {
		return err
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("writing %s: %w", argOutput, err)
	}
	log.Info().
		Str("output", argOutput).
		Int("files", archive.Len()).
		Int64("size", n).
		Stringer("compression", gen.Compression).
		Msg("created cabinet")
	return nil
}
