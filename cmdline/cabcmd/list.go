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
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/kr/pretty"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/sassoftware/cabtool/cmdline/shared"
	"github.com/sassoftware/cabtool/lib/cabfile"
)

var ListCmd = &cobra.Command{
	Use:   "list [--digest] [--dump] cabinet.cab",
	Short: "List the files in a cabinet",
	Args:  cobra.ExactArgs(1),
	RunE:  listCmd,
}

var (
	argListDigest bool
	argDump       bool
)

func init() {
	shared.RootCmd.AddCommand(ListCmd)
	ListCmd.Flags().BoolVar(&argListDigest, "digest", false, "Decompress every file and show its digest")
	ListCmd.Flags().BoolVar(&argDump, "dump", false, "Print the raw header, folder and file records")
	shared.AddDigestFlag(ListCmd)
}

func listCmd(cmd *cobra.Command, args []string) error {
	in, err := openCabinet(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	if argListDigest {
		alg, err := shared.GetDigest()
		if err != nil {
			return err
		}
		return listDigests(cmd, in, alg, os.Stdout)
	}
	cab, err := cabfile.ReadCabinet(in)
	if err != nil {
		return err
	}
	if argDump {
		fmt.Printf("%# v\n", pretty.Formatter(cab))
		return nil
	}
	return writeListing(os.Stdout, cab)
}

func writeListing(w io.Writer, cab *cabfile.Cabinet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SIZE\tMODIFIED\tATTRS\tFOLDER\tNAME\n")
	for _, f := range cab.Files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%s\t%s\n",
			f.Size,
			f.Modified().Format("2006-01-02 15:04:05"),
			formatAttributes(f.Attributes),
			f.Folder,
			cab.Folders[f.Folder].Compression,
			f.Name,
		)
	}
	return tw.Flush()
}

// digestWriter hashes one member as it is decompressed
type digestWriter struct {
	digester digest.Digester
	size     int64
	done     func(digest.Digest, int64)
}

func (d *digestWriter) Write(p []byte) (int, error) {
	d.size += int64(len(p))
	return d.digester.Hash().Write(p)
}

func (d *digestWriter) Commit() error {
	d.done(d.digester.Digest(), d.size)
	return nil
}

func (d *digestWriter) Close() error {
	return nil
}

func listDigests(cmd *cobra.Command, r io.Reader, alg digest.Algorithm, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	err := cabfile.ExtractStream(cmd.Context(), r, func(f *cabfile.File) (cabfile.FileWriter, error) {
		name := f.Name
		return &digestWriter{
			digester: alg.Digester(),
			done: func(d digest.Digest, size int64) {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", d, size, name)
			},
		}, nil
	})
	if ferr := tw.Flush(); err == nil {
		err = ferr
	}
	return err
}
