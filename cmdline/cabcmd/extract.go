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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sassoftware/cabtool/cmdline/shared"
	"github.com/sassoftware/cabtool/lib/cabfile"
)

var ExtractCmd = &cobra.Command{
	Use:   "extract [-d dir] cabinet.cab",
	Short: "Extract the files of a cabinet into a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  extractCmd,
}

var (
	argDirectory    string
	argNoAttributes bool
)

func init() {
	shared.RootCmd.AddCommand(ExtractCmd)
	ExtractCmd.Flags().StringVarP(&argDirectory, "directory", "d", ".", "Extract into this directory")
	ExtractCmd.Flags().BoolVar(&argNoAttributes, "no-attributes", false, "Don't restore modification times and attributes")
}

func extractCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, err := openCabinet(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	opts := cabfile.ExtractOptions{
		RestoreAttributes: shared.CurrentConfig.Extract.Restore() && !argNoAttributes,
	}
	if err := cabfile.ExtractToDirectory(ctx, in, argDirectory, opts); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Str("cabinet", args[0]).
		Str("directory", argDirectory).
		Msg("extracted cabinet")
	return nil
}
