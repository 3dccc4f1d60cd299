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
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sassoftware/cabtool/cmdline/shared"
	"github.com/sassoftware/cabtool/lib/cabfile"
)

var VerifyCmd = &cobra.Command{
	Use:   "verify cabinet.cab...",
	Short: "Check the checksums and compressed data of one or more cabinets",
	Args:  cobra.MinimumNArgs(1),
	RunE:  verifyCmd,
}

var argParallel int

func init() {
	shared.RootCmd.AddCommand(VerifyCmd)
	VerifyCmd.Flags().IntVarP(&argParallel, "parallel", "j", 0, "Number of cabinets to verify at once")
}

type verifyResult struct {
	files int
	bytes int64
	err   error
}

func verifyCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	workers := shared.CurrentConfig.Verify.Workers()
	if argParallel > 0 {
		workers = argParallel
	}
	results := make([]verifyResult, len(args))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, path := range args {
		i, path := i, path
		eg.Go(func() error {
			results[i] = verifyOne(ectx, path)
			// one bad cabinet doesn't stop the others
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	failed := 0
	for i, path := range args {
		res := results[i]
		if res.err != nil {
			fmt.Printf("%s ERROR: %s\n", path, res.err)
			failed++
			continue
		}
		fmt.Printf("%s OK - %d files, %d bytes\n", path, res.files, res.bytes)
	}
	if failed != 0 {
		return shared.Fail(fmt.Errorf("%d of %d cabinets failed verification", failed, len(args)))
	}
	return nil
}

type countingSink struct {
	files int
	bytes int64
}

func (c *countingSink) Write(p []byte) (int, error) {
	c.bytes += int64(len(p))
	return len(p), nil
}

func (c *countingSink) Commit() error {
	c.files++
	return nil
}

func (c *countingSink) Close() error {
	return nil
}

func verifyOne(ctx context.Context, path string) verifyResult {
	in, err := openCabinet(path)
	if err != nil {
		return verifyResult{err: err}
	}
	defer in.Close()
	counter := new(countingSink)
	err = cabfile.ExtractStream(ctx, in, func(*cabfile.File) (cabfile.FileWriter, error) {
		return counter, nil
	})
	zerolog.Ctx(ctx).Debug().
		Str("cabinet", path).
		Int("files", counter.files).
		Err(err).
		Msg("verified")
	return verifyResult{files: counter.files, bytes: counter.bytes, err: err}
}
