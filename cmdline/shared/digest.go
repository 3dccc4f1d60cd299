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

package shared

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

var ArgDigest string

const DefaultDigest = digest.Canonical

func AddDigestFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ArgDigest, "digest-algorithm", string(DefaultDigest), "Digest algorithm (sha256, sha384, sha512)")
}

func GetDigest() (digest.Algorithm, error) {
	if ArgDigest == "" {
		return DefaultDigest, nil
	}
	alg := digest.Algorithm(strings.ToLower(ArgDigest))
	if !alg.Available() {
		return "", fmt.Errorf("unsupported digest %q", ArgDigest)
	}
	return alg, nil
}
