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
	"fmt"
	"io"
	"os"

	"github.com/sassoftware/cabtool/config"
)

// InitConfig loads the configuration named by --config, or the default one if
// it exists
func InitConfig() error {
	if CurrentConfig != nil {
		return nil
	}
	path := ArgConfig
	if path == "" {
		path = config.DefaultConfig()
		if path == "" {
			CurrentConfig = config.Default()
			return nil
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			CurrentConfig = config.Default()
			return nil
		}
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}
	CurrentConfig = cfg
	return nil
}

// OpenFile opens a named input, or standard input for "-"
func OpenFile(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func Fail(err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(70)
	}
	return err
}
