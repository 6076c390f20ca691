/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/oonf-go/daemon"
)

var runConfigFlag string

func init() {
	runCmd.Flags().StringVarP(&runConfigFlag, "config", "c", "", "path to the daemon's YAML config")
	RootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mesh routing daemon",
	RunE: func(*cobra.Command, []string) error {
		cfg := daemon.DefaultConfig()
		if runConfigFlag != "" {
			loaded, err := daemon.ReadConfig(runConfigFlag)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(level)
		}
		if rootVerboseFlag {
			log.SetLevel(log.DebugLevel)
		}

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		log.Info("oonfd starting")
		return d.Run(ctx)
	},
}
