/*
Copyright © 2025 Mulga Defense Corporation

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
	"fmt"

	"github.com/mulgadc/mockcloud/mockcloud/config"
	"github.com/mulgadc/mockcloud/mockcloud/service"
	"github.com/mulgadc/mockcloud/mockcloud/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage mockcloud services",
}

var natsCmd = &cobra.Command{
	Use:   "nats",
	Short: "Manage the nats service",
}

var awsgwCmd = &cobra.Command{
	Use:   "awsgw",
	Short: "Manage the awsgw (AWS gateway) service",
}

// serviceConfig merges CLI flag overrides into the loaded config.
func serviceConfig() *config.Config {
	cfg := appConfig
	if cfg == nil {
		cfg = &config.Config{}
	}

	if host := viper.GetString("nats-host"); host != "" {
		cfg.NATS.Host = host
	}
	if token := viper.GetString("nats-token"); token != "" {
		cfg.NATS.ACL.Token = token
	}
	if host := viper.GetString("host"); host != "" {
		cfg.Gateway.Host = host
	}
	if dataDir := viper.GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if accessKey := viper.GetString("access-key"); accessKey != "" {
		cfg.AccessKey = accessKey
	}
	if secretKey := viper.GetString("secret-key"); secretKey != "" {
		cfg.SecretKey = secretKey
	}

	return cfg
}

func startService(name string) {
	fmt.Printf("Starting %s service...\n", name)

	svc, err := service.New(name, serviceConfig())
	if err != nil {
		fmt.Printf("Error starting %s service: %v\n", name, err)
		return
	}

	if _, err := svc.Start(); err != nil {
		fmt.Printf("Error starting %s service: %v\n", name, err)
		return
	}

	fmt.Printf("%s service started\n", name)
}

func stopService(name string) {
	fmt.Printf("Stopping %s service...\n", name)

	svc, err := service.New(name, serviceConfig())
	if err != nil {
		fmt.Printf("Error stopping %s service: %v\n", name, err)
		return
	}

	if err := svc.Stop(); err != nil {
		fmt.Printf("Error stopping %s service: %v\n", name, err)
		return
	}

	fmt.Printf("%s service stopped\n", name)
}

func statusService(name string) {
	pid, err := utils.ReadPidFile(name)
	if err != nil {
		fmt.Printf("%s: not running\n", name)
		return
	}
	fmt.Printf("%s: running (pid %d)\n", name, pid)
}

var natsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		startService("nats")
	},
}

var natsStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		stopService("nats")
	},
}

var natsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the nats service status",
	Run: func(cmd *cobra.Command, args []string) {
		statusService("nats")
	},
}

var awsgwStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the awsgw service",
	Run: func(cmd *cobra.Command, args []string) {
		startService("awsgw")
	},
}

var awsgwStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the awsgw service",
	Run: func(cmd *cobra.Command, args []string) {
		stopService("awsgw")
	},
}

var awsgwStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the awsgw service status",
	Run: func(cmd *cobra.Command, args []string) {
		statusService("awsgw")
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(natsCmd)
	natsCmd.AddCommand(natsStartCmd)
	natsCmd.AddCommand(natsStopCmd)
	natsCmd.AddCommand(natsStatusCmd)

	serviceCmd.AddCommand(awsgwCmd)
	awsgwCmd.AddCommand(awsgwStartCmd)
	awsgwCmd.AddCommand(awsgwStopCmd)
	awsgwCmd.AddCommand(awsgwStatusCmd)
}
