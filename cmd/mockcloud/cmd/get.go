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
	"os"
	"strconv"
	"time"

	"github.com/mulgadc/mockcloud/mockcloud/services/awsgw"
	"github.com/mulgadc/mockcloud/mockcloud/utils"
	"github.com/nats-io/nats.go"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Display IAM resources",
	Long:  `Display IAM resources served by a running gateway, such as users and policies.`,
}

var getStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display gateway status",
	Run:   runGetStatus,
}

var getUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Display IAM users",
	Run:   runGetUsers,
}

var getPoliciesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Display managed IAM policies",
	Run:   runGetPolicies,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.AddCommand(getStatusCmd)
	getCmd.AddCommand(getUsersCmd)
	getCmd.AddCommand(getPoliciesCmd)

	getCmd.PersistentFlags().Duration("timeout", 3*time.Second, "Timeout waiting for a gateway response")
}

// connectNATS connects using the loaded config plus CLI overrides.
func connectNATS() (*nats.Conn, error) {
	host := viper.GetString("nats-host")
	token := viper.GetString("nats-token")

	if appConfig != nil {
		if host == "" {
			host = appConfig.NATS.Host
		}
		if token == "" {
			token = appConfig.NATS.ACL.Token
		}
	}
	if host == "" {
		host = nats.DefaultURL
	}

	return utils.ConnectNATS(host, token)
}

func getTimeout(cmd *cobra.Command) time.Duration {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil || timeout <= 0 {
		return 3 * time.Second
	}
	return timeout
}

func runGetStatus(cmd *cobra.Command, args []string) {
	nc, err := connectNATS()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to NATS: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	status, err := utils.NATSRequest[awsgw.NodeStatus](nc, awsgw.SubjectNodeStatus, nil, getTimeout(cmd))
	if err != nil {
		fmt.Fprintf(os.Stderr, "No gateway responded: %v\n", err)
		os.Exit(1)
	}

	table := pterm.TableData{
		{"NODE", "HOST", "REGION", "UPTIME", "USERS", "POLICIES"},
		{
			status.Node,
			status.Host,
			status.Region,
			status.Uptime,
			strconv.Itoa(status.Users),
			strconv.Itoa(status.Policies),
		},
	}

	pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func runGetUsers(cmd *cobra.Command, args []string) {
	nc, err := connectNATS()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to NATS: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	users, err := utils.NATSRequest[[]awsgw.UserSummary](nc, awsgw.SubjectIAMUsers, nil, getTimeout(cmd))
	if err != nil {
		fmt.Fprintf(os.Stderr, "No gateway responded: %v\n", err)
		os.Exit(1)
	}

	table := pterm.TableData{{"USER", "USER ID", "ARN", "CREATED"}}
	for _, u := range *users {
		table = append(table, []string{u.UserName, u.UserID, u.ARN, u.CreatedAt})
	}

	pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

func runGetPolicies(cmd *cobra.Command, args []string) {
	nc, err := connectNATS()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to NATS: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	policies, err := utils.NATSRequest[[]awsgw.PolicySummary](nc, awsgw.SubjectIAMPolicies, nil, getTimeout(cmd))
	if err != nil {
		fmt.Fprintf(os.Stderr, "No gateway responded: %v\n", err)
		os.Exit(1)
	}

	table := pterm.TableData{{"POLICY", "ARN", "ATTACHMENTS", "CREATED"}}
	for _, p := range *policies {
		table = append(table, []string{p.PolicyName, p.ARN, strconv.Itoa(p.AttachmentCount), p.CreatedAt})
	}

	pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}
