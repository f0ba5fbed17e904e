package awsgw

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/config"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
	"github.com/mulgadc/mockcloud/mockcloud/utils"
	"github.com/nats-io/nats.go"
)

// NATS subjects served by the gateway for CLI inspection.
const (
	SubjectNodeStatus  = "mockcloud.node.status"
	SubjectIAMUsers    = "mockcloud.iam.users"
	SubjectIAMPolicies = "mockcloud.iam.policies"
)

// NodeStatus is the fan-out status response for a running gateway.
type NodeStatus struct {
	Node     string `json:"node"`
	Host     string `json:"host"`
	Region   string `json:"region"`
	Uptime   string `json:"uptime"`
	Users    int    `json:"users"`
	Policies int    `json:"policies"`
}

// UserSummary is the wire form of a user for CLI listings.
type UserSummary struct {
	UserName  string `json:"user_name"`
	UserID    string `json:"user_id"`
	ARN       string `json:"arn"`
	CreatedAt string `json:"created_at"`
}

// PolicySummary is the wire form of a managed policy for CLI listings.
type PolicySummary struct {
	PolicyName      string `json:"policy_name"`
	ARN             string `json:"arn"`
	AttachmentCount int    `json:"attachment_count"`
	CreatedAt       string `json:"created_at"`
}

// registerAdminSubjects exposes read-only state over NATS for the CLI.
func registerAdminSubjects(nc *nats.Conn, cfg *config.Config, store *iam.Store) error {
	started := time.Now()

	_, err := nc.Subscribe(SubjectNodeStatus, func(msg *nats.Msg) {
		users := listUsers(store)
		policies := listPolicies(store)
		respond(msg, NodeStatus{
			Node:     cfg.Node,
			Host:     cfg.Gateway.Host,
			Region:   cfg.Region,
			Uptime:   time.Since(started).Round(time.Second).String(),
			Users:    len(users),
			Policies: len(policies),
		})
	})
	if err != nil {
		return err
	}

	_, err = nc.Subscribe(SubjectIAMUsers, func(msg *nats.Msg) {
		respond(msg, listUsers(store))
	})
	if err != nil {
		return err
	}

	_, err = nc.Subscribe(SubjectIAMPolicies, func(msg *nats.Msg) {
		respond(msg, listPolicies(store))
	})
	return err
}

func listUsers(store *iam.Store) []UserSummary {
	out, err := store.ListUsers(iam.RootAccountID, &awsiam.ListUsersInput{})
	if err != nil {
		return nil
	}

	users := make([]UserSummary, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, UserSummary{
			UserName:  aws.StringValue(u.UserName),
			UserID:    aws.StringValue(u.UserId),
			ARN:       aws.StringValue(u.Arn),
			CreatedAt: aws.TimeValue(u.CreateDate).Format(time.RFC3339),
		})
	}
	return users
}

func listPolicies(store *iam.Store) []PolicySummary {
	out, err := store.ListPolicies(iam.RootAccountID, &awsiam.ListPoliciesInput{})
	if err != nil {
		return nil
	}

	policies := make([]PolicySummary, 0, len(out.Policies))
	for _, p := range out.Policies {
		policies = append(policies, PolicySummary{
			PolicyName:      aws.StringValue(p.PolicyName),
			ARN:             aws.StringValue(p.Arn),
			AttachmentCount: int(aws.Int64Value(p.AttachmentCount)),
			CreatedAt:       aws.TimeValue(p.CreateDate).Format(time.RFC3339),
		})
	}
	return policies
}

func respond(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = utils.GenerateErrorPayload("InternalError")
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn("Failed to respond on admin subject", "subject", msg.Subject, "err", err)
	}
}
