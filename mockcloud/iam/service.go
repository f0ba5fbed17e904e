package iam

import (
	awsiam "github.com/aws/aws-sdk-go/service/iam"
)

// Service is the IAM control plane. Every operation is scoped to an
// account: entities created under one account are invisible to every
// other. The gateway derives the account from the authenticated caller.
type Service interface {
	// User CRUD
	CreateUser(accountID string, input *awsiam.CreateUserInput) (*awsiam.CreateUserOutput, error)
	GetUser(accountID string, input *awsiam.GetUserInput) (*awsiam.GetUserOutput, error)
	ListUsers(accountID string, input *awsiam.ListUsersInput) (*awsiam.ListUsersOutput, error)
	DeleteUser(accountID string, input *awsiam.DeleteUserInput) (*awsiam.DeleteUserOutput, error)

	// Group CRUD and membership
	CreateGroup(accountID string, input *awsiam.CreateGroupInput) (*awsiam.CreateGroupOutput, error)
	GetGroup(accountID string, input *awsiam.GetGroupInput) (*awsiam.GetGroupOutput, error)
	ListGroups(accountID string, input *awsiam.ListGroupsInput) (*awsiam.ListGroupsOutput, error)
	DeleteGroup(accountID string, input *awsiam.DeleteGroupInput) (*awsiam.DeleteGroupOutput, error)
	AddUserToGroup(accountID string, input *awsiam.AddUserToGroupInput) (*awsiam.AddUserToGroupOutput, error)
	RemoveUserFromGroup(accountID string, input *awsiam.RemoveUserFromGroupInput) (*awsiam.RemoveUserFromGroupOutput, error)
	ListGroupsForUser(accountID string, input *awsiam.ListGroupsForUserInput) (*awsiam.ListGroupsForUserOutput, error)

	// Role CRUD
	CreateRole(accountID string, input *awsiam.CreateRoleInput) (*awsiam.CreateRoleOutput, error)
	GetRole(accountID string, input *awsiam.GetRoleInput) (*awsiam.GetRoleOutput, error)
	ListRoles(accountID string, input *awsiam.ListRolesInput) (*awsiam.ListRolesOutput, error)
	DeleteRole(accountID string, input *awsiam.DeleteRoleInput) (*awsiam.DeleteRoleOutput, error)

	// Access key lifecycle
	CreateAccessKey(accountID string, input *awsiam.CreateAccessKeyInput) (*awsiam.CreateAccessKeyOutput, error)
	ListAccessKeys(accountID string, input *awsiam.ListAccessKeysInput) (*awsiam.ListAccessKeysOutput, error)
	DeleteAccessKey(accountID string, input *awsiam.DeleteAccessKeyInput) (*awsiam.DeleteAccessKeyOutput, error)
	UpdateAccessKey(accountID string, input *awsiam.UpdateAccessKeyInput) (*awsiam.UpdateAccessKeyOutput, error)

	// Policy CRUD
	CreatePolicy(accountID string, input *awsiam.CreatePolicyInput) (*awsiam.CreatePolicyOutput, error)
	GetPolicy(accountID string, input *awsiam.GetPolicyInput) (*awsiam.GetPolicyOutput, error)
	GetPolicyVersion(accountID string, input *awsiam.GetPolicyVersionInput) (*awsiam.GetPolicyVersionOutput, error)
	ListPolicies(accountID string, input *awsiam.ListPoliciesInput) (*awsiam.ListPoliciesOutput, error)
	DeletePolicy(accountID string, input *awsiam.DeletePolicyInput) (*awsiam.DeletePolicyOutput, error)

	// Policy attachment
	AttachUserPolicy(accountID string, input *awsiam.AttachUserPolicyInput) (*awsiam.AttachUserPolicyOutput, error)
	DetachUserPolicy(accountID string, input *awsiam.DetachUserPolicyInput) (*awsiam.DetachUserPolicyOutput, error)
	ListAttachedUserPolicies(accountID string, input *awsiam.ListAttachedUserPoliciesInput) (*awsiam.ListAttachedUserPoliciesOutput, error)
	AttachGroupPolicy(accountID string, input *awsiam.AttachGroupPolicyInput) (*awsiam.AttachGroupPolicyOutput, error)
	DetachGroupPolicy(accountID string, input *awsiam.DetachGroupPolicyInput) (*awsiam.DetachGroupPolicyOutput, error)
	ListAttachedGroupPolicies(accountID string, input *awsiam.ListAttachedGroupPoliciesInput) (*awsiam.ListAttachedGroupPoliciesOutput, error)
	AttachRolePolicy(accountID string, input *awsiam.AttachRolePolicyInput) (*awsiam.AttachRolePolicyOutput, error)
	DetachRolePolicy(accountID string, input *awsiam.DetachRolePolicyInput) (*awsiam.DetachRolePolicyOutput, error)
	ListAttachedRolePolicies(accountID string, input *awsiam.ListAttachedRolePoliciesInput) (*awsiam.ListAttachedRolePoliciesOutput, error)

	// Resource-based policies
	PutResourcePolicy(accountID string, input *PutResourcePolicyInput) (*PutResourcePolicyOutput, error)
	GetResourcePolicy(accountID string, input *GetResourcePolicyInput) (*GetResourcePolicyOutput, error)
	DeleteResourcePolicy(accountID string, input *DeleteResourcePolicyInput) (*DeleteResourcePolicyOutput, error)

	// Policy resolution (used by the evaluation engine)
	GetPrincipalPolicies(accountID, userName string) ([]SourcedDocument, error)
	GetRolePolicies(accountID, roleName string) ([]SourcedDocument, error)
	GetResourcePolicyDocument(accountID, resource string) (*SourcedDocument, error)
	GetPolicyDocument(accountID, policyName string) (*SourcedDocument, error)

	// Auth (used by SigV4 middleware and bootstrap, not exposed via gateway)
	LookupAccessKey(accessKeyID string) (*AccessKey, error)
	DecryptSecret(encrypted string) (string, error)
	SeedRootUser(data *BootstrapData) error
	IsEmpty() (bool, error)
}

// PutResourcePolicyInput attaches a policy document to a resource.
// ResourceType is the ARN service name ("s3"), ResourceId the top-level
// resource within it ("my-bucket").
type PutResourcePolicyInput struct {
	ResourceType   *string `locationName:"ResourceType" type:"string"`
	ResourceId     *string `locationName:"ResourceId" type:"string"`
	PolicyDocument *string `locationName:"PolicyDocument" type:"string"`
}

type PutResourcePolicyOutput struct {
	ResourceType *string `locationName:"ResourceType" type:"string"`
	ResourceId   *string `locationName:"ResourceId" type:"string"`
}

type GetResourcePolicyInput struct {
	ResourceType *string `locationName:"ResourceType" type:"string"`
	ResourceId   *string `locationName:"ResourceId" type:"string"`
}

type GetResourcePolicyOutput struct {
	ResourceType   *string `locationName:"ResourceType" type:"string"`
	ResourceId     *string `locationName:"ResourceId" type:"string"`
	PolicyDocument *string `locationName:"PolicyDocument" type:"string"`
	CreateDate     *string `locationName:"CreateDate" type:"string"`
}

type DeleteResourcePolicyInput struct {
	ResourceType *string `locationName:"ResourceType" type:"string"`
	ResourceId   *string `locationName:"ResourceId" type:"string"`
}

type DeleteResourcePolicyOutput struct{}

// CheckPermissionInput asks whether a principal may perform an action on
// a resource. Context entries supply condition keys (aws:SourceIp and
// friends) for the evaluation.
type CheckPermissionInput struct {
	UserName       *string                `locationName:"UserName" type:"string"`
	ActionName     *string                `locationName:"ActionName" type:"string"`
	ResourceArn    *string                `locationName:"ResourceArn" type:"string"`
	ContextEntries []*awsiam.ContextEntry `locationName:"ContextEntries" type:"list"`
}

type CheckPermissionOutput struct {
	Allowed *bool   `locationName:"Allowed" type:"boolean"`
	Reason  *string `locationName:"Reason" type:"string"`
}
