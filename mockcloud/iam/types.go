package iam

// RootAccountID is the account every deployment is bootstrapped with.
const RootAccountID = "000000000000"

// RootUserName is the seeded administrative identity for an account.
const RootUserName = "root"

type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type User struct {
	UserName         string   `json:"user_name"`
	UserID           string   `json:"user_id"`
	ARN              string   `json:"arn"`
	Path             string   `json:"path"`
	AccountID        string   `json:"account_id"`
	CreatedAt        string   `json:"created_at"`
	AccessKeys       []string `json:"access_keys,omitempty"`
	Groups           []string `json:"groups,omitempty"`
	AttachedPolicies []string `json:"attached_policies,omitempty"`
	Tags             []Tag    `json:"tags,omitempty"`
}

type Group struct {
	GroupName        string   `json:"group_name"`
	GroupID          string   `json:"group_id"`
	ARN              string   `json:"arn"`
	Path             string   `json:"path"`
	AccountID        string   `json:"account_id"`
	CreatedAt        string   `json:"created_at"`
	Members          []string `json:"members,omitempty"`
	AttachedPolicies []string `json:"attached_policies,omitempty"`
}

type Role struct {
	RoleName         string   `json:"role_name"`
	RoleID           string   `json:"role_id"`
	ARN              string   `json:"arn"`
	Path             string   `json:"path"`
	AccountID        string   `json:"account_id"`
	CreatedAt        string   `json:"created_at"`
	Description      string   `json:"description,omitempty"`
	TrustPolicy      string   `json:"trust_policy"`
	AttachedPolicies []string `json:"attached_policies,omitempty"`
}

type Policy struct {
	PolicyName     string `json:"policy_name"`
	PolicyID       string `json:"policy_id"`
	ARN            string `json:"arn"`
	Path           string `json:"path"`
	AccountID      string `json:"account_id"`
	Description    string `json:"description,omitempty"`
	PolicyDocument string `json:"policy_document"`
	DefaultVersion string `json:"default_version"`
	CreatedAt      string `json:"created_at"`
	Tags           []Tag  `json:"tags,omitempty"`
}

type AccessKey struct {
	AccessKeyID     string `json:"access_key_id"`
	EncryptedSecret string `json:"encrypted_secret"`
	UserName        string `json:"user_name"`
	AccountID       string `json:"account_id"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

// ResourcePolicy is a policy attached directly to a resource rather than
// to a principal. Keyed by (resource type, resource ID) within an account.
type ResourcePolicy struct {
	ResourceType   string `json:"resource_type"`
	ResourceID     string `json:"resource_id"`
	AccountID      string `json:"account_id"`
	PolicyDocument string `json:"policy_document"`
	CreatedAt      string `json:"created_at"`
}

// BootstrapData holds the root credentials written during first boot.
type BootstrapData struct {
	AccountID       string `json:"account_id"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
}
