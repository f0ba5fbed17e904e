package policy

// IAMAction converts a gateway service name and action name into the
// IAM policy action format "service:ActionName".
// For example: ("iam", "CreateUser") -> "iam:CreateUser"
func IAMAction(service, action string) string {
	return service + ":" + action
}

// iamActions is the set of known IAM gateway action names.
var iamActions = map[string]bool{
	// Users
	"CreateUser": true,
	"GetUser":    true,
	"ListUsers":  true,
	"DeleteUser": true,

	// Groups
	"CreateGroup":         true,
	"GetGroup":            true,
	"ListGroups":          true,
	"DeleteGroup":         true,
	"AddUserToGroup":      true,
	"RemoveUserFromGroup": true,
	"ListGroupsForUser":   true,

	// Roles
	"CreateRole": true,
	"GetRole":    true,
	"ListRoles":  true,
	"DeleteRole": true,

	// Access keys
	"CreateAccessKey": true,
	"ListAccessKeys":  true,
	"DeleteAccessKey": true,
	"UpdateAccessKey": true,

	// Policies
	"CreatePolicy":     true,
	"GetPolicy":        true,
	"GetPolicyVersion": true,
	"ListPolicies":     true,
	"DeletePolicy":     true,

	// Policy attachment
	"AttachUserPolicy":          true,
	"DetachUserPolicy":          true,
	"ListAttachedUserPolicies":  true,
	"AttachGroupPolicy":         true,
	"DetachGroupPolicy":         true,
	"ListAttachedGroupPolicies": true,
	"AttachRolePolicy":          true,
	"DetachRolePolicy":          true,
	"ListAttachedRolePolicies":  true,

	// Simulation
	"SimulatePrincipalPolicy": true,
	"SimulateCustomPolicy":    true,

	// Authorization extensions
	"CheckPermission":      true,
	"PutResourcePolicy":    true,
	"GetResourcePolicy":    true,
	"DeleteResourcePolicy": true,
}

// LookupAction resolves a gateway (service, action) pair to the IAM action
// string used in policy documents. Returns the IAM action string and true
// if found, or ("", false) if the action is unknown.
func LookupAction(service, action string) (string, bool) {
	switch service {
	case "iam":
		if !iamActions[action] {
			return "", false
		}
	default:
		return "", false
	}
	return IAMAction(service, action), true
}
