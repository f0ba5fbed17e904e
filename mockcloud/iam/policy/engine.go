package policy

import (
	"fmt"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

// Resolver supplies the policy documents the engine evaluates. The IAM
// store implements it; evaluations see whatever snapshot the store's
// locking discipline provides.
type Resolver interface {
	// GetPrincipalPolicies returns every document attached to the user
	// directly or through group membership. Fails with NoSuchEntity for
	// an unknown user.
	GetPrincipalPolicies(accountID, userName string) ([]SourcedDocument, error)

	// GetRolePolicies returns every document attached to the role.
	GetRolePolicies(accountID, roleName string) ([]SourcedDocument, error)

	// GetResourcePolicyDocument returns the resource-based policy
	// covering the resource named in a request, or nil when none is set.
	GetResourcePolicyDocument(accountID, resource string) (*SourcedDocument, error)

	// GetPolicyDocument returns a managed policy's document by name.
	GetPolicyDocument(accountID, policyName string) (*SourcedDocument, error)
}

// Engine answers authorization questions by resolving the applicable
// statement set through a Resolver and evaluating it. The engine itself
// holds no state between calls.
type Engine struct {
	resolver Resolver
}

func NewEngine(resolver Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// AccessResult is the answer to a CheckPermission call.
type AccessResult struct {
	Allowed bool
	Reason  string
}

// CheckPermission decides whether the principal may perform the action on
// the resource. The applicable set is the union of the principal's direct
// policies, policies inherited through groups, and any resource-based
// policy whose Principal clause covers the requester. The account root
// identity bypasses evaluation entirely.
func (e *Engine) CheckPermission(accountID string, req *Request) (*AccessResult, error) {
	if req.Principal == iam.RootUserName {
		return &AccessResult{Allowed: true, Reason: "root credentials bypass policy evaluation"}, nil
	}

	docs, err := e.resolver.GetPrincipalPolicies(accountID, req.Principal)
	if err != nil {
		return nil, err
	}

	resourceDoc, err := e.resolver.GetResourcePolicyDocument(accountID, req.Resource)
	if err != nil {
		return nil, err
	}
	if resourceDoc != nil {
		docs = append(docs, *resourceDoc)
	}

	trace := Simulate(docs, req)
	return &AccessResult{
		Allowed: trace.Decision == DecisionAllow,
		Reason:  decisionReason(trace, req),
	}, nil
}

// CheckRolePermission is CheckPermission for a role principal. Roles have
// no group memberships, only directly attached policies.
func (e *Engine) CheckRolePermission(accountID string, req *Request) (*AccessResult, error) {
	docs, err := e.resolver.GetRolePolicies(accountID, req.Principal)
	if err != nil {
		return nil, err
	}

	resourceDoc, err := e.resolver.GetResourcePolicyDocument(accountID, req.Resource)
	if err != nil {
		return nil, err
	}
	if resourceDoc != nil {
		docs = append(docs, *resourceDoc)
	}

	trace := Simulate(docs, req)
	return &AccessResult{
		Allowed: trace.Decision == DecisionAllow,
		Reason:  decisionReason(trace, req),
	}, nil
}

func decisionReason(trace *SimulationTrace, req *Request) string {
	for _, st := range trace.Statements {
		if st.Result == ResultDeny {
			return fmt.Sprintf("explicitly denied by policy %q", st.PolicyName)
		}
	}
	for _, st := range trace.Statements {
		if st.Result == ResultAllow {
			return fmt.Sprintf("allowed by policy %q", st.PolicyName)
		}
	}
	return fmt.Sprintf("no statement allows %s on %s", req.Action, req.Resource)
}

// SimulationSource selects which documents a simulation runs against. At
// least one of the fields must be set; they combine additively.
type SimulationSource struct {
	// PolicyName selects an existing managed policy by name.
	PolicyName string
	// Document is an ad-hoc document supplied with the request.
	Document *iam.PolicyDocument
	// Principal merges in every policy attached to the named user,
	// directly or through groups. The user must exist.
	Principal string
	// Role merges in every policy attached to the named role.
	Role string
}

// SimulatePolicy runs a what-if evaluation without touching any stored
// state. The returned trace explains the contribution of every statement
// in the assembled document set.
func (e *Engine) SimulatePolicy(accountID string, source SimulationSource, req *Request) (*SimulationTrace, error) {
	var docs []SourcedDocument

	if source.PolicyName != "" {
		doc, err := e.resolver.GetPolicyDocument(accountID, source.PolicyName)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if source.Document != nil {
		docs = append(docs, SourcedDocument{PolicyName: "CustomPolicy", Document: source.Document})
	}

	if source.Principal != "" {
		attached, err := e.resolver.GetPrincipalPolicies(accountID, source.Principal)
		if err != nil {
			return nil, err
		}
		docs = append(docs, attached...)
	}

	if source.Role != "" {
		attached, err := e.resolver.GetRolePolicies(accountID, source.Role)
		if err != nil {
			return nil, err
		}
		docs = append(docs, attached...)
	}

	return Simulate(docs, req), nil
}
