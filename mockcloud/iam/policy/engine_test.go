package policy

import (
	"testing"

	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

// stubResolver serves canned documents for engine tests.
type stubResolver struct {
	userPolicies map[string][]SourcedDocument
	rolePolicies map[string][]SourcedDocument
	resource     map[string]*SourcedDocument
	policies     map[string]*SourcedDocument
}

func (s *stubResolver) GetPrincipalPolicies(accountID, userName string) ([]SourcedDocument, error) {
	docs, ok := s.userPolicies[userName]
	if !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "user %s not found", userName)
	}
	return docs, nil
}

func (s *stubResolver) GetRolePolicies(accountID, roleName string) ([]SourcedDocument, error) {
	docs, ok := s.rolePolicies[roleName]
	if !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "role %s not found", roleName)
	}
	return docs, nil
}

func (s *stubResolver) GetResourcePolicyDocument(accountID, resource string) (*SourcedDocument, error) {
	return s.resource[resource], nil
}

func (s *stubResolver) GetPolicyDocument(accountID, policyName string) (*SourcedDocument, error) {
	doc, ok := s.policies[policyName]
	if !ok {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMNoSuchEntity, "policy %s not found", policyName)
	}
	return doc, nil
}

func TestEngine_CheckPermission(t *testing.T) {
	engine := NewEngine(&stubResolver{
		userPolicies: map[string][]SourcedDocument{
			"alice": {
				doc("Allow", "s3:Get*", "arn:aws:s3:::my-bucket/*"),
				doc("Deny", "s3:GetObject", "arn:aws:s3:::my-bucket/secret/*"),
			},
			"bob": {},
		},
	})

	result, err := engine.CheckPermission(iam.RootAccountID, &Request{
		Principal: "alice", Action: "s3:GetObject", Resource: "arn:aws:s3:::my-bucket/public/readme",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed, got denied: %s", result.Reason)
	}

	result, err = engine.CheckPermission(iam.RootAccountID, &Request{
		Principal: "alice", Action: "s3:GetObject", Resource: "arn:aws:s3:::my-bucket/secret/key",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected explicit deny to win")
	}

	result, err = engine.CheckPermission(iam.RootAccountID, &Request{
		Principal: "bob", Action: "s3:GetObject", Resource: "arn:aws:s3:::my-bucket/public/readme",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected default deny for a user with no policies")
	}
}

func TestEngine_CheckPermission_UnknownPrincipal(t *testing.T) {
	engine := NewEngine(&stubResolver{userPolicies: map[string][]SourcedDocument{}})

	_, err := engine.CheckPermission(iam.RootAccountID, &Request{
		Principal: "ghost", Action: "s3:GetObject", Resource: "*",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown principal")
	}
	awsErr, ok := err.(*awserrors.AWSError)
	if !ok || awsErr.Code != awserrors.ErrorIAMNoSuchEntity {
		t.Fatalf("expected NoSuchEntity, got %v", err)
	}
}

func TestEngine_CheckPermission_RootBypass(t *testing.T) {
	// Root never reaches the resolver at all.
	engine := NewEngine(&stubResolver{})

	result, err := engine.CheckPermission(iam.RootAccountID, &Request{
		Principal: iam.RootUserName, Action: "iam:DeleteUser", Resource: "*",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected root bypass to allow")
	}
}

func TestEngine_CheckPermission_ResourcePolicy(t *testing.T) {
	sharedDoc := &iam.PolicyDocument{
		Version: iam.PolicyVersion,
		Statement: []iam.Statement{
			{
				Effect:    "Allow",
				Principal: &iam.Principal{AWS: iam.StringOrArr{"arn:aws:iam::000000000000:user/alice"}},
				Action:    iam.StringOrArr{"s3:GetObject"},
				Resource:  iam.StringOrArr{"arn:aws:s3:::shared/*"},
			},
		},
	}
	engine := NewEngine(&stubResolver{
		userPolicies: map[string][]SourcedDocument{"alice": {}, "bob": {}},
		resource: map[string]*SourcedDocument{
			"arn:aws:s3:::shared/report.csv": {PolicyName: "shared-bucket", Document: sharedDoc},
		},
	})

	result, err := engine.CheckPermission(iam.RootAccountID, &Request{
		Principal:    "alice",
		PrincipalARN: "arn:aws:iam::000000000000:user/alice",
		Action:       "s3:GetObject",
		Resource:     "arn:aws:s3:::shared/report.csv",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected resource policy to allow alice: %s", result.Reason)
	}

	result, err = engine.CheckPermission(iam.RootAccountID, &Request{
		Principal:    "bob",
		PrincipalARN: "arn:aws:iam::000000000000:user/bob",
		Action:       "s3:GetObject",
		Resource:     "arn:aws:s3:::shared/report.csv",
	})
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected resource policy not to cover bob")
	}
}

func TestEngine_CheckRolePermission(t *testing.T) {
	engine := NewEngine(&stubResolver{
		rolePolicies: map[string][]SourcedDocument{
			"deploy": {doc("Allow", "ec2:RunInstances", "*")},
		},
	})

	result, err := engine.CheckRolePermission(iam.RootAccountID, &Request{
		Principal: "deploy", Action: "ec2:RunInstances", Resource: "*",
	})
	if err != nil {
		t.Fatalf("CheckRolePermission: %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected role policy to allow")
	}
}

func TestEngine_SimulatePolicy(t *testing.T) {
	engine := NewEngine(&stubResolver{
		userPolicies: map[string][]SourcedDocument{
			"alice": {doc("Allow", "ec2:Describe*", "*")},
		},
		policies: map[string]*SourcedDocument{
			"s3-read": {PolicyName: "s3-read", Document: &iam.PolicyDocument{
				Version: iam.PolicyVersion,
				Statement: []iam.Statement{
					{Effect: "Allow", Action: iam.StringOrArr{"s3:Get*"}, Resource: iam.StringOrArr{"*"}},
				},
			}},
		},
	})

	// Existing policy by name.
	trace, err := engine.SimulatePolicy(iam.RootAccountID, SimulationSource{PolicyName: "s3-read"},
		req("s3:GetObject", "arn:aws:s3:::any/key"))
	if err != nil {
		t.Fatalf("SimulatePolicy: %v", err)
	}
	if trace.Decision != DecisionAllow {
		t.Fatalf("expected Allow, got %v", trace.Decision)
	}

	// Unknown policy name.
	if _, err := engine.SimulatePolicy(iam.RootAccountID, SimulationSource{PolicyName: "nope"},
		req("s3:GetObject", "*")); err == nil {
		t.Fatal("expected NoSuchEntity for unknown policy")
	}

	// Ad-hoc document combined with a principal's attached policies.
	custom := &iam.PolicyDocument{
		Version: iam.PolicyVersion,
		Statement: []iam.Statement{
			{Effect: "Deny", Action: iam.StringOrArr{"ec2:DescribeInstances"}, Resource: iam.StringOrArr{"*"}},
		},
	}
	trace, err = engine.SimulatePolicy(iam.RootAccountID,
		SimulationSource{Document: custom, Principal: "alice"},
		req("ec2:DescribeInstances", "*"))
	if err != nil {
		t.Fatalf("SimulatePolicy: %v", err)
	}
	if trace.Decision != DecisionDeny {
		t.Fatalf("expected custom deny to override attached allow, got %v", trace.Decision)
	}
	if len(trace.Statements) != 2 {
		t.Fatalf("expected combined trace over both documents, got %d entries", len(trace.Statements))
	}
}
