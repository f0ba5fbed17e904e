package policy

import (
	"testing"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

// helper to build a single-statement policy document.
func doc(effect, action, resource string) SourcedDocument {
	return SourcedDocument{
		PolicyName: "test-policy",
		Document: &iam.PolicyDocument{
			Version: iam.PolicyVersion,
			Statement: []iam.Statement{
				{Effect: effect, Action: iam.StringOrArr{action}, Resource: iam.StringOrArr{resource}},
			},
		},
	}
}

func req(action, resource string) *Request {
	return &Request{Principal: "alice", Action: action, Resource: resource}
}

func TestEvaluate_DefaultDeny(t *testing.T) {
	if got := Evaluate(nil, req("s3:GetObject", "*")); got != DecisionDeny {
		t.Fatalf("expected default Deny with no policies, got %v", got)
	}
	if got := Evaluate([]SourcedDocument{}, req("s3:GetObject", "*")); got != DecisionDeny {
		t.Fatalf("expected default Deny with empty policies, got %v", got)
	}
}

func TestEvaluate_ExplicitAllow(t *testing.T) {
	docs := []SourcedDocument{doc("Allow", "s3:GetObject", "*")}
	if got := Evaluate(docs, req("s3:GetObject", "arn:aws:s3:::my-bucket/key")); got != DecisionAllow {
		t.Fatalf("expected Allow, got %v", got)
	}
}

func TestEvaluate_ExplicitDenyWins(t *testing.T) {
	docs := []SourcedDocument{
		doc("Allow", "s3:*", "*"),
		doc("Deny", "s3:DeleteObject", "*"),
	}
	if got := Evaluate(docs, req("s3:DeleteObject", "*")); got != DecisionDeny {
		t.Fatalf("expected Deny (explicit deny wins), got %v", got)
	}
	if got := Evaluate(docs, req("s3:GetObject", "*")); got != DecisionAllow {
		t.Fatalf("expected Allow for untouched action, got %v", got)
	}
}

func TestEvaluate_OrderIndependent(t *testing.T) {
	forward := []SourcedDocument{
		doc("Allow", "s3:*", "*"),
		doc("Deny", "s3:DeleteObject", "*"),
	}
	reversed := []SourcedDocument{
		doc("Deny", "s3:DeleteObject", "*"),
		doc("Allow", "s3:*", "*"),
	}

	for _, action := range []string{"s3:DeleteObject", "s3:GetObject", "ec2:RunInstances"} {
		a := Evaluate(forward, req(action, "*"))
		b := Evaluate(reversed, req(action, "*"))
		if a != b {
			t.Errorf("action %s: decision depends on document order (%v vs %v)", action, a, b)
		}
	}
}

func TestEvaluate_ResourceScoping(t *testing.T) {
	docs := []SourcedDocument{doc("Allow", "s3:GetObject", "arn:aws:s3:::my-bucket/*")}

	tests := []struct {
		resource string
		want     Decision
	}{
		{"arn:aws:s3:::my-bucket/reports/q1.csv", DecisionAllow},
		{"arn:aws:s3:::my-bucket/", DecisionAllow},
		{"arn:aws:s3:::other-bucket/file", DecisionDeny},
		{"*", DecisionDeny},
	}

	for _, tt := range tests {
		if got := Evaluate(docs, req("s3:GetObject", tt.resource)); got != tt.want {
			t.Errorf("resource %s: expected %v, got %v", tt.resource, tt.want, got)
		}
	}
}

func TestEvaluate_CaseSensitive(t *testing.T) {
	docs := []SourcedDocument{doc("Allow", "s3:getobject", "*")}
	if got := Evaluate(docs, req("s3:GetObject", "*")); got != DecisionDeny {
		t.Fatalf("expected Deny (patterns are case-sensitive), got %v", got)
	}
}

func TestEvaluateStatement_Results(t *testing.T) {
	stmt := &iam.Statement{
		Effect:   "Allow",
		Action:   iam.StringOrArr{"s3:Get*"},
		Resource: iam.StringOrArr{"arn:aws:s3:::my-bucket/*"},
	}

	eval := EvaluateStatement(stmt, req("s3:GetObject", "arn:aws:s3:::my-bucket/key"))
	if eval.Result != ResultAllow {
		t.Fatalf("expected Allow, got %v", eval.Result)
	}
	if eval.ActionPattern != "s3:Get*" || eval.ResourcePattern != "arn:aws:s3:::my-bucket/*" {
		t.Fatalf("unexpected matched patterns: %q, %q", eval.ActionPattern, eval.ResourcePattern)
	}

	eval = EvaluateStatement(stmt, req("s3:PutObject", "arn:aws:s3:::my-bucket/key"))
	if eval.Result != ResultNotApplicable {
		t.Fatalf("expected NotApplicable for unmatched action, got %v", eval.Result)
	}

	eval = EvaluateStatement(stmt, req("s3:GetObject", "arn:aws:s3:::other/key"))
	if eval.Result != ResultNotApplicable {
		t.Fatalf("expected NotApplicable for unmatched resource, got %v", eval.Result)
	}
	if eval.ActionPattern != "s3:Get*" {
		t.Fatalf("expected action pattern reported on resource mismatch, got %q", eval.ActionPattern)
	}
}

func TestEvaluateStatement_DenyEffect(t *testing.T) {
	stmt := &iam.Statement{
		Effect:   "Deny",
		Action:   iam.StringOrArr{"*"},
		Resource: iam.StringOrArr{"*"},
	}
	if eval := EvaluateStatement(stmt, req("s3:GetObject", "*")); eval.Result != ResultDeny {
		t.Fatalf("expected Deny, got %v", eval.Result)
	}
}

func TestEvaluateStatement_ConditionGates(t *testing.T) {
	stmt := &iam.Statement{
		Effect:   "Allow",
		Action:   iam.StringOrArr{"s3:GetObject"},
		Resource: iam.StringOrArr{"*"},
		Condition: iam.ConditionBlock{
			iam.OpIPAddress: {"aws:SourceIp": {"10.0.0.0/8"}},
		},
	}

	r := req("s3:GetObject", "*")
	r.Context = Context{"aws:SourceIp": "10.1.2.3"}
	if eval := EvaluateStatement(stmt, r); eval.Result != ResultAllow {
		t.Fatalf("expected Allow inside the CIDR, got %v", eval.Result)
	}

	r.Context = Context{"aws:SourceIp": "8.8.8.8"}
	eval := EvaluateStatement(stmt, r)
	if eval.Result != ResultNotApplicable {
		t.Fatalf("expected NotApplicable outside the CIDR, got %v", eval.Result)
	}
	if eval.FailedCondition != "IpAddress:aws:SourceIp" {
		t.Fatalf("unexpected failed condition %q", eval.FailedCondition)
	}

	// No context at all: the condition fails closed.
	r.Context = nil
	if eval := EvaluateStatement(stmt, r); eval.Result != ResultNotApplicable {
		t.Fatalf("expected NotApplicable with no context, got %v", eval.Result)
	}
}

func TestEvaluateStatement_PrincipalClause(t *testing.T) {
	stmt := &iam.Statement{
		Effect:    "Allow",
		Principal: &iam.Principal{AWS: iam.StringOrArr{"arn:aws:iam::000000000000:user/alice"}},
		Action:    iam.StringOrArr{"s3:GetObject"},
		Resource:  iam.StringOrArr{"*"},
	}

	r := &Request{
		Principal:    "alice",
		PrincipalARN: "arn:aws:iam::000000000000:user/alice",
		Action:       "s3:GetObject",
		Resource:     "arn:aws:s3:::shared/file",
	}
	if eval := EvaluateStatement(stmt, r); eval.Result != ResultAllow {
		t.Fatalf("expected Allow for the named principal, got %v", eval.Result)
	}

	r.Principal = "bob"
	r.PrincipalARN = "arn:aws:iam::000000000000:user/bob"
	if eval := EvaluateStatement(stmt, r); eval.Result != ResultNotApplicable {
		t.Fatalf("expected NotApplicable for a different principal, got %v", eval.Result)
	}

	stmt.Principal = &iam.Principal{Wildcard: true}
	if eval := EvaluateStatement(stmt, r); eval.Result != ResultAllow {
		t.Fatalf("expected Allow for wildcard principal, got %v", eval.Result)
	}
}

func TestEvaluate_GroupPolicyParity(t *testing.T) {
	// A policy contributes identically whether it arrived via direct
	// attachment or group membership; only the document set matters.
	direct := []SourcedDocument{doc("Allow", "ec2:Describe*", "*")}
	viaGroup := []SourcedDocument{
		{PolicyName: "test-policy", Document: direct[0].Document},
	}

	for _, action := range []string{"ec2:DescribeInstances", "ec2:RunInstances"} {
		a := Evaluate(direct, req(action, "*"))
		b := Evaluate(viaGroup, req(action, "*"))
		if a != b {
			t.Errorf("action %s: direct %v != group %v", action, a, b)
		}
	}
}
