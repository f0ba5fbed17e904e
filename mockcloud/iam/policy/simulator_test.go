package policy

import (
	"testing"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func TestSimulate_TraceCoversEveryStatement(t *testing.T) {
	docs := []SourcedDocument{
		{
			PolicyName: "bucket-access",
			Document: &iam.PolicyDocument{
				Version: iam.PolicyVersion,
				Statement: []iam.Statement{
					{Sid: "AllowRead", Effect: "Allow", Action: iam.StringOrArr{"s3:Get*"}, Resource: iam.StringOrArr{"arn:aws:s3:::data/*"}},
					{Sid: "DenyDelete", Effect: "Deny", Action: iam.StringOrArr{"s3:DeleteObject"}, Resource: iam.StringOrArr{"*"}},
				},
			},
		},
		doc("Allow", "ec2:Describe*", "*"),
	}

	trace := Simulate(docs, req("s3:GetObject", "arn:aws:s3:::data/file"))
	if trace.Decision != DecisionAllow {
		t.Fatalf("expected Allow, got %v", trace.Decision)
	}
	if len(trace.Statements) != 3 {
		t.Fatalf("expected a trace entry per statement, got %d", len(trace.Statements))
	}

	first := trace.Statements[0]
	if first.PolicyName != "bucket-access" || first.StatementIndex != 0 || first.Sid != "AllowRead" {
		t.Fatalf("unexpected first trace entry: %+v", first)
	}
	if first.Result != ResultAllow {
		t.Fatalf("expected first statement to allow, got %v", first.Result)
	}
	if trace.Statements[1].Result != ResultNotApplicable {
		t.Fatalf("expected deny statement to be NotApplicable for a read, got %v", trace.Statements[1].Result)
	}
	if trace.Statements[2].Result != ResultNotApplicable {
		t.Fatalf("expected ec2 statement to be NotApplicable, got %v", trace.Statements[2].Result)
	}
}

func TestSimulate_DenyTraceCompletes(t *testing.T) {
	// Even when an early statement denies, the trace still walks every
	// remaining statement.
	docs := []SourcedDocument{
		doc("Deny", "s3:DeleteObject", "*"),
		doc("Allow", "s3:*", "*"),
	}

	trace := Simulate(docs, req("s3:DeleteObject", "*"))
	if trace.Decision != DecisionDeny {
		t.Fatalf("expected Deny, got %v", trace.Decision)
	}
	if len(trace.Statements) != 2 {
		t.Fatalf("expected 2 trace entries, got %d", len(trace.Statements))
	}
	if trace.Statements[1].Result != ResultAllow {
		t.Fatalf("expected the allow statement still evaluated, got %v", trace.Statements[1].Result)
	}
}

func TestSimulate_DefaultDeny(t *testing.T) {
	trace := Simulate([]SourcedDocument{doc("Allow", "s3:GetObject", "*")}, req("ec2:RunInstances", "*"))
	if trace.Decision != DecisionDeny {
		t.Fatalf("expected default Deny, got %v", trace.Decision)
	}
	if trace.Statements[0].Result != ResultNotApplicable {
		t.Fatalf("expected NotApplicable, got %v", trace.Statements[0].Result)
	}
	if trace.Statements[0].Reason == "" {
		t.Fatal("expected a reason explaining the mismatch")
	}
}

func TestSimulate_AgreesWithEvaluate(t *testing.T) {
	docs := []SourcedDocument{
		doc("Allow", "s3:*", "arn:aws:s3:::my-bucket/*"),
		doc("Deny", "s3:DeleteObject", "*"),
		doc("Allow", "ec2:Describe*", "*"),
	}

	requests := []*Request{
		req("s3:GetObject", "arn:aws:s3:::my-bucket/key"),
		req("s3:DeleteObject", "arn:aws:s3:::my-bucket/key"),
		req("ec2:DescribeInstances", "*"),
		req("iam:CreateUser", "*"),
	}

	for _, r := range requests {
		sim := Simulate(docs, r)
		eval := Evaluate(docs, r)
		if sim.Decision != eval {
			t.Errorf("%s on %s: Simulate=%v Evaluate=%v", r.Action, r.Resource, sim.Decision, eval)
		}
	}
}

func TestSimulationTrace_MatchedStatements(t *testing.T) {
	docs := []SourcedDocument{
		doc("Allow", "s3:GetObject", "*"),
		doc("Allow", "ec2:*", "*"),
	}

	trace := Simulate(docs, req("s3:GetObject", "*"))
	matched := trace.MatchedStatements()
	if len(matched) != 1 {
		t.Fatalf("expected 1 matched statement, got %d", len(matched))
	}
	if matched[0].Result != ResultAllow {
		t.Fatalf("expected matched statement to be the Allow, got %v", matched[0].Result)
	}
}
