package policy

import (
	"testing"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func cond(op, key string, values ...string) iam.ConditionBlock {
	return iam.ConditionBlock{
		op: {key: iam.StringOrArr(values)},
	}
}

func TestEvalConditions_StringEquals(t *testing.T) {
	block := cond(iam.OpStringEquals, "aws:RequestedRegion", "ap-southeast-2", "us-east-1")

	if _, _, ok := evalConditions(block, Context{"aws:RequestedRegion": "ap-southeast-2"}); !ok {
		t.Fatal("expected StringEquals to hold for a listed value")
	}
	if _, _, ok := evalConditions(block, Context{"aws:RequestedRegion": "eu-west-1"}); ok {
		t.Fatal("expected StringEquals to fail for an unlisted value")
	}
}

func TestEvalConditions_StringNotEquals(t *testing.T) {
	block := cond(iam.OpStringNotEquals, "aws:RequestedRegion", "us-east-1")

	if _, _, ok := evalConditions(block, Context{"aws:RequestedRegion": "ap-southeast-2"}); !ok {
		t.Fatal("expected StringNotEquals to hold for a different value")
	}
	if _, _, ok := evalConditions(block, Context{"aws:RequestedRegion": "us-east-1"}); ok {
		t.Fatal("expected StringNotEquals to fail for the excluded value")
	}
}

func TestEvalConditions_StringLike(t *testing.T) {
	block := cond(iam.OpStringLike, "aws:PrincipalTag/team", "eng-*")

	if _, _, ok := evalConditions(block, Context{"aws:PrincipalTag/team": "eng-platform"}); !ok {
		t.Fatal("expected StringLike to hold for a wildcard match")
	}
	if _, _, ok := evalConditions(block, Context{"aws:PrincipalTag/team": "sales"}); ok {
		t.Fatal("expected StringLike to fail for a non-match")
	}
}

func TestEvalConditions_IpAddress(t *testing.T) {
	block := cond(iam.OpIPAddress, "aws:SourceIp", "10.0.0.0/8", "192.168.1.50")

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"10.255.255.255", true},
		{"192.168.1.50", true}, // bare address form
		{"192.168.1.51", false},
		{"172.16.0.1", false},
		{"not-an-ip", false},
	}

	for _, tt := range tests {
		_, _, ok := evalConditions(block, Context{"aws:SourceIp": tt.ip})
		if ok != tt.want {
			t.Errorf("IpAddress with source %q = %v, want %v", tt.ip, ok, tt.want)
		}
	}
}

func TestEvalConditions_NotIpAddress(t *testing.T) {
	block := cond(iam.OpNotIPAddress, "aws:SourceIp", "10.0.0.0/8")

	if _, _, ok := evalConditions(block, Context{"aws:SourceIp": "172.16.0.1"}); !ok {
		t.Fatal("expected NotIpAddress to hold for an address outside the range")
	}
	if _, _, ok := evalConditions(block, Context{"aws:SourceIp": "10.1.2.3"}); ok {
		t.Fatal("expected NotIpAddress to fail for an address inside the range")
	}
	if _, _, ok := evalConditions(block, Context{"aws:SourceIp": "garbage"}); ok {
		t.Fatal("expected NotIpAddress to fail for an unparseable address")
	}
}

func TestEvalConditions_MissingContextKey(t *testing.T) {
	block := cond(iam.OpStringEquals, "aws:RequestedRegion", "ap-southeast-2")

	op, key, ok := evalConditions(block, Context{})
	if ok {
		t.Fatal("expected a missing context key to fail the condition")
	}
	if op != iam.OpStringEquals || key != "aws:RequestedRegion" {
		t.Fatalf("expected failure reported as (%s, aws:RequestedRegion), got (%s, %s)", iam.OpStringEquals, op, key)
	}
}

func TestEvalConditions_AllMustHold(t *testing.T) {
	block := iam.ConditionBlock{
		iam.OpStringEquals: {"aws:RequestedRegion": {"ap-southeast-2"}},
		iam.OpIPAddress:    {"aws:SourceIp": {"10.0.0.0/8"}},
	}

	ctx := Context{"aws:RequestedRegion": "ap-southeast-2", "aws:SourceIp": "10.0.0.1"}
	if _, _, ok := evalConditions(block, ctx); !ok {
		t.Fatal("expected both conditions to hold")
	}

	ctx["aws:SourceIp"] = "8.8.8.8"
	if _, _, ok := evalConditions(block, ctx); ok {
		t.Fatal("expected evaluation to fail when one condition fails")
	}
}

func TestEvalConditions_EmptyBlock(t *testing.T) {
	if _, _, ok := evalConditions(nil, Context{}); !ok {
		t.Fatal("expected an absent condition block to hold")
	}
}
