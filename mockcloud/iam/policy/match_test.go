package policy

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern   string
		candidate string
		want      bool
	}{
		// Global wildcard
		{"*", "anything", true},
		{"*", "", true},

		// Service wildcard
		{"s3:*", "s3:GetObject", true},
		{"s3:*", "s3:PutObject", true},
		{"s3:*", "ec2:RunInstances", false},

		// Prefix wildcard
		{"s3:Get*", "s3:GetObject", true},
		{"s3:Get*", "s3:GetBucketPolicy", true},
		{"s3:Get*", "s3:PutObject", false},

		// Infix and suffix wildcards
		{"arn:aws:s3:::my-bucket/*", "arn:aws:s3:::my-bucket/reports/q1.csv", true},
		{"arn:aws:s3:::my-bucket/*", "arn:aws:s3:::other-bucket/file", false},
		{"*:GetObject", "s3:GetObject", true},
		{"s3:*Object", "s3:GetObject", true},
		{"s3:*Object", "s3:GetObjectAcl", false},

		// Multiple wildcards
		{"arn:*:s3:::*/readme.md", "arn:aws:s3:::docs/readme.md", true},
		{"a*b*c", "axxbyyc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "axxbyy", false},

		// Single-character wildcard
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"a?c", "abbc", false},
		{"??", "ab", true},
		{"??", "a", false},

		// Exact match
		{"s3:GetObject", "s3:GetObject", true},
		{"s3:GetObject", "s3:getobject", false},

		// Empty pattern
		{"", "", true},
		{"", "something", false},

		// Star consumes zero characters
		{"ab*", "ab", true},
		{"a*b", "ab", true},
	}

	for _, tt := range tests {
		got := Match(tt.pattern, tt.candidate)
		if got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.candidate, got, tt.want)
		}
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"s3:Put*", "s3:Get*"}

	pattern, ok := MatchAny(patterns, "s3:GetObject")
	if !ok || pattern != "s3:Get*" {
		t.Fatalf("MatchAny = (%q, %v), want (%q, true)", pattern, ok, "s3:Get*")
	}

	pattern, ok = MatchAny(patterns, "s3:DeleteObject")
	if ok || pattern != "" {
		t.Fatalf("MatchAny = (%q, %v), want (%q, false)", pattern, ok, "")
	}

	if _, ok := MatchAny(nil, "s3:GetObject"); ok {
		t.Fatal("MatchAny with no patterns should not match")
	}
}
