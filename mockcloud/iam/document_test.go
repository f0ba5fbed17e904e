package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicyDocument_Valid(t *testing.T) {
	doc, err := ParsePolicyDocument(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Sid": "ReadData",
				"Effect": "Allow",
				"Action": ["s3:GetObject", "s3:ListBucket"],
				"Resource": "arn:aws:s3:::data/*",
				"Condition": {
					"StringEquals": {"aws:RequestedRegion": "ap-southeast-2"},
					"IpAddress": {"aws:SourceIp": ["10.0.0.0/8"]}
				}
			}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, doc.Statement, 1)

	stmt := doc.Statement[0]
	assert.Equal(t, "ReadData", stmt.Sid)
	assert.Equal(t, EffectAllow, stmt.Effect)
	assert.Equal(t, StringOrArr{"s3:GetObject", "s3:ListBucket"}, stmt.Action)
	assert.Equal(t, StringOrArr{"arn:aws:s3:::data/*"}, stmt.Resource)
	assert.Equal(t, StringOrArr{"ap-southeast-2"}, stmt.Condition["StringEquals"]["aws:RequestedRegion"])
}

func TestParsePolicyDocument_SingleStringForms(t *testing.T) {
	doc, err := ParsePolicyDocument(`{
		"Version": "2012-10-17",
		"Statement": [{"Effect": "Deny", "Action": "s3:DeleteObject", "Resource": "*"}]
	}`)
	require.NoError(t, err)
	assert.Equal(t, StringOrArr{"s3:DeleteObject"}, doc.Statement[0].Action)
	assert.Equal(t, StringOrArr{"*"}, doc.Statement[0].Resource)
}

func TestParsePolicyDocument_Rejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ``},
		{"invalid json", `{not json`},
		{"wrong version", `{"Version": "2008-10-17", "Statement": [{"Effect": "Allow", "Action": "*", "Resource": "*"}]}`},
		{"no statements", `{"Version": "2012-10-17", "Statement": []}`},
		{"bad effect", `{"Version": "2012-10-17", "Statement": [{"Effect": "Maybe", "Action": "*", "Resource": "*"}]}`},
		{"missing action", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Resource": "*"}]}`},
		{"missing resource", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Action": "*"}]}`},
		{"empty action pattern", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Action": [""], "Resource": "*"}]}`},
		{"unknown field", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Action": "*", "Resource": "*", "Bogus": true}]}`},
		{"unknown operator", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Action": "*", "Resource": "*", "Condition": {"NumericEquals": {"aws:MultiFactorAuthAge": "300"}}}]}`},
		{"empty condition key", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Action": "*", "Resource": "*", "Condition": {"StringEquals": {"": "x"}}}]}`},
		{"identity policy with principal", `{"Version": "2012-10-17", "Statement": [{"Effect": "Allow", "Principal": "*", "Action": "*", "Resource": "*"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicyDocument(tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestParseResourcePolicyDocument(t *testing.T) {
	valid := `{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": "arn:aws:iam::000000000000:user/alice"},
				"Action": "s3:GetObject",
				"Resource": "arn:aws:s3:::shared/*"
			}
		]
	}`
	doc, err := ParseResourcePolicyDocument(valid)
	require.NoError(t, err)
	require.NotNil(t, doc.Statement[0].Principal)
	assert.Equal(t, StringOrArr{"arn:aws:iam::000000000000:user/alice"}, doc.Statement[0].Principal.AWS)

	// Wildcard principal form.
	doc, err = ParseResourcePolicyDocument(`{
		"Version": "2012-10-17",
		"Statement": [{"Effect": "Allow", "Principal": "*", "Action": "s3:GetObject", "Resource": "*"}]
	}`)
	require.NoError(t, err)
	assert.True(t, doc.Statement[0].Principal.Wildcard)

	// Missing principal is rejected for resource policies.
	_, err = ParseResourcePolicyDocument(`{
		"Version": "2012-10-17",
		"Statement": [{"Effect": "Allow", "Action": "s3:GetObject", "Resource": "*"}]
	}`)
	assert.Error(t, err)

	// Empty principal map is rejected.
	_, err = ParseResourcePolicyDocument(`{
		"Version": "2012-10-17",
		"Statement": [{"Effect": "Allow", "Principal": {}, "Action": "s3:GetObject", "Resource": "*"}]
	}`)
	assert.Error(t, err)
}

func TestStringOrArrRoundTrip(t *testing.T) {
	doc := &PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{
			{Effect: EffectAllow, Action: StringOrArr{"s3:GetObject"}, Resource: StringOrArr{"a", "b"}},
		},
	}
	encoded, err := doc.Statement[0].Action.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"s3:GetObject"`, string(encoded))

	encoded, err = doc.Statement[0].Resource.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(encoded))
}
