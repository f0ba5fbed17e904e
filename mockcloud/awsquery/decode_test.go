package awsquery

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/stretchr/testify/assert"
)

func TestDecode_CreateUser(t *testing.T) {
	args := map[string]string{
		"Action":   "CreateUser",
		"UserName": "alice",
		"Path":     "/developers/",
	}

	input := &awsiam.CreateUserInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Equal(t, "alice", aws.StringValue(input.UserName))
	assert.Equal(t, "/developers/", aws.StringValue(input.Path))
}

func TestDecode_CreateUserWithTags(t *testing.T) {
	args := map[string]string{
		"Action":              "CreateUser",
		"UserName":            "alice",
		"Tags.member.1.Key":   "team",
		"Tags.member.1.Value": "backend",
		"Tags.member.2.Key":   "env",
		"Tags.member.2.Value": "staging",
	}

	input := &awsiam.CreateUserInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Len(t, input.Tags, 2)
	assert.Equal(t, "team", aws.StringValue(input.Tags[0].Key))
	assert.Equal(t, "backend", aws.StringValue(input.Tags[0].Value))
	assert.Equal(t, "env", aws.StringValue(input.Tags[1].Key))
}

func TestDecode_BareIndexLists(t *testing.T) {
	args := map[string]string{
		"Action":       "CreateUser",
		"UserName":     "alice",
		"Tags.1.Key":   "team",
		"Tags.1.Value": "backend",
	}

	input := &awsiam.CreateUserInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Len(t, input.Tags, 1)
	assert.Equal(t, "team", aws.StringValue(input.Tags[0].Key))
}

func TestDecode_AttachUserPolicy(t *testing.T) {
	args := map[string]string{
		"Action":    "AttachUserPolicy",
		"UserName":  "alice",
		"PolicyArn": "arn:aws:iam::123456789012:policy/s3-read",
	}

	input := &awsiam.AttachUserPolicyInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Equal(t, "alice", aws.StringValue(input.UserName))
	assert.Equal(t, "arn:aws:iam::123456789012:policy/s3-read", aws.StringValue(input.PolicyArn))
}

func TestDecode_SimulateWithContextEntries(t *testing.T) {
	args := map[string]string{
		"Action":                                            "SimulatePrincipalPolicy",
		"PolicySourceArn":                                   "arn:aws:iam::123456789012:user/alice",
		"ActionNames.member.1":                              "s3:GetObject",
		"ActionNames.member.2":                              "s3:PutObject",
		"ResourceArns.member.1":                             "arn:aws:s3:::reports/q1.csv",
		"ContextEntries.member.1.ContextKeyName":            "aws:SourceIp",
		"ContextEntries.member.1.ContextKeyType":            "ip",
		"ContextEntries.member.1.ContextKeyValues.member.1": "10.0.0.5",
	}

	input := &awsiam.SimulatePrincipalPolicyInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:user/alice", aws.StringValue(input.PolicySourceArn))
	assert.Len(t, input.ActionNames, 2)
	assert.Equal(t, "s3:PutObject", aws.StringValue(input.ActionNames[1]))
	assert.Len(t, input.ResourceArns, 1)
	assert.Len(t, input.ContextEntries, 1)
	assert.Equal(t, "aws:SourceIp", aws.StringValue(input.ContextEntries[0].ContextKeyName))
	assert.Len(t, input.ContextEntries[0].ContextKeyValues, 1)
	assert.Equal(t, "10.0.0.5", aws.StringValue(input.ContextEntries[0].ContextKeyValues[0]))
}

func TestDecode_SparseIndicesLeaveGaps(t *testing.T) {
	args := map[string]string{
		"ActionNames.member.1": "s3:GetObject",
		"ActionNames.member.3": "s3:PutObject",
	}

	input := &awsiam.SimulatePrincipalPolicyInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Len(t, input.ActionNames, 3)
	assert.Nil(t, input.ActionNames[1])
}

func TestDecode_MaxItems(t *testing.T) {
	args := map[string]string{
		"Action":   "ListUsers",
		"MaxItems": "100",
	}

	input := &awsiam.ListUsersInput{}
	err := Decode(args, input)

	assert.NoError(t, err)
	assert.Equal(t, int64(100), aws.Int64Value(input.MaxItems))
}

func TestDecode_InvalidInt(t *testing.T) {
	args := map[string]string{
		"MaxItems": "lots",
	}

	input := &awsiam.ListUsersInput{}
	err := Decode(args, input)

	assert.Error(t, err)
}

func TestDecode_NotAStructPointer(t *testing.T) {
	assert.Error(t, Decode(map[string]string{}, "nope"))
	assert.Error(t, Decode(map[string]string{}, awsiam.ListUsersInput{}))
}
