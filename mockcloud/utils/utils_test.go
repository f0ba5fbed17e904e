package utils

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPidFileRoundTrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	require.NoError(t, WritePidFile("testsvc", 12345))

	pid, err := ReadPidFile("testsvc")
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	require.NoError(t, RemovePidFile("testsvc"))
	_, err = ReadPidFile("testsvc")
	assert.Error(t, err)
}

func TestGeneratePidFileValidation(t *testing.T) {
	_, err := GeneratePidFile("")
	assert.Error(t, err)
}

func TestGenerateIAMXMLPayload(t *testing.T) {
	out := &awsiam.CreateUserOutput{
		User: &awsiam.User{
			UserName: aws.String("alice"),
			UserId:   aws.String("AIDAEXAMPLEEXAMPLE12"),
			Arn:      aws.String("arn:aws:iam::123456789012:user/alice"),
		},
	}

	xmlData, err := GenerateIAMXMLPayload("CreateUser", out, "req-1234")
	require.NoError(t, err)

	body := string(xmlData)
	assert.True(t, strings.HasPrefix(body, `<CreateUserResponse xmlns="https://iam.amazonaws.com/doc/2010-05-08/">`))
	assert.Contains(t, body, "<CreateUserResult>")
	assert.Contains(t, body, "<UserName>alice</UserName>")
	assert.Contains(t, body, "<RequestId>req-1234</RequestId>")
	assert.True(t, strings.HasSuffix(body, "</CreateUserResponse>"))
}

func TestGenerateIAMXMLPayloadEmptyResult(t *testing.T) {
	xmlData, err := GenerateIAMXMLPayload("DeleteUser", &awsiam.DeleteUserOutput{}, "req-5678")
	require.NoError(t, err)

	body := string(xmlData)
	assert.NotContains(t, body, "<DeleteUserResult>")
	assert.Contains(t, body, "<RequestId>req-5678</RequestId>")
}

func TestErrorPayloadRoundTrip(t *testing.T) {
	payload := GenerateErrorPayload("NoSuchEntity")
	require.NotNil(t, payload)

	responseError, err := ValidateErrorPayload(payload)
	require.Error(t, err)
	assert.Equal(t, "NoSuchEntity", *responseError.Code)
}

func TestValidateErrorPayloadPassesRealResponses(t *testing.T) {
	_, err := ValidateErrorPayload([]byte(`{"User":{"UserName":"alice"}}`))
	assert.NoError(t, err)
}

func TestUnmarshalJsonPayload(t *testing.T) {
	var input awsiam.CreateUserInput
	errPayload := UnmarshalJsonPayload(&input, []byte(`{"UserName":"alice"}`))
	assert.Nil(t, errPayload)
	assert.Equal(t, "alice", aws.StringValue(input.UserName))

	errPayload = UnmarshalJsonPayload(&input, []byte(`{"Bogus":true}`))
	require.NotNil(t, errPayload)
	assert.Contains(t, string(errPayload), "ValidationError")
}
