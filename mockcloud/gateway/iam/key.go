package gateway_iam

import (
	"errors"

	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func CreateAccessKey(accountID string, input *awsiam.CreateAccessKeyInput, svc iam.Service) (*awsiam.CreateAccessKeyOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.CreateAccessKey(accountID, input)
}

func ListAccessKeys(accountID string, input *awsiam.ListAccessKeysInput, svc iam.Service) (*awsiam.ListAccessKeysOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.ListAccessKeys(accountID, input)
}

func DeleteAccessKey(accountID string, input *awsiam.DeleteAccessKeyInput, svc iam.Service) (*awsiam.DeleteAccessKeyOutput, error) {
	if input.UserName == nil || *input.UserName == "" || input.AccessKeyId == nil || *input.AccessKeyId == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DeleteAccessKey(accountID, input)
}

func UpdateAccessKey(accountID string, input *awsiam.UpdateAccessKeyInput, svc iam.Service) (*awsiam.UpdateAccessKeyOutput, error) {
	if input.AccessKeyId == nil || *input.AccessKeyId == "" || input.Status == nil || *input.Status == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.UpdateAccessKey(accountID, input)
}
