package gateway_iam

import (
	"errors"

	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func CreateUser(accountID string, input *awsiam.CreateUserInput, svc iam.Service) (*awsiam.CreateUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.CreateUser(accountID, input)
}

func GetUser(accountID string, input *awsiam.GetUserInput, svc iam.Service) (*awsiam.GetUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.GetUser(accountID, input)
}

func ListUsers(accountID string, input *awsiam.ListUsersInput, svc iam.Service) (*awsiam.ListUsersOutput, error) {
	return svc.ListUsers(accountID, input)
}

func DeleteUser(accountID string, input *awsiam.DeleteUserInput, svc iam.Service) (*awsiam.DeleteUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DeleteUser(accountID, input)
}
