package gateway_iam

import (
	"errors"

	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func CreateRole(accountID string, input *awsiam.CreateRoleInput, svc iam.Service) (*awsiam.CreateRoleOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	if input.AssumeRolePolicyDocument == nil || *input.AssumeRolePolicyDocument == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.CreateRole(accountID, input)
}

func GetRole(accountID string, input *awsiam.GetRoleInput, svc iam.Service) (*awsiam.GetRoleOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.GetRole(accountID, input)
}

func ListRoles(accountID string, input *awsiam.ListRolesInput, svc iam.Service) (*awsiam.ListRolesOutput, error) {
	return svc.ListRoles(accountID, input)
}

func DeleteRole(accountID string, input *awsiam.DeleteRoleInput, svc iam.Service) (*awsiam.DeleteRoleOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DeleteRole(accountID, input)
}
