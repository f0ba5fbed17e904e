package gateway_iam

import (
	"errors"

	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func CreateGroup(accountID string, input *awsiam.CreateGroupInput, svc iam.Service) (*awsiam.CreateGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.CreateGroup(accountID, input)
}

func GetGroup(accountID string, input *awsiam.GetGroupInput, svc iam.Service) (*awsiam.GetGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.GetGroup(accountID, input)
}

func ListGroups(accountID string, input *awsiam.ListGroupsInput, svc iam.Service) (*awsiam.ListGroupsOutput, error) {
	return svc.ListGroups(accountID, input)
}

func DeleteGroup(accountID string, input *awsiam.DeleteGroupInput, svc iam.Service) (*awsiam.DeleteGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DeleteGroup(accountID, input)
}

func AddUserToGroup(accountID string, input *awsiam.AddUserToGroupInput, svc iam.Service) (*awsiam.AddUserToGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" || input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.AddUserToGroup(accountID, input)
}

func RemoveUserFromGroup(accountID string, input *awsiam.RemoveUserFromGroupInput, svc iam.Service) (*awsiam.RemoveUserFromGroupOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" || input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.RemoveUserFromGroup(accountID, input)
}

func ListGroupsForUser(accountID string, input *awsiam.ListGroupsForUserInput, svc iam.Service) (*awsiam.ListGroupsForUserOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.ListGroupsForUser(accountID, input)
}
