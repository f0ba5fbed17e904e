package gateway_iam

import (
	"errors"

	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

func CreatePolicy(accountID string, input *awsiam.CreatePolicyInput, svc iam.Service) (*awsiam.CreatePolicyOutput, error) {
	if input.PolicyName == nil || *input.PolicyName == "" || input.PolicyDocument == nil || *input.PolicyDocument == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.CreatePolicy(accountID, input)
}

func GetPolicy(accountID string, input *awsiam.GetPolicyInput, svc iam.Service) (*awsiam.GetPolicyOutput, error) {
	if input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.GetPolicy(accountID, input)
}

func GetPolicyVersion(accountID string, input *awsiam.GetPolicyVersionInput, svc iam.Service) (*awsiam.GetPolicyVersionOutput, error) {
	if input.PolicyArn == nil || *input.PolicyArn == "" || input.VersionId == nil || *input.VersionId == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.GetPolicyVersion(accountID, input)
}

func ListPolicies(accountID string, input *awsiam.ListPoliciesInput, svc iam.Service) (*awsiam.ListPoliciesOutput, error) {
	return svc.ListPolicies(accountID, input)
}

func DeletePolicy(accountID string, input *awsiam.DeletePolicyInput, svc iam.Service) (*awsiam.DeletePolicyOutput, error) {
	if input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DeletePolicy(accountID, input)
}

func AttachUserPolicy(accountID string, input *awsiam.AttachUserPolicyInput, svc iam.Service) (*awsiam.AttachUserPolicyOutput, error) {
	if input.UserName == nil || *input.UserName == "" || input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.AttachUserPolicy(accountID, input)
}

func DetachUserPolicy(accountID string, input *awsiam.DetachUserPolicyInput, svc iam.Service) (*awsiam.DetachUserPolicyOutput, error) {
	if input.UserName == nil || *input.UserName == "" || input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DetachUserPolicy(accountID, input)
}

func ListAttachedUserPolicies(accountID string, input *awsiam.ListAttachedUserPoliciesInput, svc iam.Service) (*awsiam.ListAttachedUserPoliciesOutput, error) {
	if input.UserName == nil || *input.UserName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.ListAttachedUserPolicies(accountID, input)
}

func AttachGroupPolicy(accountID string, input *awsiam.AttachGroupPolicyInput, svc iam.Service) (*awsiam.AttachGroupPolicyOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" || input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.AttachGroupPolicy(accountID, input)
}

func DetachGroupPolicy(accountID string, input *awsiam.DetachGroupPolicyInput, svc iam.Service) (*awsiam.DetachGroupPolicyOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" || input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DetachGroupPolicy(accountID, input)
}

func ListAttachedGroupPolicies(accountID string, input *awsiam.ListAttachedGroupPoliciesInput, svc iam.Service) (*awsiam.ListAttachedGroupPoliciesOutput, error) {
	if input.GroupName == nil || *input.GroupName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.ListAttachedGroupPolicies(accountID, input)
}

func AttachRolePolicy(accountID string, input *awsiam.AttachRolePolicyInput, svc iam.Service) (*awsiam.AttachRolePolicyOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" || input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.AttachRolePolicy(accountID, input)
}

func DetachRolePolicy(accountID string, input *awsiam.DetachRolePolicyInput, svc iam.Service) (*awsiam.DetachRolePolicyOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" || input.PolicyArn == nil || *input.PolicyArn == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DetachRolePolicy(accountID, input)
}

func ListAttachedRolePolicies(accountID string, input *awsiam.ListAttachedRolePoliciesInput, svc iam.Service) (*awsiam.ListAttachedRolePoliciesOutput, error) {
	if input.RoleName == nil || *input.RoleName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.ListAttachedRolePolicies(accountID, input)
}

func PutResourcePolicy(accountID string, input *iam.PutResourcePolicyInput, svc iam.Service) (*iam.PutResourcePolicyOutput, error) {
	if input.ResourceType == nil || *input.ResourceType == "" || input.ResourceId == nil || *input.ResourceId == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	if input.PolicyDocument == nil || *input.PolicyDocument == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.PutResourcePolicy(accountID, input)
}

func GetResourcePolicy(accountID string, input *iam.GetResourcePolicyInput, svc iam.Service) (*iam.GetResourcePolicyOutput, error) {
	if input.ResourceType == nil || *input.ResourceType == "" || input.ResourceId == nil || *input.ResourceId == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.GetResourcePolicy(accountID, input)
}

func DeleteResourcePolicy(accountID string, input *iam.DeleteResourcePolicyInput, svc iam.Service) (*iam.DeleteResourcePolicyOutput, error) {
	if input.ResourceType == nil || *input.ResourceType == "" || input.ResourceId == nil || *input.ResourceId == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}
	return svc.DeleteResourcePolicy(accountID, input)
}
