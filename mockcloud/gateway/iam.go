package gateway

import (
	"errors"
	"log/slog"

	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/awsquery"
	gateway_iam "github.com/mulgadc/mockcloud/mockcloud/gateway/iam"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
	"github.com/mulgadc/mockcloud/mockcloud/utils"
)

// IAMHandler processes parsed query args and returns XML response bytes.
type IAMHandler func(action, accountID string, q map[string]string, gw *GatewayConfig) ([]byte, error)

// iamHandler creates a type-safe IAMHandler that allocates the typed input struct,
// parses query params into it, calls the handler, and marshals the output to XML.
func iamHandler[In any](handler func(accountID string, input *In, gw *GatewayConfig) (any, error)) IAMHandler {
	return func(action, accountID string, q map[string]string, gw *GatewayConfig) ([]byte, error) {
		input := new(In)
		if err := awsquery.Decode(q, input); err != nil {
			return nil, errors.New(awserrors.ErrorIAMInvalidInput)
		}
		output, err := handler(accountID, input, gw)
		if err != nil {
			return nil, err
		}
		requestID := uuid.NewString()
		xmlOutput, err := utils.GenerateIAMXMLPayload(action, output, requestID)
		if err != nil {
			return nil, errors.New(awserrors.ErrorInternalError)
		}
		return xmlOutput, nil
	}
}

var iamActions = map[string]IAMHandler{
	// Users
	"CreateUser": iamHandler(func(accountID string, input *awsiam.CreateUserInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.CreateUser(accountID, input, gw.IAMService)
	}),
	"GetUser": iamHandler(func(accountID string, input *awsiam.GetUserInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.GetUser(accountID, input, gw.IAMService)
	}),
	"ListUsers": iamHandler(func(accountID string, input *awsiam.ListUsersInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListUsers(accountID, input, gw.IAMService)
	}),
	"DeleteUser": iamHandler(func(accountID string, input *awsiam.DeleteUserInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DeleteUser(accountID, input, gw.IAMService)
	}),

	// Groups
	"CreateGroup": iamHandler(func(accountID string, input *awsiam.CreateGroupInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.CreateGroup(accountID, input, gw.IAMService)
	}),
	"GetGroup": iamHandler(func(accountID string, input *awsiam.GetGroupInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.GetGroup(accountID, input, gw.IAMService)
	}),
	"ListGroups": iamHandler(func(accountID string, input *awsiam.ListGroupsInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListGroups(accountID, input, gw.IAMService)
	}),
	"DeleteGroup": iamHandler(func(accountID string, input *awsiam.DeleteGroupInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DeleteGroup(accountID, input, gw.IAMService)
	}),
	"AddUserToGroup": iamHandler(func(accountID string, input *awsiam.AddUserToGroupInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.AddUserToGroup(accountID, input, gw.IAMService)
	}),
	"RemoveUserFromGroup": iamHandler(func(accountID string, input *awsiam.RemoveUserFromGroupInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.RemoveUserFromGroup(accountID, input, gw.IAMService)
	}),
	"ListGroupsForUser": iamHandler(func(accountID string, input *awsiam.ListGroupsForUserInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListGroupsForUser(accountID, input, gw.IAMService)
	}),

	// Roles
	"CreateRole": iamHandler(func(accountID string, input *awsiam.CreateRoleInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.CreateRole(accountID, input, gw.IAMService)
	}),
	"GetRole": iamHandler(func(accountID string, input *awsiam.GetRoleInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.GetRole(accountID, input, gw.IAMService)
	}),
	"ListRoles": iamHandler(func(accountID string, input *awsiam.ListRolesInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListRoles(accountID, input, gw.IAMService)
	}),
	"DeleteRole": iamHandler(func(accountID string, input *awsiam.DeleteRoleInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DeleteRole(accountID, input, gw.IAMService)
	}),

	// Access keys
	"CreateAccessKey": iamHandler(func(accountID string, input *awsiam.CreateAccessKeyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.CreateAccessKey(accountID, input, gw.IAMService)
	}),
	"ListAccessKeys": iamHandler(func(accountID string, input *awsiam.ListAccessKeysInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListAccessKeys(accountID, input, gw.IAMService)
	}),
	"DeleteAccessKey": iamHandler(func(accountID string, input *awsiam.DeleteAccessKeyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DeleteAccessKey(accountID, input, gw.IAMService)
	}),
	"UpdateAccessKey": iamHandler(func(accountID string, input *awsiam.UpdateAccessKeyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.UpdateAccessKey(accountID, input, gw.IAMService)
	}),

	// Policy CRUD
	"CreatePolicy": iamHandler(func(accountID string, input *awsiam.CreatePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.CreatePolicy(accountID, input, gw.IAMService)
	}),
	"GetPolicy": iamHandler(func(accountID string, input *awsiam.GetPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.GetPolicy(accountID, input, gw.IAMService)
	}),
	"GetPolicyVersion": iamHandler(func(accountID string, input *awsiam.GetPolicyVersionInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.GetPolicyVersion(accountID, input, gw.IAMService)
	}),
	"ListPolicies": iamHandler(func(accountID string, input *awsiam.ListPoliciesInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListPolicies(accountID, input, gw.IAMService)
	}),
	"DeletePolicy": iamHandler(func(accountID string, input *awsiam.DeletePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DeletePolicy(accountID, input, gw.IAMService)
	}),

	// Policy attachment
	"AttachUserPolicy": iamHandler(func(accountID string, input *awsiam.AttachUserPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.AttachUserPolicy(accountID, input, gw.IAMService)
	}),
	"DetachUserPolicy": iamHandler(func(accountID string, input *awsiam.DetachUserPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DetachUserPolicy(accountID, input, gw.IAMService)
	}),
	"ListAttachedUserPolicies": iamHandler(func(accountID string, input *awsiam.ListAttachedUserPoliciesInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListAttachedUserPolicies(accountID, input, gw.IAMService)
	}),
	"AttachGroupPolicy": iamHandler(func(accountID string, input *awsiam.AttachGroupPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.AttachGroupPolicy(accountID, input, gw.IAMService)
	}),
	"DetachGroupPolicy": iamHandler(func(accountID string, input *awsiam.DetachGroupPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DetachGroupPolicy(accountID, input, gw.IAMService)
	}),
	"ListAttachedGroupPolicies": iamHandler(func(accountID string, input *awsiam.ListAttachedGroupPoliciesInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListAttachedGroupPolicies(accountID, input, gw.IAMService)
	}),
	"AttachRolePolicy": iamHandler(func(accountID string, input *awsiam.AttachRolePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.AttachRolePolicy(accountID, input, gw.IAMService)
	}),
	"DetachRolePolicy": iamHandler(func(accountID string, input *awsiam.DetachRolePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DetachRolePolicy(accountID, input, gw.IAMService)
	}),
	"ListAttachedRolePolicies": iamHandler(func(accountID string, input *awsiam.ListAttachedRolePoliciesInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.ListAttachedRolePolicies(accountID, input, gw.IAMService)
	}),

	// Simulation
	"SimulatePrincipalPolicy": iamHandler(func(accountID string, input *awsiam.SimulatePrincipalPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.SimulatePrincipalPolicy(accountID, input, gw.Engine)
	}),
	"SimulateCustomPolicy": iamHandler(func(accountID string, input *awsiam.SimulateCustomPolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.SimulateCustomPolicy(accountID, input, gw.Engine)
	}),

	// Authorization extensions
	"CheckPermission": iamHandler(func(accountID string, input *iam.CheckPermissionInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.CheckPermission(accountID, input, gw.Engine)
	}),
	"PutResourcePolicy": iamHandler(func(accountID string, input *iam.PutResourcePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.PutResourcePolicy(accountID, input, gw.IAMService)
	}),
	"GetResourcePolicy": iamHandler(func(accountID string, input *iam.GetResourcePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.GetResourcePolicy(accountID, input, gw.IAMService)
	}),
	"DeleteResourcePolicy": iamHandler(func(accountID string, input *iam.DeleteResourcePolicyInput, gw *GatewayConfig) (any, error) {
		return gateway_iam.DeleteResourcePolicy(accountID, input, gw.IAMService)
	}),
}

func (gw *GatewayConfig) IAM_Request(ctx *fiber.Ctx) error {
	queryArgs := ParseAWSQueryArgs(string(ctx.Body()))

	action := queryArgs["Action"]
	handler, ok := iamActions[action]
	if !ok {
		slog.Debug("IAM: unknown action", "action", action)
		return errors.New(awserrors.ErrorInvalidAction)
	}

	if gw.IAMService == nil || gw.Engine == nil {
		slog.Error("IAM: service not initialized")
		return errors.New(awserrors.ErrorInternalError)
	}

	if err := gw.checkPolicy(ctx, "iam", action); err != nil {
		return err
	}

	accountID, _ := ctx.Locals("sigv4.accountID").(string)

	xmlOutput, err := handler(action, accountID, queryArgs, gw)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusOK).Type("text/xml").Send(xmlOutput)
}
