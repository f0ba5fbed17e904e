package gateway_iam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	awsiam "github.com/aws/aws-sdk-go/service/iam"
	"github.com/mulgadc/mockcloud/mockcloud/awserrors"
	"github.com/mulgadc/mockcloud/mockcloud/iam"
	"github.com/mulgadc/mockcloud/mockcloud/iam/policy"
)

// SimulatePrincipalPolicy runs a what-if evaluation over the policies
// attached to an existing user or role, for every action/resource pair in
// the request.
func SimulatePrincipalPolicy(accountID string, input *awsiam.SimulatePrincipalPolicyInput, engine *policy.Engine) (*awsiam.SimulatePolicyResponse, error) {
	if input.PolicySourceArn == nil || *input.PolicySourceArn == "" || len(input.ActionNames) == 0 {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}

	principal, isRole, err := principalFromARN(*input.PolicySourceArn)
	if err != nil {
		return nil, awserrors.NewErrorf(awserrors.ErrorIAMInvalidInput, "%v", err)
	}

	source := policy.SimulationSource{}
	if isRole {
		source.Role = principal
	} else {
		source.Principal = principal
	}

	return runSimulation(accountID, engine, source, *input.PolicySourceArn, principal, input.ActionNames, input.ResourceArns, input.ContextEntries)
}

// SimulateCustomPolicy runs a what-if evaluation over ad-hoc policy
// documents supplied with the request, optionally merged with an existing
// principal's attached policies via CallerArn.
func SimulateCustomPolicy(accountID string, input *awsiam.SimulateCustomPolicyInput, engine *policy.Engine) (*awsiam.SimulatePolicyResponse, error) {
	if len(input.PolicyInputList) == 0 || len(input.ActionNames) == 0 {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}

	docs := make([]policy.SourcedDocument, 0, len(input.PolicyInputList))
	for i, raw := range input.PolicyInputList {
		if raw == nil || *raw == "" {
			return nil, errors.New(awserrors.ErrorMissingParameter)
		}
		doc, err := iam.ParsePolicyDocument(*raw)
		if err != nil {
			return nil, awserrors.NewErrorf(awserrors.ErrorIAMMalformedPolicyDocument, "policy %d: %v", i+1, err)
		}
		docs = append(docs, policy.SourcedDocument{
			PolicyName: fmt.Sprintf("PolicyInputList.%d", i+1),
			Document:   doc,
		})
	}

	var principal, principalARN string
	if input.CallerArn != nil && *input.CallerArn != "" {
		principalARN = *input.CallerArn
		if name, isRole, err := principalFromARN(*input.CallerArn); err == nil && !isRole {
			principal = name
		}
	}

	ctx := contextFromEntries(input.ContextEntries)
	resources := resourceList(input.ResourceArns)

	results := make([]*awsiam.EvaluationResult, 0, len(input.ActionNames)*len(resources))
	for _, action := range input.ActionNames {
		if action == nil || *action == "" {
			return nil, errors.New(awserrors.ErrorMissingParameter)
		}
		for _, resource := range resources {
			trace := policy.Simulate(docs, &policy.Request{
				Principal:    principal,
				PrincipalARN: principalARN,
				Action:       *action,
				Resource:     resource,
				Context:      ctx,
			})
			results = append(results, evaluationResult(*action, resource, trace))
		}
	}

	return &awsiam.SimulatePolicyResponse{
		EvaluationResults: results,
		IsTruncated:       aws.Bool(false),
	}, nil
}

func runSimulation(accountID string, engine *policy.Engine, source policy.SimulationSource, principalARN, principal string, actions, resourceARNs []*string, entries []*awsiam.ContextEntry) (*awsiam.SimulatePolicyResponse, error) {
	ctx := contextFromEntries(entries)
	resources := resourceList(resourceARNs)

	results := make([]*awsiam.EvaluationResult, 0, len(actions)*len(resources))
	for _, action := range actions {
		if action == nil || *action == "" {
			return nil, errors.New(awserrors.ErrorMissingParameter)
		}
		for _, resource := range resources {
			trace, err := engine.SimulatePolicy(accountID, source, &policy.Request{
				Principal:    principal,
				PrincipalARN: principalARN,
				Action:       *action,
				Resource:     resource,
				Context:      ctx,
			})
			if err != nil {
				return nil, err
			}
			results = append(results, evaluationResult(*action, resource, trace))
		}
	}

	return &awsiam.SimulatePolicyResponse{
		EvaluationResults: results,
		IsTruncated:       aws.Bool(false),
	}, nil
}

// evaluationResult maps a simulation trace onto the SDK's result shape.
// Decisions follow the wire values "allowed", "explicitDeny" and
// "implicitDeny".
func evaluationResult(action, resource string, trace *policy.SimulationTrace) *awsiam.EvaluationResult {
	decision := "implicitDeny"
	for _, st := range trace.Statements {
		if st.Result == policy.ResultDeny {
			decision = "explicitDeny"
			break
		}
	}
	if decision == "implicitDeny" && trace.Decision == policy.DecisionAllow {
		decision = "allowed"
	}

	var matched []*awsiam.Statement
	for _, st := range trace.MatchedStatements() {
		matched = append(matched, &awsiam.Statement{
			SourcePolicyId:   aws.String(st.PolicyName),
			SourcePolicyType: aws.String("IAM Policy"),
			StartPosition: &awsiam.Position{
				Line:   aws.Int64(int64(st.StatementIndex + 1)),
				Column: aws.Int64(1),
			},
		})
	}

	return &awsiam.EvaluationResult{
		EvalActionName:    aws.String(action),
		EvalResourceName:  aws.String(resource),
		EvalDecision:      aws.String(decision),
		MatchedStatements: matched,
	}
}

// CheckPermission answers a single authorization question for a user.
func CheckPermission(accountID string, input *iam.CheckPermissionInput, engine *policy.Engine) (*iam.CheckPermissionOutput, error) {
	if input.UserName == nil || *input.UserName == "" || input.ActionName == nil || *input.ActionName == "" {
		return nil, errors.New(awserrors.ErrorMissingParameter)
	}

	resource := "*"
	if input.ResourceArn != nil && *input.ResourceArn != "" {
		resource = *input.ResourceArn
	}

	result, err := engine.CheckPermission(accountID, &policy.Request{
		Principal:    *input.UserName,
		PrincipalARN: fmt.Sprintf("arn:aws:iam::%s:user/%s", accountID, *input.UserName),
		Action:       *input.ActionName,
		Resource:     resource,
		Context:      contextFromEntries(input.ContextEntries),
	})
	if err != nil {
		return nil, err
	}

	return &iam.CheckPermissionOutput{
		Allowed: aws.Bool(result.Allowed),
		Reason:  aws.String(result.Reason),
	}, nil
}

func contextFromEntries(entries []*awsiam.ContextEntry) policy.Context {
	ctx := policy.Context{}
	for _, entry := range entries {
		if entry == nil || entry.ContextKeyName == nil || len(entry.ContextKeyValues) == 0 {
			continue
		}
		if entry.ContextKeyValues[0] != nil {
			ctx[*entry.ContextKeyName] = *entry.ContextKeyValues[0]
		}
	}
	return ctx
}

func resourceList(arns []*string) []string {
	var resources []string
	for _, arn := range arns {
		if arn != nil && *arn != "" {
			resources = append(resources, *arn)
		}
	}
	if len(resources) == 0 {
		resources = []string{"*"}
	}
	return resources
}

// principalFromARN extracts the user or role name from an IAM principal
// ARN. The account root ARN maps to the root user name.
func principalFromARN(sourceARN string) (name string, isRole bool, err error) {
	if strings.HasSuffix(sourceARN, ":root") {
		return iam.RootUserName, false, nil
	}
	if idx := strings.Index(sourceARN, ":user/"); idx >= 0 {
		segments := strings.Split(sourceARN[idx+len(":user/"):], "/")
		return segments[len(segments)-1], false, nil
	}
	if idx := strings.Index(sourceARN, ":role/"); idx >= 0 {
		segments := strings.Split(sourceARN[idx+len(":role/"):], "/")
		return segments[len(segments)-1], true, nil
	}
	return "", false, fmt.Errorf("unsupported principal ARN %s", sourceARN)
}
