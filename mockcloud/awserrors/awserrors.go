package awserrors

import "fmt"

type ErrorMessage struct {
	HTTPCode int
	Message  string
}

// AWSError carries an error code and a field-specific message.
// ErrorHandler extracts Code for the lookup and uses Detail as the response message.
type AWSError struct {
	Code   string
	Detail string
}

func (e *AWSError) Error() string {
	return e.Code
}

// NewError creates an AWSError with a field-specific detail message.
func NewError(code, detail string) *AWSError {
	return &AWSError{Code: code, Detail: detail}
}

// NewErrorf creates an AWSError with a formatted detail message.
func NewErrorf(code, format string, args ...any) *AWSError {
	return &AWSError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

var (
	ErrorAccessDenied                = "AccessDenied"
	ErrorAuthFailure                 = "AuthFailure"
	ErrorIncompleteSignature         = "IncompleteSignature"
	ErrorInternalError               = "InternalError"
	ErrorInternalFailure             = "InternalFailure"
	ErrorInvalidAction               = "InvalidAction"
	ErrorInvalidClientTokenId        = "InvalidClientTokenId"
	ErrorInvalidParameterCombination = "InvalidParameterCombination"
	ErrorInvalidParameterValue       = "InvalidParameterValue"
	ErrorInvalidQueryParameter       = "InvalidQueryParameter"
	ErrorMalformedQueryString        = "MalformedQueryString"
	ErrorMissingAction               = "MissingAction"
	ErrorMissingAuthenticationToken  = "MissingAuthenticationToken"
	ErrorMissingParameter            = "MissingParameter"
	ErrorRequestExpired              = "RequestExpired"
	ErrorSignatureDoesNotMatch       = "SignatureDoesNotMatch"
	ErrorThrottling                  = "Throttling"
	ErrorUnauthorizedOperation       = "UnauthorizedOperation"
	ErrorValidationError             = "ValidationError"

	ErrorIAMConcurrentModification    = "ConcurrentModification"
	ErrorIAMDeleteConflict            = "DeleteConflict"
	ErrorIAMEntityAlreadyExists       = "EntityAlreadyExists"
	ErrorIAMInvalidInput              = "InvalidInput"
	ErrorIAMLimitExceeded             = "LimitExceeded"
	ErrorIAMMalformedPolicyDocument   = "MalformedPolicyDocument"
	ErrorIAMNoSuchEntity              = "NoSuchEntity"
	ErrorIAMPolicyEvaluationException = "PolicyEvaluation"
	ErrorIAMServiceFailure            = "ServiceFailure"
)

var ErrorLookup = map[string]ErrorMessage{
	ErrorAccessDenied:                {HTTPCode: 403, Message: "You do not have sufficient access to perform this action."},
	ErrorAuthFailure:                 {HTTPCode: 401, Message: "The provided credentials could not be validated. Ensure that you are using the correct access keys."},
	ErrorIncompleteSignature:         {HTTPCode: 400, Message: "The request signature does not conform to AWS standards."},
	ErrorInternalError:               {HTTPCode: 500, Message: "An internal error has occurred. Retry your request."},
	ErrorInternalFailure:             {HTTPCode: 500, Message: "The request processing has failed because of an unknown error, exception or failure."},
	ErrorInvalidAction:               {HTTPCode: 400, Message: "The action or operation requested is not valid. Verify that the action is typed correctly."},
	ErrorInvalidClientTokenId:        {HTTPCode: 403, Message: "The X.509 certificate or AWS access key ID provided does not exist in our records."},
	ErrorInvalidParameterCombination: {HTTPCode: 400, Message: "Indicates an incorrect combination of parameters, or a missing parameter."},
	ErrorInvalidParameterValue:       {HTTPCode: 400, Message: "A value specified in a parameter is not valid, is unsupported, or cannot be used."},
	ErrorInvalidQueryParameter:       {HTTPCode: 400, Message: "The AWS query string is malformed or does not adhere to AWS standards."},
	ErrorMalformedQueryString:        {HTTPCode: 404, Message: "The query string contains a syntax error."},
	ErrorMissingAction:               {HTTPCode: 400, Message: "The request is missing an action or a required parameter."},
	ErrorMissingAuthenticationToken:  {HTTPCode: 403, Message: "The request must contain either a valid (registered) AWS access key ID or X.509 certificate."},
	ErrorMissingParameter:            {HTTPCode: 400, Message: "The request is missing a required parameter."},
	ErrorRequestExpired:              {HTTPCode: 400, Message: "The request reached the service more than 15 minutes after the date stamp on the request or more than 15 minutes after the request expiration date, or the date stamp on the request is more than 15 minutes in the future."},
	ErrorSignatureDoesNotMatch:       {HTTPCode: 403, Message: "The request signature we calculated does not match the signature you provided. Check your AWS secret access key and signing method."},
	ErrorThrottling:                  {HTTPCode: 400, Message: "The request was denied due to request throttling."},
	ErrorUnauthorizedOperation:       {HTTPCode: 403, Message: "You are not authorized to perform this operation. Check your IAM policies, and ensure that you are using the correct credentials."},
	ErrorValidationError:             {HTTPCode: 400, Message: "The input fails to satisfy the constraints specified by an AWS service."},

	ErrorIAMConcurrentModification:    {HTTPCode: 409, Message: "The request was rejected because multiple requests to change this object were submitted simultaneously. Wait a few minutes and submit your request again."},
	ErrorIAMDeleteConflict:            {HTTPCode: 409, Message: "The request was rejected because it attempted to delete a resource that has attached subordinate entities. The error message describes these entities."},
	ErrorIAMEntityAlreadyExists:       {HTTPCode: 409, Message: "The request was rejected because it attempted to create a resource that already exists."},
	ErrorIAMInvalidInput:              {HTTPCode: 400, Message: "The request was rejected because an invalid or out-of-range value was supplied for an input parameter."},
	ErrorIAMLimitExceeded:             {HTTPCode: 409, Message: "The request was rejected because it attempted to create resources beyond the current AWS account limits. The error message describes the limit exceeded."},
	ErrorIAMMalformedPolicyDocument:   {HTTPCode: 400, Message: "The request was rejected because the policy document was malformed. The error message describes the specific error."},
	ErrorIAMNoSuchEntity:              {HTTPCode: 404, Message: "The request was rejected because it referenced a resource entity that does not exist. The error message describes the resource."},
	ErrorIAMPolicyEvaluationException: {HTTPCode: 500, Message: "The request failed because a provided policy could not be successfully evaluated. An additional detailed message indicates the source of the failure."},
	ErrorIAMServiceFailure:            {HTTPCode: 500, Message: "The request processing has failed because of an unknown error, exception or failure."},
}
