package iam

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PolicyVersion is the only document version the service accepts.
const PolicyVersion = "2012-10-17"

const (
	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

// Condition operators supported by the evaluator. Documents using any
// other operator are rejected at creation time.
const (
	OpStringEquals    = "StringEquals"
	OpStringNotEquals = "StringNotEquals"
	OpStringLike      = "StringLike"
	OpIPAddress       = "IpAddress"
	OpNotIPAddress    = "NotIpAddress"
)

var validOperators = map[string]bool{
	OpStringEquals:    true,
	OpStringNotEquals: true,
	OpStringLike:      true,
	OpIPAddress:       true,
	OpNotIPAddress:    true,
}

// StringOrArr unmarshals a JSON value that is either a single string or an
// array of strings, the way IAM documents allow "Action": "s3:GetObject"
// and "Action": ["s3:GetObject", "s3:PutObject"] interchangeably.
type StringOrArr []string

func (s *StringOrArr) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrArr{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings")
	}
	*s = StringOrArr(many)
	return nil
}

func (s StringOrArr) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// Principal is the Principal clause of a resource-based policy statement.
// Accepts the wildcard form ("Principal": "*") and the map form
// ("Principal": {"AWS": [...], "Service": [...]}).
type Principal struct {
	AWS      StringOrArr `json:"AWS,omitempty"`
	Service  StringOrArr `json:"Service,omitempty"`
	Wildcard bool        `json:"-"`
}

func (p *Principal) UnmarshalJSON(data []byte) error {
	var star string
	if err := json.Unmarshal(data, &star); err == nil {
		if star != "*" {
			return fmt.Errorf("principal string form must be %q", "*")
		}
		p.Wildcard = true
		return nil
	}
	type alias Principal
	var a alias
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return err
	}
	*p = Principal(a)
	return nil
}

func (p Principal) MarshalJSON() ([]byte, error) {
	if p.Wildcard {
		return json.Marshal("*")
	}
	type alias Principal
	return json.Marshal(alias(p))
}

// ConditionBlock maps operator -> context key -> expected values.
type ConditionBlock map[string]map[string]StringOrArr

type Statement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Principal *Principal     `json:"Principal,omitempty"`
	Action    StringOrArr    `json:"Action"`
	Resource  StringOrArr    `json:"Resource"`
	Condition ConditionBlock `json:"Condition,omitempty"`
}

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// SourcedDocument pairs a parsed policy document with the name of the
// policy it came from, so evaluation traces can attribute statements to
// their source policy.
type SourcedDocument struct {
	PolicyName string
	Document   *PolicyDocument
}

// ParsePolicyDocument parses and validates an identity-based policy
// document. Unknown JSON fields, unknown condition operators, and
// statements missing an effect, action or resource are all rejected.
func ParsePolicyDocument(doc string) (*PolicyDocument, error) {
	return parseDocument(doc, false)
}

// ParseResourcePolicyDocument parses and validates a resource-based policy
// document. Identical to ParsePolicyDocument except every statement must
// carry a Principal clause.
func ParseResourcePolicyDocument(doc string) (*PolicyDocument, error) {
	return parseDocument(doc, true)
}

func parseDocument(doc string, requirePrincipal bool) (*PolicyDocument, error) {
	if doc == "" {
		return nil, fmt.Errorf("policy document is empty")
	}

	var parsed PolicyDocument
	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON in policy document: %w", err)
	}

	if parsed.Version != PolicyVersion {
		return nil, fmt.Errorf("policy version must be %q", PolicyVersion)
	}
	if len(parsed.Statement) == 0 {
		return nil, fmt.Errorf("policy must contain at least one statement")
	}

	for i := range parsed.Statement {
		stmt := &parsed.Statement[i]
		if stmt.Effect != EffectAllow && stmt.Effect != EffectDeny {
			return nil, fmt.Errorf("statement %d: effect must be Allow or Deny, got %q", i, stmt.Effect)
		}
		if len(stmt.Action) == 0 {
			return nil, fmt.Errorf("statement %d: action is required", i)
		}
		if len(stmt.Resource) == 0 {
			return nil, fmt.Errorf("statement %d: resource is required", i)
		}
		for _, action := range stmt.Action {
			if action == "" {
				return nil, fmt.Errorf("statement %d: action patterns must be non-empty", i)
			}
		}
		for _, resource := range stmt.Resource {
			if resource == "" {
				return nil, fmt.Errorf("statement %d: resource patterns must be non-empty", i)
			}
		}
		if requirePrincipal {
			if stmt.Principal == nil {
				return nil, fmt.Errorf("statement %d: resource policies require a Principal", i)
			}
			if !stmt.Principal.Wildcard && len(stmt.Principal.AWS) == 0 && len(stmt.Principal.Service) == 0 {
				return nil, fmt.Errorf("statement %d: principal must name at least one identity", i)
			}
		} else if stmt.Principal != nil {
			return nil, fmt.Errorf("statement %d: identity policies must not contain a Principal", i)
		}
		for op, keys := range stmt.Condition {
			if !validOperators[op] {
				return nil, fmt.Errorf("statement %d: unknown condition operator %q", i, op)
			}
			if len(keys) == 0 {
				return nil, fmt.Errorf("statement %d: condition operator %q has no keys", i, op)
			}
			for key, values := range keys {
				if key == "" {
					return nil, fmt.Errorf("statement %d: condition operator %q has an empty key", i, op)
				}
				if len(values) == 0 {
					return nil, fmt.Errorf("statement %d: condition key %q has no values", i, key)
				}
			}
		}
	}

	return &parsed, nil
}
