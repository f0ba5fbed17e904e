package policy

import (
	"fmt"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
)

// Decision is the outcome of evaluating a request against a statement set.
type Decision int

const (
	DecisionDeny Decision = iota
	DecisionAllow
)

func (d Decision) String() string {
	if d == DecisionAllow {
		return "Allow"
	}
	return "Deny"
}

// StatementResult is the outcome of a single statement for a request.
type StatementResult int

const (
	ResultNotApplicable StatementResult = iota
	ResultAllow
	ResultDeny
)

func (r StatementResult) String() string {
	switch r {
	case ResultAllow:
		return "Allow"
	case ResultDeny:
		return "Deny"
	}
	return "NotApplicable"
}

// Request is a single authorization question: may this principal perform
// this action on this resource, given these request attributes?
type Request struct {
	// Principal is the requesting identity's user name. PrincipalARN is
	// its ARN; resource-policy Principal clauses match against both.
	Principal    string
	PrincipalARN string
	Action       string
	Resource     string
	Context      Context
}

// SourcedDocument pairs a parsed policy document with the name of the
// policy it came from. Aliased from the iam package so the store can
// return it without importing this one.
type SourcedDocument = iam.SourcedDocument

// StatementEval describes how one statement responded to a request.
type StatementEval struct {
	Result          StatementResult
	ActionPattern   string
	ResourcePattern string
	FailedCondition string
	Reason          string
}

// EvaluateStatement tests a single statement against a request. The result
// is the statement's effect when the action matches, the resource matches,
// the Principal clause (if any) covers the requester and every condition
// holds; otherwise NotApplicable with a reason naming the first mismatch.
func EvaluateStatement(stmt *iam.Statement, req *Request) StatementEval {
	if stmt.Principal != nil && !principalMatches(stmt.Principal, req) {
		return StatementEval{
			Result: ResultNotApplicable,
			Reason: "principal does not match",
		}
	}

	actionPattern, ok := MatchAny(stmt.Action, req.Action)
	if !ok {
		return StatementEval{
			Result: ResultNotApplicable,
			Reason: fmt.Sprintf("no action pattern matches %q", req.Action),
		}
	}

	resourcePattern, ok := MatchAny(stmt.Resource, req.Resource)
	if !ok {
		return StatementEval{
			Result:        ResultNotApplicable,
			ActionPattern: actionPattern,
			Reason:        fmt.Sprintf("no resource pattern matches %q", req.Resource),
		}
	}

	if op, key, ok := evalConditions(stmt.Condition, req.Context); !ok {
		failed := fmt.Sprintf("%s:%s", op, key)
		return StatementEval{
			Result:          ResultNotApplicable,
			ActionPattern:   actionPattern,
			ResourcePattern: resourcePattern,
			FailedCondition: failed,
			Reason:          fmt.Sprintf("condition %s not satisfied", failed),
		}
	}

	result := ResultAllow
	if stmt.Effect == iam.EffectDeny {
		result = ResultDeny
	}
	return StatementEval{
		Result:          result,
		ActionPattern:   actionPattern,
		ResourcePattern: resourcePattern,
		Reason:          fmt.Sprintf("matched action %q and resource %q", actionPattern, resourcePattern),
	}
}

func principalMatches(p *iam.Principal, req *Request) bool {
	if p.Wildcard {
		return true
	}
	for _, pattern := range p.AWS {
		if pattern == "*" {
			return true
		}
		if Match(pattern, req.PrincipalARN) || Match(pattern, req.Principal) {
			return true
		}
	}
	return false
}

// Evaluate resolves a request against a set of policy documents. An
// explicit Deny from any applicable statement wins over any number of
// Allows; with no applicable statement at all the default is Deny. The
// outcome does not depend on document or statement order.
func Evaluate(docs []SourcedDocument, req *Request) Decision {
	hasAllow := false
	for _, doc := range docs {
		if doc.Document == nil {
			continue
		}
		for i := range doc.Document.Statement {
			eval := EvaluateStatement(&doc.Document.Statement[i], req)
			switch eval.Result {
			case ResultDeny:
				return DecisionDeny
			case ResultAllow:
				hasAllow = true
			}
		}
	}
	if hasAllow {
		return DecisionAllow
	}
	return DecisionDeny
}
