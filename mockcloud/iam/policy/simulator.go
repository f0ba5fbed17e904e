package policy

// StatementTrace records the outcome of one statement during a simulation,
// in original document order.
type StatementTrace struct {
	PolicyName      string
	StatementIndex  int
	Sid             string
	Result          StatementResult
	ActionPattern   string
	ResourcePattern string
	FailedCondition string
	Reason          string
}

// SimulationTrace is the full explanation of a simulated request: the
// final decision plus a per-statement breakdown.
type SimulationTrace struct {
	Decision   Decision
	Statements []StatementTrace
}

// MatchedStatements returns the traces of statements that applied to the
// request (allowed or denied it), preserving document order.
func (t *SimulationTrace) MatchedStatements() []StatementTrace {
	var matched []StatementTrace
	for _, st := range t.Statements {
		if st.Result != ResultNotApplicable {
			matched = append(matched, st)
		}
	}
	return matched
}

// Simulate evaluates a request against a set of policy documents and
// reports both the decision and how every statement contributed to it.
// The decision is identical to Evaluate over the same inputs; simulation
// never mutates anything.
func Simulate(docs []SourcedDocument, req *Request) *SimulationTrace {
	trace := &SimulationTrace{}
	hasAllow := false
	hasDeny := false

	for _, doc := range docs {
		if doc.Document == nil {
			continue
		}
		for i := range doc.Document.Statement {
			stmt := &doc.Document.Statement[i]
			eval := EvaluateStatement(stmt, req)
			trace.Statements = append(trace.Statements, StatementTrace{
				PolicyName:      doc.PolicyName,
				StatementIndex:  i,
				Sid:             stmt.Sid,
				Result:          eval.Result,
				ActionPattern:   eval.ActionPattern,
				ResourcePattern: eval.ResourcePattern,
				FailedCondition: eval.FailedCondition,
				Reason:          eval.Reason,
			})
			switch eval.Result {
			case ResultDeny:
				hasDeny = true
			case ResultAllow:
				hasAllow = true
			}
		}
	}

	// Unlike Evaluate, the full statement walk always completes so the
	// trace covers every statement even after an explicit deny.
	if hasDeny {
		trace.Decision = DecisionDeny
	} else if hasAllow {
		trace.Decision = DecisionAllow
	} else {
		trace.Decision = DecisionDeny
	}
	return trace
}
