// Package errorclassifier maps a failed step's error kind and the number
// of retries already spent on that step to a severity and recovery
// action, via a static table. It holds no state and performs no I/O.
package errorclassifier

import "github.com/ciuagent/ciuagent/model"

// Severity ranks how serious a classified error is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Recovery enumerates the action the Director should take in response to
// a classified error.
type Recovery string

const (
	// RecoveryRetry re-executes the same step unchanged.
	RecoveryRetry Recovery = "RETRY"
	// RecoveryReplan triggers a new plan, carrying completed-step context.
	RecoveryReplan Recovery = "REPLAN"
	// RecoveryReanalyze forces a recapture before retrying the step.
	RecoveryReanalyze Recovery = "REANALYZE"
	// RecoverySkip advances past the failed step without retrying.
	RecoverySkip Recovery = "SKIP"
	// RecoveryAbort fails the task.
	RecoveryAbort Recovery = "ABORT"
)

// Verdict is the outcome of classifying one step failure.
type Verdict struct {
	Kind      model.ErrorKind
	Severity  Severity
	Recovery  Recovery
	Reanalyze bool
}

type rule struct {
	severity      Severity
	whenRetrying  Recovery
	whenExhausted Recovery
	reanalyze     bool
}

var table = map[model.ErrorKind]rule{
	model.ErrorZoneNotFound:      {SeverityMedium, RecoveryReplan, RecoveryAbort, true},
	model.ErrorActionFailed:      {SeverityLow, RecoveryRetry, RecoveryReplan, false},
	model.ErrorBrushLost:         {SeverityMedium, RecoveryReanalyze, RecoveryReplan, true},
	model.ErrorTimeout:           {SeverityLow, RecoveryRetry, RecoveryReplan, false},
	model.ErrorParseError:        {SeverityLow, RecoverySkip, RecoverySkip, false},
	model.ErrorUnsupportedGlobal: {SeverityHigh, RecoveryAbort, RecoveryAbort, false},
	model.ErrorPlanInvalid:       {SeverityHigh, RecoveryReplan, RecoveryAbort, true},
	model.ErrorBudgetExhausted:   {SeverityCritical, RecoveryAbort, RecoveryAbort, false},
	// platform_error is not in the spec's table; it degrades like
	// action_failed on first attempts and escalates to ABORT once retries
	// are spent, since a misbehaving adapter won't self-correct.
	model.ErrorPlatform: {SeverityLow, RecoveryRetry, RecoveryAbort, false},
}

// Classify returns the Verdict for kind given retryCount retries already
// spent on the current step and maxRetries the step's retry budget.
func Classify(kind model.ErrorKind, retryCount, maxRetries int) Verdict {
	r, ok := table[kind]
	if !ok {
		// Unknown error kinds are treated as the most conservative case:
		// abort rather than risk looping on a failure mode nothing in the
		// table anticipated.
		return Verdict{Kind: kind, Severity: SeverityCritical, Recovery: RecoveryAbort, Reanalyze: false}
	}

	recovery := r.whenRetrying
	if retryCount >= maxRetries {
		recovery = r.whenExhausted
	}
	return Verdict{Kind: kind, Severity: r.severity, Recovery: recovery, Reanalyze: r.reanalyze}
}
