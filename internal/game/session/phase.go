package session

// Phase is the roll session's position in the Idle → Rolling → RuleShown cycle.
type Phase int

const (
	// Idle accepts roll requests; no rule is displayed.
	Idle Phase = iota
	// Rolling holds a committed outcome whose presentation has not finished.
	// Roll requests are ignored.
	Rolling
	// RuleShown displays the rule for the current outcome. Roll requests are accepted.
	RuleShown
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Rolling:
		return "rolling"
	case RuleShown:
		return "rule_shown"
	default:
		return "unknown"
	}
}

// Reasons attached to ignored transitions.
const (
	ReasonRollInProgress = "roll in progress"
	ReasonNotRolling     = "not rolling"
	ReasonNoRuleShown    = "no rule shown"
	ReasonStaleRoll      = "stale roll"
)

// Transition reports the effect of one inbound call.
//
// Invariant: Accepted == false implies From == To and no state changed.
type Transition struct {
	From     Phase
	To       Phase
	Accepted bool
	// Reason is set when the call was ignored.
	Reason string
}

func accepted(from, to Phase) Transition {
	return Transition{From: from, To: to, Accepted: true}
}

func ignored(p Phase, reason string) Transition {
	return Transition{From: p, To: p, Reason: reason}
}
