package saga

// OutcomeKind classifies what a reconciler did with one message.
type OutcomeKind int

const (
	// OutcomeApplied means the effect was performed.
	OutcomeApplied OutcomeKind = iota
	// OutcomeSkipped means the message was already applied (duplicate delivery).
	OutcomeSkipped
	// OutcomeCompensated means the effect could not apply and a compensating
	// action was taken instead.
	OutcomeCompensated
	// OutcomeFailed means processing hit an unexpected failure. The message is
	// still acknowledged so the group keeps moving.
	OutcomeFailed
)

// Outcome is the explicit result of processing one message. Control flow for
// "not found" and "insufficient stock" goes through Compensated, not errors.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func Applied() Outcome                  { return Outcome{Kind: OutcomeApplied} }
func Skipped() Outcome                  { return Outcome{Kind: OutcomeSkipped} }
func Compensated(reason string) Outcome { return Outcome{Kind: OutcomeCompensated, Reason: reason} }
func Failed(reason string) Outcome      { return Outcome{Kind: OutcomeFailed, Reason: reason} }

func (o Outcome) String() string {
	var kind string
	switch o.Kind {
	case OutcomeApplied:
		kind = "applied"
	case OutcomeSkipped:
		kind = "skipped"
	case OutcomeCompensated:
		kind = "compensated"
	case OutcomeFailed:
		kind = "failed"
	}
	if o.Reason == "" {
		return kind
	}
	return kind + ": " + o.Reason
}
