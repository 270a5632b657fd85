package engine

// Step describes one evaluated rule. Steps are delivered to the function
// registered with WithTrace, in order, from the goroutine running Execute.
type Step struct {
	// Seq numbers steps within one Execute call, starting at 1.
	Seq int

	Rule  string
	Index int

	// Fired is true when the condition held and the action ran.
	Fired bool

	// Modified is true when the step changed the fact.
	Modified bool

	// Restart is true when the step sent evaluation back to the first rule.
	Restart bool

	// Stopped is true when the step ended evaluation through Stop.
	Stopped bool
}

// TraceFunc receives steps as they complete.
type TraceFunc func(Step)
