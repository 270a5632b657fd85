// Package harness runs rule sets against YAML scenarios.
//
// # Scenario Format
//
//	name: accountant
//	description: "Third years need a job and become accountants"
//	rules: ../rules/accountant.yaml   # rule file or CUE directory, relative to the scenario
//	config:                           # optional, laid over the rule set's config
//	  result_shape: value
//	facts: {year: three}
//	seed: 0                           # optional accumulator seed
//	chain: false                      # true evaluates facts as a sequence through Chain
//	expect:
//	  result: accountant
//	  sequence: [needs-job, is-accountant]
//	  fact: {year: three, needsJob: true}
//	assertions:
//	  - type: fired
//	    rule: needs-job
//	  - type: fired_count
//	    rule: is-accountant
//	    count: 2
//
// For a chain, expect.sequences lists one sequence per fact and expect.fact
// the list of final facts. expect.error makes the scenario pass only when
// evaluation fails with a message containing it.
//
// # Assertion Types
//
//   - fired: the rule fired at least once
//   - not_fired: the rule never fired
//   - fired_order: the rules first fired in the given order
//   - fired_count: the rule fired exactly count times, counted from the run log
//   - fact_value: the value at path in the final fact (the last fact of a chain)
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory run log with sequential run
// IDs, so the trace and the golden snapshot are identical across runs.
package harness
