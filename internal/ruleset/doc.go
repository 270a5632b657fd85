// Package ruleset loads rule definitions from CUE directories and YAML
// files and validates them.
//
// A CUE rule set declares rules under the "rule" struct, keyed by name, in
// the order they should appear, plus an optional "config" block:
//
//	rule: "needs-job": {
//		priority: 10
//		when:     "fact.year == 'three'"
//		then:     "set('needsJob', true)"
//	}
//	config: result_shape: "value"
//
// The YAML form carries the same fields as a list:
//
//	rules:
//	  - name: needs-job
//	    priority: 10
//	    when: fact.year == 'three'
//	    then: [set('needsJob', true)]
//
// Definitions hold expression source only. Package procedure compiles them
// into engine rules.
package ruleset
