// Package procedure compiles rule definitions written as expressions into
// engine rules.
//
// Conditions and statements are expr-lang expressions. Each one runs
// against a fresh environment holding:
//
//	fact    native view of the fact (maps, slices, scalars)
//	result  native view of the accumulator
//	rule    {name, priority, index} of the rule being evaluated
//	env     the configured environment; its keys are also bound directly
//
// The native views are snapshots: assigning into them changes nothing.
// Facts and results change only through the builtins:
//
//	get(path)            value at path, nil when absent
//	has(path[, key])     path is defined / container at path holds key
//	set(path, v)         store v at path
//	unset(path)          delete the field, key or element at path
//	add(path, v)         insert v into the set at path
//	remove(path, v)      remove v from the set, list or map at path
//	push(path, v...)     append to the list at path
//	clear(path)          empty the container at path
//	setResult(v)         assign the result
//	pushResult(v...)     append to the list result
//	putResult(k, v)      store k/v in the map result
//	addResult(v)         insert v into the set result
//	stop()               end evaluation after this step
//	next()               reserved, no effect
//	log(msg, kv...)      log at info level with the rule name
//
// A path is a dot separated list of record fields, map keys and list
// indexes. The empty path is the fact itself. Statements of one rule run in
// order and each sees the writes of the previous ones.
package procedure
