package procedure

import (
	"fmt"
	"log/slog"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
)

// builtinNames are the functions bound into every environment. Statements
// calling any other plain identifier fail to compile.
var builtinNames = []string{
	"get", "has", "set", "unset", "add", "remove", "push", "clear",
	"setResult", "pushResult", "putResult", "addResult",
	"stop", "next", "log",
}

// exprFunc is the calling convention expr uses for environment functions.
type exprFunc = func(args ...any) (any, error)

// builtins binds the procedure functions to one scope. view is the native
// view the environment was built from; values written back through it keep
// the identity of the nodes they were read from.
type builtins struct {
	s      *engine.Scope
	view   *fact.NativeView
	logger *slog.Logger
}

func (b *builtins) bind(env map[string]any) {
	env["get"] = exprFunc(b.get)
	env["has"] = exprFunc(b.has)
	env["set"] = exprFunc(b.set)
	env["unset"] = exprFunc(b.unset)
	env["add"] = exprFunc(b.add)
	env["remove"] = exprFunc(b.remove)
	env["push"] = exprFunc(b.push)
	env["clear"] = exprFunc(b.clear)
	env["setResult"] = exprFunc(b.setResult)
	env["pushResult"] = exprFunc(b.pushResult)
	env["putResult"] = exprFunc(b.putResult)
	env["addResult"] = exprFunc(b.addResult)
	env["stop"] = exprFunc(b.stop)
	env["next"] = exprFunc(b.next)
	env["log"] = exprFunc(b.log)
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return fmt.Errorf("%s: want %d argument(s), got %d", name, min, len(args))
		case max < 0:
			return fmt.Errorf("%s: want at least %d argument(s), got %d", name, min, len(args))
		default:
			return fmt.Errorf("%s: want %d to %d arguments, got %d", name, min, max, len(args))
		}
	}
	return nil
}

func pathArg(name string, args []any) (string, error) {
	p, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: path must be a string, got %T", name, args[0])
	}
	return p, nil
}

func (b *builtins) value(name string, x any) (fact.Value, error) {
	v, err := b.view.FromGo(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func (b *builtins) get(args ...any) (any, error) {
	if err := arity("get", args, 1, 1); err != nil {
		return nil, err
	}
	p, err := pathArg("get", args)
	if err != nil {
		return nil, err
	}
	v, _ := lookup(b.s.Fact, splitPath(p))
	return b.view.ToGo(v), nil
}

func (b *builtins) has(args ...any) (any, error) {
	if err := arity("has", args, 1, 2); err != nil {
		return nil, err
	}
	p, err := pathArg("has", args)
	if err != nil {
		return nil, err
	}
	v, ok := lookup(b.s.Fact, splitPath(p))
	if len(args) == 1 {
		return ok && v != nil, nil
	}
	if !ok {
		return false, nil
	}

	key, err := b.value("has", args[1])
	if err != nil {
		return nil, err
	}
	switch c := v.(type) {
	case fact.RecordValue:
		s, isString := key.(fact.String)
		return isString && c.Has(string(s)), nil
	case fact.MapValue:
		if c.Has(key) {
			return true, nil
		}
		if s, isString := key.(fact.String); isString {
			return c.Has(mapKey(c, string(s))), nil
		}
		return false, nil
	case fact.SetValue:
		return c.Has(key) || indexOf(c.Values(), key) >= 0, nil
	case fact.ListValue:
		return indexOf(c.Values(), key) >= 0, nil
	}
	return false, fmt.Errorf("has: %q is a %s, not a container", p, kindName(v))
}

func (b *builtins) set(args ...any) (any, error) {
	if err := arity("set", args, 2, 2); err != nil {
		return nil, err
	}
	p, err := pathArg("set", args)
	if err != nil {
		return nil, err
	}
	v, err := b.value("set", args[1])
	if err != nil {
		return nil, err
	}
	c, key, err := parent(b.s.Fact, p)
	if err != nil {
		return nil, fmt.Errorf("set: %w", err)
	}
	if err := assign(c, key, v); err != nil {
		return nil, fmt.Errorf("set: %w", err)
	}
	return nil, nil
}

func (b *builtins) unset(args ...any) (any, error) {
	if err := arity("unset", args, 1, 1); err != nil {
		return nil, err
	}
	p, err := pathArg("unset", args)
	if err != nil {
		return nil, err
	}
	c, key, err := parent(b.s.Fact, p)
	if err != nil {
		return nil, fmt.Errorf("unset: %w", err)
	}
	removed, err := deleteKey(c, key)
	if err != nil {
		return nil, fmt.Errorf("unset: %w", err)
	}
	return removed, nil
}

func (b *builtins) add(args ...any) (any, error) {
	if err := arity("add", args, 2, 2); err != nil {
		return nil, err
	}
	p, err := pathArg("add", args)
	if err != nil {
		return nil, err
	}
	t, err := target(b.s.Fact, p)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	set, ok := t.(fact.SetValue)
	if !ok {
		return nil, fmt.Errorf("add: %q is a %s, not a set", p, kindName(t))
	}
	v, err := b.value("add", args[1])
	if err != nil {
		return nil, err
	}
	if indexOf(set.Values(), v) >= 0 {
		return false, nil
	}
	return set.Add(v), nil
}

func (b *builtins) remove(args ...any) (any, error) {
	if err := arity("remove", args, 2, 2); err != nil {
		return nil, err
	}
	p, err := pathArg("remove", args)
	if err != nil {
		return nil, err
	}
	t, err := target(b.s.Fact, p)
	if err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	v, err := b.value("remove", args[1])
	if err != nil {
		return nil, err
	}

	switch c := t.(type) {
	case fact.SetValue:
		members := c.Values()
		if i := indexOf(members, v); i >= 0 {
			return c.Delete(members[i]), nil
		}
		return false, nil
	case fact.ListValue:
		if i := indexOf(c.Values(), v); i >= 0 {
			c.RemoveAt(i)
			return true, nil
		}
		return false, nil
	case fact.MapValue:
		if s, ok := v.(fact.String); ok {
			return c.Delete(mapKey(c, string(s))), nil
		}
		return c.Delete(v), nil
	}
	return nil, fmt.Errorf("remove: %q is a %s, not a set, list or map", p, kindName(t))
}

func (b *builtins) push(args ...any) (any, error) {
	if err := arity("push", args, 1, -1); err != nil {
		return nil, err
	}
	p, err := pathArg("push", args)
	if err != nil {
		return nil, err
	}
	t, err := target(b.s.Fact, p)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	list, ok := t.(fact.ListValue)
	if !ok {
		return nil, fmt.Errorf("push: %q is a %s, not a list", p, kindName(t))
	}
	vs := make([]fact.Value, 0, len(args)-1)
	for _, x := range args[1:] {
		v, err := b.value("push", x)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	list.Append(vs...)
	return list.Len(), nil
}

func (b *builtins) clear(args ...any) (any, error) {
	if err := arity("clear", args, 1, 1); err != nil {
		return nil, err
	}
	p, err := pathArg("clear", args)
	if err != nil {
		return nil, err
	}
	t, err := target(b.s.Fact, p)
	if err != nil {
		return nil, fmt.Errorf("clear: %w", err)
	}
	switch c := t.(type) {
	case fact.RecordValue:
		c.Clear()
	case fact.ListValue:
		c.Clear()
	case fact.MapValue:
		c.Clear()
	case fact.SetValue:
		c.Clear()
	default:
		return nil, fmt.Errorf("clear: %q is a %s, not a container", p, kindName(t))
	}
	return nil, nil
}

func (b *builtins) setResult(args ...any) (any, error) {
	if err := arity("setResult", args, 1, 1); err != nil {
		return nil, err
	}
	v, err := b.value("setResult", args[0])
	if err != nil {
		return nil, err
	}
	b.s.Result.Set(v)
	return nil, nil
}

func (b *builtins) pushResult(args ...any) (any, error) {
	vs := make([]fact.Value, 0, len(args))
	for _, x := range args {
		v, err := b.value("pushResult", x)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	if err := b.s.Result.Append(vs...); err != nil {
		return nil, fmt.Errorf("pushResult: %w", err)
	}
	return nil, nil
}

func (b *builtins) putResult(args ...any) (any, error) {
	if err := arity("putResult", args, 2, 2); err != nil {
		return nil, err
	}
	k, err := b.value("putResult", args[0])
	if err != nil {
		return nil, err
	}
	v, err := b.value("putResult", args[1])
	if err != nil {
		return nil, err
	}
	if err := b.s.Result.Put(k, v); err != nil {
		return nil, fmt.Errorf("putResult: %w", err)
	}
	return nil, nil
}

func (b *builtins) addResult(args ...any) (any, error) {
	if err := arity("addResult", args, 1, 1); err != nil {
		return nil, err
	}
	v, err := b.value("addResult", args[0])
	if err != nil {
		return nil, err
	}
	if err := b.s.Result.Add(v); err != nil {
		return nil, fmt.Errorf("addResult: %w", err)
	}
	return nil, nil
}

func (b *builtins) stop(args ...any) (any, error) {
	if err := arity("stop", args, 0, 0); err != nil {
		return nil, err
	}
	b.s.Stop()
	return nil, nil
}

func (b *builtins) next(args ...any) (any, error) {
	if err := arity("next", args, 0, 0); err != nil {
		return nil, err
	}
	b.s.Next()
	return nil, nil
}

func (b *builtins) log(args ...any) (any, error) {
	if err := arity("log", args, 1, -1); err != nil {
		return nil, err
	}
	msg, ok := args[0].(string)
	if !ok {
		msg = fmt.Sprint(args[0])
	}
	attrs := append([]any{"rule", b.s.Rule.Name}, args[1:]...)
	b.logger.Info(msg, attrs...)
	return nil, nil
}
