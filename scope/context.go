package scope

import (
	"fmt"
	"sync"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// Context holds a scoped variable mapping plus an inherited, narrowable
// permission allow-list and a resource budget (C1). Contexts form a
// strict tree: children hold a pointer to their parent for variable
// inheritance, never the reverse, so there is no ownership cycle
// (§9 "no cyclic ownership").
type Context struct {
	mu sync.RWMutex

	id     swarmcore.ID
	parent *Context

	vars   map[string]Value
	allow  AllowList
	budget Budget

	frozen bool
}

// New creates a root Context with no parent.
func New(initVars map[string]Value, allow AllowList, budget Budget) *Context {
	vars := make(map[string]Value, len(initVars))
	for k, v := range initVars {
		vars[k] = v
	}
	return &Context{
		id:     swarmcore.NewID(),
		vars:   vars,
		allow:  allow,
		budget: budget,
	}
}

// ID returns the Context's opaque identifier.
func (c *Context) ID() swarmcore.ID { return c.id }

// Child derives a narrowed child Context. narrowAllow must satisfy
// Invariant CTX-1 (narrowAllow ⊆ c.allow element-wise); if it widens
// any dimension, Child returns an error rather than silently clamping,
// so callers discover the bug instead of getting a context that is
// wider than they asked for.
func (c *Context) Child(narrowAllow AllowList, budget Budget) (*Context, error) {
	c.mu.RLock()
	parentAllow := c.allow
	vars := make(map[string]Value, len(c.vars))
	for k, v := range c.vars {
		vars[k] = v
	}
	c.mu.RUnlock()

	if !Narrows(parentAllow, narrowAllow) {
		return nil, swarmcore.NewRuntimeError("context.child", swarmcore.KindInvalidIntent, c.id.String(),
			"child allow-list is not a subset of parent allow-list", nil)
	}

	return &Context{
		id:     swarmcore.NewID(),
		parent: c,
		vars:   vars,
		allow:  narrowAllow,
		budget: budget,
	}, nil
}

// Parent returns the parent Context, or nil for a root.
func (c *Context) Parent() *Context { return c.parent }

// Get returns the variable bound to name, inherited from the nearest
// ancestor that defines it.
func (c *Context) Get(name string) (Value, bool) {
	c.mu.RLock()
	v, ok := c.vars[name]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if c.parent != nil {
		return c.parent.Get(name)
	}
	return Value{}, false
}

// Put binds name to value in this Context. Put fails once the Context
// has been frozen (Invariant CTX-2).
func (c *Context) Put(name string, value Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return swarmcore.NewRuntimeError("context.put", swarmcore.KindInvalidIntent, c.id.String(),
			fmt.Sprintf("context is frozen, cannot set %q", name), swarmcore.ErrFrozen)
	}
	c.vars[name] = value
	return nil
}

// Freeze marks the Context as observed by a running Step. Once frozen
// it is append-only: Put always fails afterward (Invariant CTX-2).
// Freeze is idempotent.
func (c *Context) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// Frozen reports whether the context has been frozen.
func (c *Context) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// AllowList returns a copy of the Context's permission allow-list.
func (c *Context) AllowList() AllowList {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allow.Clone()
}

// Budget returns the Context's resource budget.
func (c *Context) Budget() Budget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.budget
}

// CheckPermission evaluates a permission check against this Context's
// allow-list, per the rules in §4.1.
func (c *Context) CheckPermission(op OpKind, target string) Decision {
	c.mu.RLock()
	allow := c.allow
	c.mu.RUnlock()
	return checkPermission(allow, op, target)
}
