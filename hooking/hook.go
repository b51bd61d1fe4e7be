// Package hooking lets observers follow an eviction set construction run
// without the algorithm knowing who is listening.
//
// Generators, reducers, verifiers and drivers raise hooks at fixed positions.
// Loggers, recorders and monitors register as hooks and pick the positions
// they care about.
package hooking

// A HookPos names a point of a run where hooks are raised. Positions are
// compared by pointer.
type HookPos struct {
	Name string
}

// HookCtx is what a hook receives when it is raised.
type HookCtx struct {
	// Domain raised the hook.
	Domain Hookable

	// Pos is where the run is.
	Pos *HookPos

	// Item is the subject at the position, usually an address set.
	Item any

	// Detail describes the position further. It may be nil.
	Detail any
}

// Hookable is implemented by every stage that raises hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks are registered before the run and
	// stay registered.
	AcceptHook(hook Hook)

	// NumHooks returns the number of registered hooks.
	NumHooks() int

	// Hooks returns the registered hooks.
	Hooks() []Hook

	// InvokeHook calls every registered hook in registration order.
	InvokeHook(ctx HookCtx)
}

// A Hook observes a run.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// OnPos returns a hook that calls f only at the given positions.
func OnPos(f HookFunc, positions ...*HookPos) Hook {
	return HookFunc(func(ctx HookCtx) {
		for _, p := range positions {
			if ctx.Pos == p {
				f(ctx)
				return
			}
		}
	})
}

// HookableBase keeps the hook list of a Hookable.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates an empty HookableBase.
func NewHookableBase() *HookableBase {
	return &HookableBase{}
}

// NumHooks returns the number of registered hooks.
func (b *HookableBase) NumHooks() int {
	return len(b.hooks)
}

// Hooks returns the registered hooks.
func (b *HookableBase) Hooks() []Hook {
	return b.hooks
}

// AcceptHook registers a hook. Registering the same hook value twice panics.
// Function hooks cannot be compared and are always accepted.
func (b *HookableBase) AcceptHook(hook Hook) {
	if _, isFunc := hook.(HookFunc); !isFunc {
		for _, h := range b.hooks {
			if h == hook {
				panic("duplicated hook")
			}
		}
	}

	b.hooks = append(b.hooks, hook)
}

// InvokeHook calls every registered hook.
func (b *HookableBase) InvokeHook(ctx HookCtx) {
	for _, h := range b.hooks {
		h.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
