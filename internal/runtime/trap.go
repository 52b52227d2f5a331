package runtime

import (
	"fmt"

	"rebo/internal/fault"
)

// trapFrame tracks the scoped guards installed while a trap is live.
type trapFrame struct {
	guards []func()
}

func (f *trapFrame) release() {
	for i := len(f.guards) - 1; i >= 0; i-- {
		f.guards[i]()
	}
	f.guards = nil
}

// QuitSignal carries the exit value of a Quit call up through every trap.
type QuitSignal struct {
	Code int
}

// Trap runs fn and converts a raised recoverable error into a return
// value. Fatal errors and quit signals pass through to the next frame.
// Guards installed inside the frame run on every exit path.
func (rt *Runtime) Trap(fn func()) (err *fault.Error) {
	frame := &trapFrame{}
	rt.traps = append(rt.traps, frame)
	defer func() {
		rt.traps = rt.traps[:len(rt.traps)-1]
		frame.release()
		if r := recover(); r != nil {
			e, ok := r.(*fault.Error)
			if !ok || e.Code.Fatal() {
				panic(r)
			}
			err = e
		}
	}()
	fn()
	return nil
}

// Raise unwinds to the nearest trap frame. Errors raised outside any
// frame propagate as a plain panic.
func (rt *Runtime) Raise(err *fault.Error) {
	if err == nil {
		return
	}
	panic(err)
}

// Guard registers a release function on the innermost trap frame. With
// no frame active the release runs immediately on runtime shutdown.
func (rt *Runtime) Guard(release func()) {
	if n := len(rt.traps); n > 0 {
		f := rt.traps[n-1]
		f.guards = append(f.guards, release)
		return
	}
	rt.shutdownGuards = append(rt.shutdownGuards, release)
}

// Quit unwinds the whole runtime with an exit code. Callers at the top
// level recover the QuitSignal and terminate the process.
func (rt *Runtime) Quit(code int) {
	panic(QuitSignal{Code: code})
}

// CatchQuit runs fn and returns the exit code if fn quits, or -1 when
// fn returns normally.
func (rt *Runtime) CatchQuit(fn func()) (code int) {
	code = -1
	defer func() {
		if r := recover(); r != nil {
			q, ok := r.(QuitSignal)
			if !ok {
				panic(r)
			}
			code = q.Code
		}
	}()
	fn()
	return code
}

// Raisef formats and raises an error in one step.
func (rt *Runtime) Raisef(code fault.Code, format string, args ...any) {
	rt.Raise(fault.New(code, "%s", fmt.Sprintf(format, args...)))
}
