package host

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/ZenLiuCN/mydll"
)

type (
	// EntryPoint is the lifecycle entry point a loadable library exports, see [mydll.DllMain].
	EntryPoint = func(module uintptr, reason uint32, reserved uintptr) bool
	// Host delivers lifecycle events to one library.
	//
	// Rules:
	//
	//	1. Deliveries never overlap.
	//	2. ProcessAttach is delivered once, until ProcessDetach.
	//	3. ThreadAttach and ThreadDetach are only delivered while attached, for threads started by [Host.Go].
	Host struct {
		mu       sync.Mutex
		module   uintptr
		entry    EntryPoint
		attached bool
		epoch    uint64 // count of accepted ProcessAttach
		debug    bool
	}
)

// NewHost create a Host for the library identified by module, an optional debug parameter will enable debug logging.
func NewHost(module uintptr, entry EntryPoint, debug ...bool) *Host {
	return &Host{module: module, entry: entry, debug: len(debug) > 0 && debug[0]}
}

// Static adapts an in process Library into an EntryPoint.
func Static(lib *mydll.Library) EntryPoint {
	return func(module uintptr, reason uint32, reserved uintptr) bool {
		return lib.Main(mydll.Handle(module), mydll.Reason(reason), reserved)
	}
}

func (h *Host) deliver(r mydll.Reason) bool {
	if h.debug {
		log.Printf("deliver %s to %x", r, h.module)
	}
	return h.entry(h.module, uint32(r), 0)
}

// Attached reports whether ProcessAttach was accepted and ProcessDetach not yet delivered.
func (h *Host) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

// Notify delivers one event, the result is what the entry point reported.
func (h *Host) Notify(r mydll.Reason) (ok bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch r {
	case mydll.ProcessAttach:
		if h.attached {
			return false, ErrAttached
		}
		if ok = h.deliver(r); !ok {
			return ok, fmt.Errorf("%w: %s", ErrRefused, r)
		}
		h.attached = true
		h.epoch++
	case mydll.ProcessDetach:
		if !h.attached {
			return false, ErrDetached
		}
		ok = h.deliver(r)
		h.attached = false
	default:
		if !h.attached {
			return false, ErrDetached
		}
		ok = h.deliver(r)
	}
	return
}

// Attach delivers ProcessAttach.
func (h *Host) Attach() (err error) {
	_, err = h.Notify(mydll.ProcessAttach)
	return
}

// Detach delivers ProcessDetach.
func (h *Host) Detach() (err error) {
	_, err = h.Notify(mydll.ProcessDetach)
	return
}

// threadAttach delivers ThreadAttach when attached and returns the attach epoch it was delivered in.
func (h *Host) threadAttach() (epoch uint64, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.attached {
		return
	}
	h.deliver(mydll.ThreadAttach)
	return h.epoch, true
}

// threadDetach delivers ThreadDetach only within the attach epoch of the matching ThreadAttach.
func (h *Host) threadDetach(epoch uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attached && h.epoch == epoch {
		h.deliver(mydll.ThreadDetach)
	}
}

// Go runs f on a fresh OS thread bracketed by ThreadAttach and ThreadDetach.
// ThreadDetach is skipped when the library was detached or reattached since ThreadAttach.
// The thread is terminated after f returns. The returned channel closes after ThreadDetach.
func (h *Host) Go(f func()) (<-chan struct{}, error) {
	if !h.Attached() {
		return nil, ErrDetached
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// never unlocked: the thread exits with the goroutine
		runtime.LockOSThread()
		if epoch, ok := h.threadAttach(); ok {
			defer h.threadDetach(epoch)
		}
		f()
	}()
	return done, nil
}
