package mydll

import (
	"fmt"
	"io"
	"log"
	"os"
)

type (
	// Reason is the lifecycle event code delivered by the host, values follow the platform loader.
	Reason uint32
	// Handle is the opaque handle of the loaded library instance.
	Handle uintptr
	// Library writes its lines into an output sink.
	Library struct {
		out   io.Writer
		debug bool
	}
)

const (
	ProcessDetach Reason = iota // the host unloads the library
	ProcessAttach               // the host loads the library
	ThreadAttach                // the host creates a thread
	ThreadDetach                // a host thread exits normally
)

const (
	// ShareLine is written by Share.
	ShareLine = "I am an exported function, can be called outside the DLL"
	// KeepLine is written by the internal function.
	KeepLine = "I am not exported, can be called only within the DLL"
)

func (r Reason) String() string {
	switch r {
	case ProcessDetach:
		return "ProcessDetach"
	case ProcessAttach:
		return "ProcessAttach"
	case ThreadAttach:
		return "ThreadAttach"
	case ThreadDetach:
		return "ThreadDetach"
	default:
		return fmt.Sprintf("Reason(%d)", uint32(r))
	}
}

var std = new(Library)

// New create a Library writing to out, a nil out means the current stdout. An optional debug parameter enables debug logging.
func New(out io.Writer, debug ...bool) *Library {
	return &Library{out: out, debug: len(debug) > 0 && debug[0]}
}

func (l *Library) writer() io.Writer {
	if l.out == nil {
		return os.Stdout
	}
	return l.out
}

// Default the process-wide Library used by Share and DllMain.
func Default() *Library {
	return std
}

// Share writes the exported line.
func (l *Library) Share() {
	_, _ = fmt.Fprintln(l.writer(), ShareLine)
}

func (l *Library) keep() {
	_, _ = fmt.Fprintln(l.writer(), KeepLine)
}

// Main handles one lifecycle event. It always reports success.
func (l *Library) Main(module Handle, reason Reason, reserved uintptr) bool {
	if l.debug {
		log.Printf("lifecycle %s module %x reserved %x", reason, uintptr(module), reserved)
	}
	switch reason {
	case ProcessAttach:
		l.Share()
		l.keep()
	case ThreadAttach:
	case ThreadDetach:
	case ProcessDetach:
	}
	return true
}

// Share writes the exported line to stdout.
func Share() {
	std.Share()
}

// DllMain is the entry point of the process-wide Library.
func DllMain(module Handle, reason Reason, reserved uintptr) bool {
	return std.Main(module, reason, reserved)
}
