package host

import (
	"errors"
	"maps"
	"os"
	"sync"
	"unsafe"

	"github.com/ZenLiuCN/fn"
	"github.com/ZenLiuCN/mydll"
	"github.com/pkujhd/goloader"
)

type (
	// Symbols contains resolved symbols a Module links against.
	//
	// If two Module share the same Symbols instance, the later one may depend on the earlier after Link.
	Symbols interface {
		Symbols() []string //resolved symbol names
		table() map[string]uintptr
	}
	symbols map[string]uintptr
)

var (
	runtimeOnce sync.Once
	runtimeSyms map[string]uintptr
	runtimeErr  error
)

func registered() (map[string]uintptr, error) {
	runtimeOnce.Do(func() {
		runtimeSyms = make(map[string]uintptr)
		if runtimeErr = goloader.RegSymbol(runtimeSyms); runtimeErr == nil {
			hostVars(runtimeSyms)
		}
	})
	return runtimeSyms, runtimeErr
}

// hostVars adds the data symbols the executable symbol table does not always carry.
func hostVars(s map[string]uintptr) {
	for name, p := range map[string]unsafe.Pointer{
		"os.Stdin":  unsafe.Pointer(&os.Stdin),
		"os.Stdout": unsafe.Pointer(&os.Stdout),
		"os.Stderr": unsafe.Pointer(&os.Stderr),
	} {
		if _, ok := s[name]; !ok {
			s[name] = uintptr(p)
		}
	}
}

// NewSymbols create a Symbols with the symbols of the host executable.
func NewSymbols() (Symbols, error) {
	s, err := registered()
	if err != nil {
		return nil, err
	}
	return symbols(maps.Clone(s)), nil
}

// RegisterTypes registers types used across the module boundary.
func RegisterTypes(sym Symbols, types ...any) {
	goloader.RegTypes(sym.table(), types...)
}

// RegisterLibrary registers the [mydll.Library] type and its methods, modules wrapping the library link against them.
func RegisterLibrary(sym Symbols) {
	RegisterTypes(sym, mydll.Default())
}

// Symbols dump symbol names inside Symbols
func (s symbols) Symbols() []string {
	return fn.MapKeys(s)
}
func (s symbols) table() map[string]uintptr {
	return s
}

var (
	// ErrMissingSymbol occurs when can't found a symbol.
	ErrMissingSymbol = errors.New("missing symbol")
	// ErrAlreadyInitialized occurs when a Module reinitializing.
	ErrAlreadyInitialized = errors.New("already initialized module")
	// ErrLinked occurs when a Module relinking.
	ErrLinked = errors.New("already linked")
	// ErrUninitialized occurs use or link a Module before initialized.
	ErrUninitialized = errors.New("module not initialized")
	// ErrAttached occurs when a library receives a second ProcessAttach.
	ErrAttached = errors.New("library already attached")
	// ErrDetached occurs when an event is delivered to a library not attached.
	ErrDetached = errors.New("library not attached")
	// ErrRefused occurs when the entry point reports failure.
	ErrRefused = errors.New("entry point refused")
)
