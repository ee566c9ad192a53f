package host

import (
	"fmt"
	"log"
)

// SharedLibrary is a build of the library opened by the OS loader, see the shared command.
//
// The OS loader delivers ProcessAttach while opening, only the export surface is reachable afterward.
type SharedLibrary struct {
	path   string
	handle uintptr
	share  func()
	debug  bool
}

// ExportShare is the exported symbol of the c-shared build.
const ExportShare = "Share"

// OpenShared opens the shared library at path and binds its Share export, an optional debug parameter will enable debug logging
func OpenShared(path string, debug ...bool) (s *SharedLibrary, err error) {
	s = &SharedLibrary{path: path, debug: len(debug) > 0 && debug[0]}
	if s.handle, err = openShared(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if s.debug {
		log.Printf("opened %s: %x", path, s.handle)
	}
	var addr uintptr
	if addr, err = s.Lookup(ExportShare); err != nil {
		_ = closeShared(s.handle)
		return nil, err
	}
	s.share = bindVoid(addr)
	return
}

// Lookup the address of an exported symbol.
func (s *SharedLibrary) Lookup(name string) (addr uintptr, err error) {
	if s.handle == 0 {
		return 0, ErrUninitialized
	}
	if addr, err = lookupShared(s.handle, name); err != nil || addr == 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrMissingSymbol, name, s.path)
	}
	if s.debug {
		log.Printf("found symbol %s: %x", name, addr)
	}
	return
}

// Share calls the exported function of the library.
func (s *SharedLibrary) Share() {
	s.share()
}

// Close releases the handle only. A go c-shared build carries a go runtime which can not be unloaded,
// so the library stays mapped in this process.
func (s *SharedLibrary) Close() error {
	if s.debug && s.handle != 0 {
		log.Printf("release %s: %x", s.path, s.handle)
	}
	s.handle = 0
	s.share = nil
	return nil
}
