package host

import (
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"unsafe"

	"github.com/pkujhd/goloader"
)

type (
	//Sym is a simple alias of uintptr.
	Sym uintptr
	//Module is a library linked from object files or a serialized linker.
	//
	//Use Steps:
	//
	//	1. Initialize, InitializeMany or InitializeSerialized.
	//	2. [Module.Load] to link and deliver ProcessAttach, or [Module.Link] to link only.
	//	3. Use the exported symbols.
	//	4. [Module.Free] delivers ProcessDetach and releases the code.
	//
	//Note:
	//
	//	1. Must fetch and use one symbol as desired type inside one specific goroutine.
	//	2. lifecycle deliveries are serialized by the [Host], other methods are not thread-safe.
	Module struct {
		files  []string
		pkg    []string
		sym    symbols
		linker *goloader.Linker
		module *goloader.CodeModule
		host   *Host
		debug  bool
	}
)

// EntrySymbol is the name of the lifecycle entry point inside a module package.
const EntrySymbol = "DllMain"

// NewModule create new Module with provided Symbols, an optional debug parameter will enable debug logging inside Module
func NewModule(sym Symbols, debug ...bool) *Module {
	return &Module{sym: symbols(sym.table()), debug: len(debug) > 0 && debug[0]}
}

// GetLinker fetch the internal [goloader.Linker], it is nil before initial stage by [Module.Initialize]
func (m *Module) GetLinker() *goloader.Linker {
	return m.linker
}
// GetModule fetch the internal [goloader.CodeModule], it is nil before link stage by [Module.Link]
func (m *Module) GetModule() *goloader.CodeModule {
	return m.module
}

// Host the lifecycle host, nil before [Module.Load].
func (m *Module) Host() *Host {
	return m.host
}

// Packages the package paths of this module.
func (m *Module) Packages() []string {
	return m.pkg
}

func (m *Module) types(types []any) {
	if len(types) > 0 {
		if m.debug {
			log.Println("register types", types)
		}
		goloader.RegTypes(m.sym, types...)
	}
}

// InitializeMany from many object files
func (m *Module) InitializeMany(file, pkg []string, types ...any) (err error) {
	if m.linker != nil {
		return ErrAlreadyInitialized
	}
	m.types(types)
	if m.linker, err = goloader.ReadObjs(file, pkg); err != nil {
		return
	}
	m.files = append(m.files, file...)
	m.pkg = append(m.pkg, pkg...)
	if m.debug {
		log.Printf("create linker: %+v", m.linker)
	}
	return
}

// Initialize from one object file
func (m *Module) Initialize(file, pkg string, types ...any) (err error) {
	return m.InitializeMany([]string{file}, []string{pkgOrMain(pkg)}, types...)
}

// InitializeSerialized from serialized linker
func (m *Module) InitializeSerialized(in io.Reader, types ...any) (err error) {
	if m.linker != nil {
		return ErrAlreadyInitialized
	}
	m.types(types)
	if m.linker, err = goloader.UnSerialize(in); err != nil {
		return
	}
	for _, p := range m.linker.Packages {
		m.files = append(m.files, p.File)
		m.pkg = append(m.pkg, p.PkgPath)
	}
	if m.debug {
		log.Printf("loaded linker: %+v", m.linker)
	}
	return
}

// Link and create code module
func (m *Module) Link() (err error) {
	if m.linker == nil {
		return ErrUninitialized
	}
	if m.module != nil {
		return ErrLinked
	}
	if m.module, err = goloader.Load(m.linker, m.sym); err != nil {
		return
	}
	if m.debug {
		log.Printf("create module: %+v", m.module)
	}
	return
}

// Load links the module when needed, resolves the entry point of the first package and delivers ProcessAttach.
func (m *Module) Load() (err error) {
	if m.module == nil {
		if err = m.Link(); err != nil {
			return
		}
	}
	if m.host != nil {
		return ErrAttached
	}
	if len(m.pkg) == 0 {
		return ErrUninitialized
	}
	name := m.pkg[0] + "." + EntrySymbol
	p, ok := m.Fetch(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingSymbol, name)
	}
	h := NewHost(uintptr(unsafe.Pointer(m.module)), As[EntryPoint](p), m.debug)
	if err = h.Attach(); err != nil {
		return
	}
	m.host = h
	return
}

func pkgOrMain(pkg string) string {
	if pkg == "" {
		return "main"
	}
	return pkg
}

func checkPackage(sym string) string {
	if strings.IndexByte(sym, '.') < 0 {
		return "main." + sym
	}
	return sym
}

// Fetch a symbol, which can cast to the desired type by [As]
func (m *Module) Fetch(sym string) (u Sym, ok bool) {
	if m.module == nil {
		return
	}
	sym = checkPackage(sym)
	var p uintptr
	if p, ok = m.module.Syms[sym]; !ok {
		return
	}
	if m.debug {
		log.Printf("found symbol %s: %x", sym, p)
	}
	return Sym(unsafe.Pointer(&p)), ok
}

// MustFetch a symbol, panics with ErrUninitialized or ErrMissingSymbol
func (m *Module) MustFetch(sym string) (u Sym) {
	if m.module == nil {
		panic(ErrUninitialized)
	}
	u, ok := m.Fetch(sym)
	if !ok {
		panic(ErrMissingSymbol)
	}
	return
}

// Exports the export surface: exported identifiers of the module packages, sorted.
func (m *Module) Exports() (v []string) {
	if m.module == nil {
		panic(ErrUninitialized)
	}
	for s := range m.module.Syms {
		for _, p := range m.pkg {
			if name, ok := strings.CutPrefix(s, p+"."); ok && isExportedName(name) {
				v = append(v, s)
				break
			}
		}
	}
	slices.Sort(v)
	return
}

// MissingSymbols dump the unresolved symbols
func (m *Module) MissingSymbols() []string {
	if m.linker == nil {
		panic(ErrUninitialized)
	}
	return goloader.UnresolvedSymbols(m.linker, m.sym)
}

// Serialize write linker data in [goloader] gob format which may loaded by InitializeSerialized
func (m *Module) Serialize(out io.Writer) error {
	if m.linker == nil {
		panic(ErrUninitialized)
	}
	return goloader.Serialize(m.linker, out)
}

// Free delivers ProcessDetach when attached and releases resources, sync parameter to sync the stdout or not
func (m *Module) Free(sync bool) {
	if m.host != nil {
		if err := m.host.Detach(); err != nil && m.debug {
			log.Printf("detach %v: %v", m.pkg, err)
		}
		m.host = nil
	}
	if m.linker == nil {
		return
	}
	if m.debug {
		log.Printf("free module: %v", m.pkg)
	}
	if m.module != nil {
		if sync {
			_ = os.Stdout.Sync()
		}
		m.module.Unload()
		m.module = nil
	}
	m.linker = nil
	m.files = m.files[:0]
	m.pkg = m.pkg[:0]
}

// Use create a function to fetch and use symbol on the fly
func Use[T any](m *Module, sym string) func(func(t T, err error)) {
	return func(f func(t T, err error)) {
		var x T
		defer func() {
			switch y := recover().(type) {
			case nil:
				f(x, nil)
			case error:
				if m.debug {
					log.Printf("use %s: %v", sym, y)
				}
				f(x, y)
			default:
				f(x, fmt.Errorf("%v", y))
			}
		}()
		x = As[T](m.MustFetch(sym))
	}
}

// As convert fetched Sym to contract type
func As[T any](ptr Sym) (x T) {
	px := (*T)(unsafe.Pointer(&ptr))
	x = *px
	return
}
