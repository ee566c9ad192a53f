package host

import (
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/pkujhd/goloader"
)

// Pool holds attached modules by package path, later modules may link against earlier ones.
type Pool struct {
	Symbols
	Modules map[string]*Module
	Loaded  []*Module
	debug   bool
	sync.RWMutex
}

var (
	ErrAlreadyLoad    = errors.New("module already loaded")
	ErrNotLoad        = errors.New("module not loaded")
	ErrMissingPackage = errors.New("package not loaded")
	ErrCorrupted      = errors.New("recording corrupted")
)

// NewPool create new pool with the library types registered, an optional debug parameter will enable debug logging of the modules
func NewPool(debug ...bool) (p *Pool, err error) {
	p = new(Pool)
	p.Modules = make(map[string]*Module)
	p.debug = len(debug) > 0 && debug[0]
	if p.Symbols, err = NewSymbols(); err != nil {
		return nil, err
	}
	RegisterLibrary(p.Symbols)
	return
}

func (p *Pool) RegisterSo(path string) error {
	return goloader.RegSymbolWithSo(p.table(), path)
}
func (p *Pool) RegisterExecute(path string) error {
	return goloader.RegSymbolWithPath(p.table(), path)
}
func (p *Pool) RegisterTypes(t ...any) {
	RegisterTypes(p.Symbols, t...)
}

func (p *Pool) register(d *Module) {
	t := p.table()
	for s, u := range d.GetModule().Syms {
		if _, ok := t[s]; !ok {
			t[s] = u
		}
	}
}
func (p *Pool) unregister(d *Module) {
	t := p.table()
	for s, u := range d.GetModule().Syms {
		if x, ok := t[s]; ok && x == u {
			delete(t, s)
		}
	}
}

func (p *Pool) attach(d *Module) (err error) {
	for _, pkg := range d.Packages() {
		if _, ok := p.Modules[pkg]; ok {
			d.Free(false)
			return ErrAlreadyLoad
		}
	}
	if err = d.Load(); err != nil {
		d.Free(false)
		return
	}
	for _, pkg := range d.Packages() {
		p.Modules[pkg] = d
	}
	p.Loaded = append(p.Loaded, d)
	p.register(d)
	return
}

// free detaches and frees the modules loaded from index i, newest first.
func (p *Pool) free(i int) {
	for j := len(p.Loaded) - 1; j >= i; j-- {
		d := p.Loaded[j]
		for _, pkg := range d.Packages() {
			delete(p.Modules, pkg)
		}
		if d.GetModule() != nil {
			p.unregister(d)
		}
		d.Free(false)
	}
	p.Loaded = p.Loaded[:i]
}

func (p *Pool) index(pkgPath string) (int, error) {
	m, ok := p.Modules[pkgPath]
	if !ok {
		return -1, ErrNotLoad
	}
	i := slices.Index(p.Loaded, m)
	if i < 0 {
		return -1, ErrCorrupted
	}
	return i, nil
}

// LoadFile load from go archive or go object file and attach it
func (p *Pool) LoadFile(file, pkgPath string) (err error) {
	p.Lock()
	defer p.Unlock()
	d := NewModule(p.Symbols, p.debug)
	if err = d.Initialize(file, pkgOrMain(pkgPath)); err != nil {
		return
	}
	return p.attach(d)
}

// LoadLinkable load from serialized linker and attach it
func (p *Pool) LoadLinkable(bin io.Reader) (err error) {
	p.Lock()
	defer p.Unlock()
	d := NewModule(p.Symbols, p.debug)
	if err = d.InitializeSerialized(bin); err != nil {
		return
	}
	return p.attach(d)
}

// ReloadFile detaches the module of pkgPath and every module loaded after it, then loads file.
func (p *Pool) ReloadFile(file, pkgPath string) (err error) {
	p.Lock()
	defer p.Unlock()
	pkgPath = pkgOrMain(pkgPath)
	var i int
	if i, err = p.index(pkgPath); err != nil {
		return
	}
	p.free(i)
	d := NewModule(p.Symbols, p.debug)
	if err = d.Initialize(file, pkgPath); err != nil {
		return
	}
	return p.attach(d)
}

// Require fetch symbol from package
func (p *Pool) Require(pkgPath, symbolName string) Sym {
	p.RLock()
	defer p.RUnlock()
	pkgPath = pkgOrMain(pkgPath)
	if m, ok := p.Modules[pkgPath]; ok {
		return m.MustFetch(pkgPath + "." + symbolName)
	}
	panic(ErrMissingPackage)
}

// Close detaches and frees all modules, newest first.
func (p *Pool) Close() {
	p.Lock()
	defer p.Unlock()
	p.free(0)
}
