//go:build darwin || freebsd || linux

package host

import "github.com/ebitengine/purego"

func openShared(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_GLOBAL|purego.RTLD_NOW)
}

func lookupShared(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeShared(handle uintptr) error {
	return purego.Dlclose(handle)
}

func bindVoid(addr uintptr) (f func()) {
	purego.RegisterFunc(&f, addr)
	return
}
