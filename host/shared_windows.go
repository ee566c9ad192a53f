//go:build windows

package host

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func openShared(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func lookupShared(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func closeShared(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

func bindVoid(addr uintptr) func() {
	return func() {
		_, _, _ = syscall.SyscallN(addr)
	}
}
