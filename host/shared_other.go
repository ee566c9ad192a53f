//go:build !(darwin || freebsd || linux || windows)

package host

import "errors"

func openShared(string) (uintptr, error) {
	return 0, errors.ErrUnsupported
}

func lookupShared(uintptr, string) (uintptr, error) {
	return 0, errors.ErrUnsupported
}

func closeShared(uintptr) error {
	return errors.ErrUnsupported
}

func bindVoid(uintptr) func() {
	return func() {}
}
