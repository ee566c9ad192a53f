/*
Package mydll is a minimal dynamically loaded library: one exported function, one internal
function and a lifecycle entry point the host loader calls on load, unload and thread events.

# License

Source codes are under Apache License Version 2.0.

# Export surface

 1. [Share] is exported, any code importing or loading the library can call it.
 2. keep is package private, only code inside the library can reach it.
 3. [DllMain] is the entry point the host calls with a [Reason].

# Lifecycle

	ProcessAttach  Share then keep
	ThreadAttach   nothing
	ThreadDetach   nothing
	ProcessDetach  nothing

The entry point always reports success.

# Host

The host side lives in package host: it links the library from go object files with [goloader],
or opens the c-shared build under shared/, and delivers lifecycle events one at a time.

[goloader]: https://github.com/pkujhd/goloader
*/
package mydll
