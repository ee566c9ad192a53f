// Package host loads the library and delivers its lifecycle events.
//
// A [Module] links go object files at runtime with [goloader] and calls the exported DllMain,
// a [SharedLibrary] opens the c-shared build through the OS loader. [Host] keeps the loader
// contract: one delivery at a time, ProcessAttach before any thread event, nothing after ProcessDetach.
//
// [goloader]: https://github.com/pkujhd/goloader
package host
