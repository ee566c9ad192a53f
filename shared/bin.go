// Command shared is the c-shared build of the library:
//
//	go build -buildmode=c-shared -o testdata/shared/libmydll.so ./shared
//
// Only Share is exported. The Go runtime owns the OS loader entry point, so ProcessAttach is delivered from init.
package main

import "C"
import "github.com/ZenLiuCN/mydll"

//export Share
func Share() {
	mydll.Share()
}

func init() {
	mydll.DllMain(0, mydll.ProcessAttach, 0)
}

func main() {}
