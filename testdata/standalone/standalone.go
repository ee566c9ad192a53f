package sample

import "fmt"

// go:generate go install github.com/ZenLiuCN/mydll/loader@latest
//
//go:generate loader compile -p sample -o standalone.o standalone.go
const (
	processDetach uint32 = iota
	processAttach
	threadAttach
	threadDetach
)

func Share() {
	fmt.Println("I am an exported function, can be called outside the DLL")
}

func keep() {
	fmt.Println("I am not exported, can be called only within the DLL")
}

func DllMain(module uintptr, reason uint32, reserved uintptr) bool {
	switch reason {
	case processAttach:
		Share()
		keep()
	case threadAttach:
	case threadDetach:
	case processDetach:
	}
	return true
}
