package sample

import "github.com/ZenLiuCN/mydll"

// go:generate go install github.com/ZenLiuCN/mydll/loader@latest
//
//go:generate loader compile -p sample -o mydll.o mydll.go
func Share() {
	mydll.Default().Share()
}

func DllMain(module uintptr, reason uint32, reserved uintptr) bool {
	return mydll.Default().Main(mydll.Handle(module), mydll.Reason(reason), reserved)
}
