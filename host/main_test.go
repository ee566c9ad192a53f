package host

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestMain compiles the sample modules into a temporary directory.
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	if _, err := exec.LookPath("go"); err != nil {
		log.Printf("no go sdk, link tests will skip: %v", err)
		return m.Run()
	}
	dir, err := os.MkdirTemp("", "mydll")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	moduleLibrary = filepath.Join(dir, "mydll.o")
	moduleStandalone = filepath.Join(dir, "standalone.o")
	for out, src := range map[string]string{
		moduleLibrary:    "../testdata/mydll/mydll.go",
		moduleStandalone: "../testdata/standalone/standalone.go",
	} {
		if err = Build(false, pkgSample, out, []string{src}); err != nil {
			log.Fatalf("compile %s: %v", src, err)
		}
	}
	return m.Run()
}
