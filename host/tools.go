package host

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZenLiuCN/fn"
	"github.com/pkujhd/goloader"
	"github.com/pkujhd/goloader/obj"
)

// ImportConfig is the import configuration file written by Imports and consumed by Compile.
const ImportConfig = "importcfg"

// Inspect display symbols inside an object file
func Inspect(file, pkg string) ([]string, error) {
	return goloader.Parse(file, pkgOrMain(pkg))
}

// Exports display the export surface of an object file without linking it.
func Exports(file, pkg string) (v []string, err error) {
	pkg = pkgOrMain(pkg)
	var all []string
	if all, err = Inspect(file, pkg); err != nil {
		return
	}
	for _, s := range all {
		if name, ok := strings.CutPrefix(s, pkg+"."); ok && isExportedName(name) {
			v = append(v, s)
		}
	}
	slices.Sort(v)
	return
}

func isExportedName(name string) bool {
	return token.IsExported(name) && !strings.ContainsAny(name, ".·")
}

// Compile sources of package pkg into the object file out, Imports must be called before.
func Compile(debug bool, pkg, out string, sources []string) (err error) {
	args := []string{"tool", "compile", "-importcfg", ImportConfig, "-p", pkgOrMain(pkg)}
	if out != "" {
		args = append(args, "-o", out)
	}
	cmd := exec.Command("go", append(args, sources...)...)
	if debug {
		log.Printf("execute: %v", cmd.Args)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err = cmd.Run(); err == nil && !debug {
		err = os.Remove(ImportConfig)
	}
	return
}

// Build generates ImportConfig then compiles sources of package pkg into the object file out.
func Build(debug bool, pkg, out string, sources []string) (err error) {
	if _, err = exec.LookPath("go"); err != nil {
		return fmt.Errorf("missing go sdk: %w", err)
	}
	if err = Imports(debug, sources); err != nil {
		return fmt.Errorf("generate importcfg: %w", err)
	}
	return Compile(debug, pkg, out, sources)
}

func goList(debug bool, args ...string) (string, error) {
	cmd := exec.Command("go", append([]string{"list", "-export", "-f"}, args...)...)
	if debug {
		log.Printf("execute: %v", cmd.Args)
	}
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return "", fmt.Errorf("%w\nerr:%s\nout:%s", err, ee.Stderr, out)
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Imports generate ImportConfig in current working directory for the sources.
func Imports(debug bool, sources []string) (err error) {
	var out string
	if out, err = goList(debug, append([]string{"{{.Imports}}"}, sources...)...); err != nil {
		return fmt.Errorf("inspect imports: %w", err)
	}
	out = strings.TrimSuffix(strings.TrimPrefix(out, "["), "]")
	deps := strings.Fields(out)
	if debug {
		log.Println("deps", deps)
	}
	if out, err = goList(debug, append([]string{"{{if .Export}}packagefile {{.ImportPath}}={{.Export}}{{end}}", "std"}, deps...)...); err != nil {
		return fmt.Errorf("inspect dependencies: %w", err)
	}
	return os.WriteFile(ImportConfig, []byte(out+"\n"), 0o644)
}

// Info contains the imported packages of an object file.
type Info struct {
	File    string
	PkgPath string
	Imports []string
}

func (i Info) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%s (%s)\n", i.File, i.PkgPath))
	for _, p := range i.Imports {
		s.WriteString(fmt.Sprintf("\t%s\n", p))
	}
	return s.String()
}

// ObjectImports resolve imported packages of an object file.
func ObjectImports(file, pkgPath string) (info *Info, err error) {
	v := &obj.Pkg{Syms: make(map[string]*obj.ObjSymbol), File: file, PkgPath: pkgOrMain(pkgPath)}
	if err = v.Symbols(); err != nil {
		return
	}
	info = &Info{File: file, PkgPath: v.PkgPath, Imports: slices.Clone(v.ImportPkgs)}
	slices.Sort(info.Imports)
	return
}

// CopyFile from src to dest with optional src file info
func CopyFile(src string, dest string, si fs.FileInfo) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer fn.IgnoreClose(sf)
	if si == nil {
		if si, err = sf.Stat(); err != nil {
			return
		}
	}
	df, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, si.Mode())
	if err != nil {
		return err
	}
	defer fn.IgnoreClose(df)
	_, err = io.Copy(df, sf)
	return
}

// CopyDir from src to dest recursively
func CopyDir(src string, dest string) (err error) {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return CopyFile(path, target, info)
	})
}
