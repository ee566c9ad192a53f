package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ZenLiuCN/fn"
	. "github.com/ZenLiuCN/mydll/host"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("failure %s", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Usage = "library lifecycle host"
	app.Name = "Loader"
	app.Description = "load the library from go object files or as an OS shared library and deliver lifecycle events"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
		},
	}
	pkg := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "pkg",
			Aliases: []string{"p"},
			Usage:   "package path or default main",
		}
	}
	share := func() cli.Flag {
		return &cli.BoolFlag{
			Name:    "share",
			Aliases: []string{"s"},
			Usage:   "call the exported Share after load",
		}
	}
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Action: run,
			Flags: []cli.Flag{
				pkg(),
				share(),
				&cli.IntFlag{Name: "threads", Aliases: []string{"t"}, Usage: "threads to start and stop while attached"},
			},
			Args:  true,
			Usage: "link object files or one linkable file, deliver ProcessAttach, thread events and ProcessDetach",
		},
		{
			Name:   "open",
			Action: open,
			Flags:  []cli.Flag{share()},
			Args:   true,
			Usage:  "open a c-shared build of the library",
		},
		{
			Name:   "exports",
			Action: exports,
			Flags:  []cli.Flag{pkg()},
			Args:   true,
			Usage:  "display the export surface of object files",
		},
		{
			Name:   "imports",
			Action: imports,
			Flags:  []cli.Flag{pkg()},
			Args:   true,
			Usage:  "display imports of object files",
		},
		{
			Name:   "compile",
			Action: compile,
			Flags: []cli.Flag{
				pkg(),
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "object file to write"},
			},
			Args:  true,
			Usage: "compile go sources to an object file. the arguments can be list of go sources or '.' for lookup at working directory.",
		},
		{
			Name:   "linkable",
			Action: linkable,
			Flags: []cli.Flag{
				pkg(),
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "linkable file to write", Required: true},
			},
			Args:  true,
			Usage: "serialize object files into one linkable file",
		},
		{
			Name:   "prepare",
			Action: prepare,
			Usage:  "copy internals of go sdk",
		},
		{
			Name:   "clean",
			Action: clean,
			Usage:  "remove copied internals of go sdk",
		},
	}
	return app
}

func pkgs(ctx *cli.Context, n int) []string {
	p := ctx.String("pkg")
	if p == "" {
		p = "main"
	}
	v := make([]string, n)
	for i := range v {
		v[i] = p
	}
	return v
}

func initialize(ctx *cli.Context, m *Module) error {
	o := ctx.Args().Slice()
	if len(o) == 0 {
		return fmt.Errorf("missing object files")
	}
	if len(o) == 1 && strings.HasSuffix(o[0], ".linkable") {
		f, err := os.Open(o[0])
		if err != nil {
			return err
		}
		defer fn.IgnoreClose(f)
		return m.InitializeSerialized(f)
	}
	return m.InitializeMany(o, pkgs(ctx, len(o)))
}

func run(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	var sym Symbols
	if sym, err = NewSymbols(); err != nil {
		return
	}
	RegisterLibrary(sym)
	m := NewModule(sym, d)
	if err = initialize(ctx, m); err != nil {
		return
	}
	if d {
		log.Printf("missing symbols: %v", m.MissingSymbols())
	}
	if err = m.Load(); err != nil {
		return
	}
	defer m.Free(true)
	if d {
		spew.Dump(m.Exports())
	}
	for i := 0; i < ctx.Int("threads"); i++ {
		var done <-chan struct{}
		if done, err = m.Host().Go(func() {}); err != nil {
			return
		}
		<-done
	}
	if ctx.Bool("share") {
		name := m.Packages()[0] + "." + ExportShare
		Use[func()](m, name)(func(f func(), e error) {
			if err = e; err == nil {
				f()
			}
		})
	}
	return
}

func open(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	for _, p := range ctx.Args().Slice() {
		var s *SharedLibrary
		if s, err = OpenShared(p, d); err != nil {
			return
		}
		if ctx.Bool("share") {
			s.Share()
		}
		if err = s.Close(); err != nil {
			return
		}
	}
	return
}

func exports(ctx *cli.Context) (err error) {
	for _, s := range ctx.Args().Slice() {
		var v []string
		if v, err = Exports(s, ctx.String("pkg")); err != nil {
			return
		}
		log.Printf("%s\n\t%s", s, strings.Join(v, "\n\t"))
	}
	return
}

func imports(ctx *cli.Context) (err error) {
	for _, s := range ctx.Args().Slice() {
		var v *Info
		if v, err = ObjectImports(s, ctx.String("pkg")); err != nil {
			return
		}
		log.Printf("\n%s", v)
	}
	return
}

func compile(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	o := ctx.Args().Slice()
	if len(o) == 0 {
		return fmt.Errorf("missing target sources list")
	}
	if len(o) == 1 && o[0] == "." {
		if o, err = lookup(); err != nil {
			return
		}
		if d {
			log.Printf("found go sources at working directory: %v", o)
		}
	}
	return Build(d, ctx.String("pkg"), ctx.String("out"), o)
}

func linkable(ctx *cli.Context) (err error) {
	var sym Symbols
	if sym, err = NewSymbols(); err != nil {
		return
	}
	RegisterLibrary(sym)
	m := NewModule(sym, ctx.Bool("debug"))
	if err = initialize(ctx, m); err != nil {
		return
	}
	var f *os.File
	if f, err = os.Create(ctx.String("out")); err != nil {
		return
	}
	defer fn.IgnoreClose(f)
	return m.Serialize(f)
}

func lookup() (v []string, err error) {
	var e []os.DirEntry
	if e, err = os.ReadDir("."); err != nil {
		return
	}
	for _, entry := range e {
		n := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(n, ".go") && !strings.HasSuffix(n, "_test.go") {
			v = append(v, n)
		}
	}
	return
}

func clean(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	dir := os.ExpandEnv("$GOROOT/src/cmd/objfile")
	if _, err = os.Stat(dir); err != nil {
		if d {
			log.Printf("did nothing for %s", dir)
		}
		return nil
	}
	if err = os.RemoveAll(dir); err == nil && d {
		log.Printf("removed %s", dir)
	}
	return
}

func prepare(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	src := os.ExpandEnv("$GOROOT/src/cmd/internal")
	dir := os.ExpandEnv("$GOROOT/src/cmd/objfile")
	if _, err = os.Stat(dir); err == nil || !os.IsNotExist(err) {
		if d {
			log.Printf("did nothing for %s", dir)
		}
		return nil
	}
	if err = CopyDir(src, dir); err == nil && d {
		log.Printf("copied %s from %s", dir, src)
	}
	return
}
