package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZenLiuCN/fn"
	"github.com/stretchr/testify/require"
)

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	fn.Panic(os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	fn.Panic(os.WriteFile(filepath.Join(src, "a", "b", "c.txt"), []byte("share"), 0o600))
	fn.Panic(os.WriteFile(filepath.Join(src, "top.txt"), []byte("keep"), 0o644))
	dest := filepath.Join(t.TempDir(), "copy")
	fn.Panic(CopyDir(src, dest))
	require.Equal(t, "share", string(fn.Panic1(os.ReadFile(filepath.Join(dest, "a", "b", "c.txt")))))
	require.Equal(t, "keep", string(fn.Panic1(os.ReadFile(filepath.Join(dest, "top.txt")))))
	info := fn.Panic1(os.Stat(filepath.Join(dest, "a", "b", "c.txt")))
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIsExportedName(t *testing.T) {
	require.True(t, isExportedName("Share"))
	require.True(t, isExportedName("DllMain"))
	require.False(t, isExportedName("keep"))
	require.False(t, isExportedName("init"))
	require.False(t, isExportedName("Share.func1"))
	require.False(t, isExportedName(""))
}

func TestObjectExports(t *testing.T) {
	object(t, moduleStandalone)
	v := fn.Panic1(Exports(moduleStandalone, pkgSample))
	require.Contains(t, v, symShare)
	require.NotContains(t, v, symKeep)
	info := fn.Panic1(ObjectImports(moduleStandalone, pkgSample))
	require.Contains(t, info.Imports, "fmt")
	t.Log(info)
}
