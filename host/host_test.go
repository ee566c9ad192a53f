package host

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ZenLiuCN/fn"
	"github.com/ZenLiuCN/mydll"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sync.Mutex
	reasons []mydll.Reason
	busy    atomic.Int32
	overlap atomic.Bool
	refuse  bool
}

func (r *recorder) entry(module uintptr, reason uint32, reserved uintptr) bool {
	if r.busy.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.busy.Add(-1)
	r.Lock()
	r.reasons = append(r.reasons, mydll.Reason(reason))
	r.Unlock()
	return !r.refuse
}

func (r *recorder) got() []mydll.Reason {
	r.Lock()
	defer r.Unlock()
	return append([]mydll.Reason(nil), r.reasons...)
}

func TestStaticLifecycle(t *testing.T) {
	b := new(bytes.Buffer)
	h := NewHost(0x1000, Static(mydll.New(b)), debugging)
	fn.Panic(h.Attach())
	require.True(t, h.Attached())
	require.Equal(t, mydll.ShareLine+"\n"+mydll.KeepLine+"\n", b.String())
	done := fn.Panic1(h.Go(func() {}))
	<-done
	fn.Panic(h.Detach())
	require.False(t, h.Attached())
	require.Equal(t, 2, strings.Count(b.String(), "\n"))
}

func TestAttachTwice(t *testing.T) {
	r := new(recorder)
	h := NewHost(1, r.entry)
	fn.Panic(h.Attach())
	require.ErrorIs(t, h.Attach(), ErrAttached)
	require.Equal(t, []mydll.Reason{mydll.ProcessAttach}, r.got())
}

func TestDetached(t *testing.T) {
	r := new(recorder)
	h := NewHost(1, r.entry)
	require.ErrorIs(t, h.Detach(), ErrDetached)
	_, err := h.Notify(mydll.ThreadAttach)
	require.ErrorIs(t, err, ErrDetached)
	_, err = h.Go(func() {})
	require.ErrorIs(t, err, ErrDetached)
	require.Empty(t, r.got())
}

func TestRefused(t *testing.T) {
	r := &recorder{refuse: true}
	h := NewHost(1, r.entry)
	require.ErrorIs(t, h.Attach(), ErrRefused)
	require.False(t, h.Attached())
}

func TestThreadBrackets(t *testing.T) {
	r := new(recorder)
	h := NewHost(1, r.entry)
	fn.Panic(h.Attach())
	ran := false
	<-fn.Panic1(h.Go(func() { ran = true }))
	fn.Panic(h.Detach())
	require.True(t, ran)
	require.Equal(t, []mydll.Reason{
		mydll.ProcessAttach,
		mydll.ThreadAttach,
		mydll.ThreadDetach,
		mydll.ProcessDetach,
	}, r.got())
}

func TestThreadAcrossReattach(t *testing.T) {
	r := new(recorder)
	h := NewHost(1, r.entry)
	fn.Panic(h.Attach())
	<-fn.Panic1(h.Go(func() {
		fn.Panic(h.Detach())
		fn.Panic(h.Attach())
	}))
	fn.Panic(h.Detach())
	require.Equal(t, []mydll.Reason{
		mydll.ProcessAttach,
		mydll.ThreadAttach,
		mydll.ProcessDetach,
		mydll.ProcessAttach,
		mydll.ProcessDetach,
	}, r.got())
}

func TestSerialDelivery(t *testing.T) {
	r := new(recorder)
	h := NewHost(1, r.entry)
	fn.Panic(h.Attach())
	var w sync.WaitGroup
	for i := 0; i < 10; i++ {
		w.Add(1)
		go func() {
			defer w.Done()
			<-fn.Panic1(h.Go(func() {}))
		}()
	}
	w.Wait()
	fn.Panic(h.Detach())
	require.False(t, r.overlap.Load())
	got := r.got()
	require.Len(t, got, 22)
	require.Equal(t, mydll.ProcessAttach, got[0])
	require.Equal(t, mydll.ProcessDetach, got[len(got)-1])
}

func TestReattach(t *testing.T) {
	b := new(bytes.Buffer)
	h := NewHost(1, Static(mydll.New(b)))
	for i := 0; i < 2; i++ {
		fn.Panic(h.Attach())
		fn.Panic(h.Detach())
	}
	require.Equal(t, strings.Repeat(mydll.ShareLine+"\n"+mydll.KeepLine+"\n", 2), b.String())
}

func BenchmarkNotify(b *testing.B) {
	h := NewHost(1, Static(mydll.New(io.Discard)))
	fn.Panic(h.Attach())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fn.Panic1(h.Notify(mydll.ThreadAttach))
		fn.Panic1(h.Notify(mydll.ThreadDetach))
	}
}

func BenchmarkAttach(b *testing.B) {
	h := NewHost(1, Static(mydll.New(io.Discard)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		fn.Panic(h.Attach())
		fn.Panic(h.Detach())
	}
}
