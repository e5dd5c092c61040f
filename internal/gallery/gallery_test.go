package gallery

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestBuildParseRoundTrip(t *testing.T) {
	images := []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b c.png", "data:image/png;base64,iVBORw0KGgo="}
	logo := "https://cdn.example.com/logo.png?v=2"

	raw, err := BuildURL("https://cardify.app/", images, logo)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(raw, "https://cardify.app/gallery?images=") {
		t.Fatalf("unexpected url %q", raw)
	}
	link, err := ParseURL(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(link.Images, images) {
		t.Fatalf("images: got %q want %q", link.Images, images)
	}
	if link.Logo != logo {
		t.Fatalf("logo: got %q want %q", link.Logo, logo)
	}
}

func TestBuildEscapesCommasInsideRefs(t *testing.T) {
	images := []string{"a,b", "c"}
	raw, err := BuildURL("", images, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if raw != "/gallery?images=a%2Cb,c" {
		t.Fatalf("unexpected url %q", raw)
	}
	link, err := ParseURL(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(link.Images, images) || link.Logo != "" {
		t.Fatalf("unexpected link %+v", link)
	}
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	if _, err := BuildURL("", nil, ""); !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	if _, err := BuildURL("", []string{"a", " "}, ""); !errors.Is(err, ErrEmptyImageRef) {
		t.Fatalf("expected ErrEmptyImageRef, got %v", err)
	}
}

func TestParseMissingImages(t *testing.T) {
	link, err := ParseURL("/gallery?logo=x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(link.Images) != 0 || link.Logo != "x" {
		t.Fatalf("unexpected link %+v", link)
	}
	if _, err := ParseURL("/gallery?images=%zz"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestViewerNavigationWraps(t *testing.T) {
	v := NewViewer([]string{"a", "b", "c"}, "", WithAutoAdvance(false))
	if v.Prev() != 2 {
		t.Fatalf("prev from 0 should wrap to 2")
	}
	if v.Next() != 0 || v.Next() != 1 {
		t.Fatalf("next should wrap back to 0 then 1")
	}
	if !v.GoTo(2) || v.Current() != "c" {
		t.Fatalf("goto 2 failed")
	}
	if v.GoTo(3) || v.Index() != 2 {
		t.Fatalf("out of range goto should be ignored")
	}
	if v.NextIndex() != 0 || v.PrevIndex() != 1 {
		t.Fatalf("unexpected neighbour indices")
	}
}

func TestViewerSwipeThreshold(t *testing.T) {
	v := NewViewer([]string{"a", "b", "c"}, "", WithAutoAdvance(false))
	if v.Swipe(200, 160) != 0 {
		t.Fatalf("short swipe should not move")
	}
	if v.Swipe(200, 120) != 1 {
		t.Fatalf("left swipe should advance")
	}
	if v.Swipe(100, 200) != 0 {
		t.Fatalf("right swipe should go back")
	}
}

func TestViewerStartIndexWraps(t *testing.T) {
	v := NewViewer([]string{"a", "b"}, "", WithStartIndex(5), WithAutoAdvance(false))
	if v.Index() != 1 {
		t.Fatalf("expected wrapped start index 1, got %d", v.Index())
	}
	empty := NewViewer(nil, "")
	if empty.Next() != 0 || empty.Current() != "" {
		t.Fatalf("empty viewer should stay at 0")
	}
}

type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { close(f.stopped) }

func TestViewerAutoAdvanceOnlyWhileMounted(t *testing.T) {
	tickers := make(chan *fakeTicker, 4)
	changes := make(chan int, 8)
	v := NewViewer([]string{"a", "b", "c"}, "",
		WithTickerFactory(func(d time.Duration) Ticker {
			if d != DefaultInterval {
				t.Errorf("unexpected interval %v", d)
			}
			ft := &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
			tickers <- ft
			return ft
		}),
		WithOnChange(func(i int) { changes <- i }),
	)

	select {
	case <-tickers:
		t.Fatalf("ticker must not start before mount")
	default:
	}

	v.Mount()
	ft := <-tickers
	ft.ch <- time.Now()
	if got := waitChange(t, changes); got != 1 {
		t.Fatalf("expected auto-advance to 1, got %d", got)
	}

	v.Unmount()
	<-ft.stopped
	if v.Index() != 1 {
		t.Fatalf("unmount should keep index")
	}

	v.SetAutoAdvance(false)
	v.Mount()
	select {
	case <-tickers:
		t.Fatalf("ticker must not start while auto-advance is off")
	default:
	}
	v.SetAutoAdvance(true)
	ft = <-tickers
	ft.ch <- time.Now()
	if got := waitChange(t, changes); got != 2 {
		t.Fatalf("expected auto-advance to 2, got %d", got)
	}
	v.Close()
	<-ft.stopped
}

func waitChange(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case i := <-ch:
		return i
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for index change")
	}
	return -1
}
