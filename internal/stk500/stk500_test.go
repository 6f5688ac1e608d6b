package stk500

import (
	"strings"
	"testing"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/session"
)

// fakeTransport is an in-memory byte pipe: inbound holds bytes queued for
// ReadByte, outbound accumulates everything written, so a test can script a
// command and inspect the exact reply frame.
type fakeTransport struct {
	inbound  []byte
	outbound []byte
}

func (f *fakeTransport) ReadByte() (byte, error) {
	if len(f.inbound) == 0 {
		return 0, errEOF
	}
	v := f.inbound[0]
	f.inbound = f.inbound[1:]
	return v, nil
}

func (f *fakeTransport) Write(data []byte) error {
	f.outbound = append(f.outbound, data...)
	return nil
}

type eofError struct{}

func (eofError) Error() string { return "fakeTransport: no more inbound bytes" }

var errEOF = eofError{}

func newTestBridge() (*Bridge, *fakeTransport, *session.Session) {
	sess := session.New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	tr := &fakeTransport{}
	return New(tr, sess), tr, sess
}

func TestGetSync(t *testing.T) {
	b, tr, _ := newTestBridge()
	tr.inbound = []byte{cmndSTKGetSync, syncCRCEOP}
	if err := b.ServeOne(); err != nil {
		t.Fatalf("ServeOne: %v", err)
	}
	want := []byte{respSTKInSync, respSTKOK}
	if string(tr.outbound) != string(want) {
		t.Fatalf("got % x, want % x", tr.outbound, want)
	}
}

func TestGetSyncBadFramingRepliesNoSync(t *testing.T) {
	b, tr, _ := newTestBridge()
	tr.inbound = []byte{cmndSTKGetSync, 0x00}
	if err := b.ServeOne(); err != nil {
		t.Fatalf("ServeOne: %v", err)
	}
	if len(tr.outbound) != 1 || tr.outbound[0] != respSTKNoSync {
		t.Fatalf("expected NOSYNC, got % x", tr.outbound)
	}
}

func TestReadSignReturnsFamilySignature(t *testing.T) {
	b, tr, _ := newTestBridge()
	tr.inbound = []byte{cmndSTKReadSign, syncCRCEOP}
	if err := b.ServeOne(); err != nil {
		t.Fatalf("ServeOne: %v", err)
	}
	want := []byte{respSTKInSync, 0x1E, 0x95, 0x0F, respSTKOK}
	if string(tr.outbound) != string(want) {
		t.Fatalf("got % x, want % x", tr.outbound, want)
	}
}

func TestUploadSequenceProgramsFlashAndMarksLoaded(t *testing.T) {
	b, tr, sess := newTestBridge()

	payload := make([]byte, 128)
	for i := range payload {
		payload[i] = byte(i)
	}

	var script []byte
	script = append(script, cmndSTKEnterProgMode, syncCRCEOP)
	script = append(script, cmndSTKLoadAddress, 0x00, 0x00, syncCRCEOP)
	script = append(script, cmndSTKProgPage, 0x00, 0x80, 'F')
	script = append(script, payload...)
	script = append(script, syncCRCEOP)
	script = append(script, cmndSTKLeaveProgMode, syncCRCEOP)
	tr.inbound = script

	for i := 0; i < 4; i++ {
		if err := b.ServeOne(); err != nil {
			t.Fatalf("ServeOne #%d: %v", i, err)
		}
	}

	for i, want := range payload {
		if sess.Core.Flash[i] != want {
			t.Fatalf("flash[%d] = %d, want %d", i, sess.Core.Flash[i], want)
		}
	}
	if !strings.Contains(sess.String(), "firmware_loaded=true") {
		t.Fatalf("expected LEAVE_PROGMODE to mark firmware loaded, got %s", sess.String())
	}
}

func TestEnterProgModeErasesApplicationRegion(t *testing.T) {
	b, tr, sess := newTestBridge()
	appLimit := len(sess.Core.Flash) - sess.Profile.BootloaderBytes
	for i := range sess.Core.Flash {
		sess.Core.Flash[i] = 0x42
	}

	tr.inbound = []byte{cmndSTKEnterProgMode, syncCRCEOP}
	if err := b.ServeOne(); err != nil {
		t.Fatalf("ServeOne: %v", err)
	}

	for i := 0; i < appLimit; i++ {
		if sess.Core.Flash[i] != 0xFF {
			t.Fatalf("flash[%d] = 0x%02x, want 0xFF after erase", i, sess.Core.Flash[i])
		}
	}
	if sess.Core.Flash[appLimit] != 0x42 {
		t.Fatalf("bootloader region should survive erase, flash[%d] = 0x%02x", appLimit, sess.Core.Flash[appLimit])
	}
}

func TestProgPageRejectsNonFlashMemoryType(t *testing.T) {
	b, tr, _ := newTestBridge()
	var script []byte
	script = append(script, cmndSTKProgPage, 0x00, 0x01, 'E', 0x00, syncCRCEOP)
	tr.inbound = script
	if err := b.ServeOne(); err != nil {
		t.Fatalf("ServeOne: %v", err)
	}
	want := []byte{respSTKInSync, respSTKFailed}
	if string(tr.outbound) != string(want) {
		t.Fatalf("got % x, want % x", tr.outbound, want)
	}
}
