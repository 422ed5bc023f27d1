package mailer

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingMailer struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	sent      []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failFirst {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, to+"|"+subject+"|"+body)
	return nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSendWelcome_Delivers(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, discardLogger(), 3, time.Millisecond)

	d.SendWelcome("new@example.com", "newuser")
	d.Wait()

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if !strings.HasPrefix(msg, "new@example.com|Welcome to Nexus!|") {
		t.Fatalf("message = %q", msg)
	}
	if !strings.Contains(msg, "newuser") {
		t.Fatalf("body does not greet the user: %q", msg)
	}
}

func TestSendWelcome_RetriesUntilSuccess(t *testing.T) {
	mailer := &recordingMailer{failFirst: 2}
	d := NewDispatcher(mailer, discardLogger(), 3, time.Millisecond)

	d.SendWelcome("retry@example.com", "retry")
	d.Wait()

	if mailer.calls != 3 {
		t.Fatalf("send attempts = %d, want 3", mailer.calls)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1 after retries", len(mailer.sent))
	}
}

func TestSendWelcome_GivesUpSilently(t *testing.T) {
	mailer := &recordingMailer{failFirst: 100}
	d := NewDispatcher(mailer, discardLogger(), 2, time.Millisecond)

	// The caller never sees the failure; it only shows in the log.
	d.SendWelcome("doomed@example.com", "doomed")
	d.Wait()

	if mailer.calls != 2 {
		t.Fatalf("send attempts = %d, want 2", mailer.calls)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(mailer.sent))
	}
}

func TestSendWelcome_DoesNotBlockCaller(t *testing.T) {
	block := make(chan struct{})
	mailer := &blockingMailer{release: block}
	d := NewDispatcher(mailer, discardLogger(), 1, time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.SendWelcome("slow@example.com", "slow")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("SendWelcome blocked on delivery")
	}
	close(block)
	d.Wait()
}

type blockingMailer struct {
	release chan struct{}
}

func (m *blockingMailer) Send(context.Context, string, string, string) error {
	<-m.release
	return nil
}
