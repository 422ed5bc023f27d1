package mailer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Mailer delivers a single message. The SMTP implementation lives outside
// this repository; LogMailer stands in for local runs and tests.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *log.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	logger := m.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("mailer: would send %q to %s", subject, to)
	return nil
}

// Dispatcher hands messages to a Mailer on background goroutines with
// retry and backoff. Callers never wait on delivery and never observe
// delivery failures.
type Dispatcher struct {
	mailer   Mailer
	logger   *log.Logger
	attempts int
	backoff  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. attempts and backoff fall back
// to 3 tries and one second when non-positive.
func NewDispatcher(mailer Mailer, logger *log.Logger, attempts int, backoff time.Duration) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Dispatcher{mailer: mailer, logger: logger, attempts: attempts, backoff: backoff}
}

// SendWelcome dispatches the post-registration welcome email without
// blocking the caller.
func (d *Dispatcher) SendWelcome(email, username string) {
	subject := "Welcome to Nexus!"
	body := fmt.Sprintf("Hi %s,\n\nThank you for registering at Nexus. We are excited to have you on board!", username)
	d.dispatch(email, subject, body)
}

func (d *Dispatcher) dispatch(to, subject, body string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		delay := d.backoff
		for attempt := 1; attempt <= d.attempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := d.mailer.Send(ctx, to, subject, body)
			cancel()
			if err == nil {
				return
			}
			d.logger.Printf("mailer: send to %s failed (attempt %d/%d): %v", to, attempt, d.attempts, err)
			if attempt < d.attempts {
				time.Sleep(delay)
				delay *= 2
			}
		}
		d.logger.Printf("mailer: giving up on %s", to)
	}()
}

// Wait blocks until all in-flight deliveries finish. Used by tests and
// graceful shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
