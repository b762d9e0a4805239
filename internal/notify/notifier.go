package notify

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"takeoverbench/internal/prefit"
)

// Sender abstracts message dispatch so the notifier can be tested
// without hitting real services.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender dispatches via the Shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// DefaultCooldown suppresses repeated alerts for the same stale table.
const DefaultCooldown = 6 * time.Hour

// Notifier sends fitter alerts to a single Shoutrrr URL.
type Notifier struct {
	url      string
	sender   Sender
	cooldown time.Duration

	// sent tracks the last dispatch time per computed table digest.
	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

// New creates a notifier. An empty url yields a notifier that sends nothing.
func New(url string, sender Sender) *Notifier {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Notifier{
		url:      strings.TrimSpace(url),
		sender:   sender,
		cooldown: DefaultCooldown,
		sent:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Enabled reports whether a destination is configured.
func (n *Notifier) Enabled() bool { return n.url != "" }

// StaleFits alerts that the stored fitted table no longer matches the data.
// Up-to-date reports and repeats within the cooldown are not sent.
func (n *Notifier) StaleFits(r prefit.Report) error {
	if !n.Enabled() || r.UpToDate {
		return nil
	}

	n.mu.Lock()
	last, ok := n.sent[r.ComputedDigest]
	now := n.now()
	if ok && now.Sub(last) < n.cooldown {
		n.mu.Unlock()
		return nil
	}
	n.sent[r.ComputedDigest] = now
	n.mu.Unlock()

	if err := n.sender.Send(n.url, FormatReport(r)); err != nil {
		n.mu.Lock()
		delete(n.sent, r.ComputedDigest)
		n.mu.Unlock()
		return fmt.Errorf("notify: send stale-fit alert: %w", err)
	}
	log.Printf("Sent stale-fit alert (%s)", short(r.ComputedDigest))
	return nil
}

// FormatReport renders a verify report as a plain-text message.
func FormatReport(r prefit.Report) string {
	var b strings.Builder
	if r.UpToDate {
		fmt.Fprintf(&b, "Fitted projections are up to date (%s)", short(r.ComputedDigest))
		return b.String()
	}
	fmt.Fprintf(&b, "Fitted projections are out of sync with the benchmark data\n")
	fmt.Fprintf(&b, "stored %s, computed %s", short(r.ExistingDigest), short(r.ComputedDigest))
	list := func(label string, ids []string) {
		if len(ids) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", label, strings.Join(ids, ", "))
		}
	}
	list("changed", r.Changed)
	list("added", r.Added)
	list("removed", r.Removed)
	return b.String()
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
