package extension

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neboloop/extharness/internal/browser"
	"github.com/neboloop/extharness/internal/failure"
	"github.com/neboloop/extharness/internal/logging"
	"github.com/neboloop/extharness/internal/wait"
)

// DefaultReadyTimeout bounds each wait on the extensions page.
const DefaultReadyTimeout = 10 * time.Second

// Locator resolves the runtime identifier of an installed extension.
type Locator struct {
	// URL is the management page. Empty means chrome://extensions.
	URL string

	// ReadyTimeout bounds the wait for the management UI and for the
	// extension list. Zero means DefaultReadyTimeout.
	ReadyTimeout time.Duration

	// Interval is the poll period. Zero means wait.DefaultInterval.
	Interval time.Duration
}

func (l Locator) opts() wait.Options {
	timeout := l.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	return wait.Options{Timeout: timeout, Interval: l.Interval}
}

// Resolve opens the extension management page and returns the first
// extension whose name satisfies pred. Names are matched on the label's raw
// text. A management UI that never appears is a failure.Timeout; a page that
// cannot be opened or lists no match is a failure.NotFound.
func (l Locator) Resolve(ctx context.Context, page Page, pred Predicate) (Identity, error) {
	log := logging.Component("extension")
	opts := l.opts()

	url := l.URL
	if url == "" {
		url = browser.ExtensionsPageURL
	}
	err := wait.Do(ctx, "open extensions page", opts.Timeout, func(ctx context.Context) error {
		return page.Navigate(ctx, url)
	})
	if err != nil {
		if failure.KindOf(err) == failure.KindTimeout {
			return Identity{}, err
		}
		return Identity{}, failure.NotFound("resolve extension", fmt.Errorf("open extensions page: %w", err))
	}

	err = wait.For(ctx, "extensions-manager", opts, func(ctx context.Context) (bool, error) {
		return page.Present(ctx, ScopePath[0])
	})
	if err != nil {
		return Identity{}, err
	}

	// The item list renders asynchronously; poll until a match shows up.
	var (
		items   []Identity
		found   Identity
		matches int
	)
	script := Query(ScopePath, NameSelector)
	err = wait.For(ctx, "extension list", opts, func(ctx context.Context) (bool, error) {
		items = nil
		if err := page.Evaluate(ctx, script, &items); err != nil {
			return false, err
		}
		found, matches = FirstMatch(items, pred)
		return matches > 0, nil
	})
	switch {
	case err == nil:
	case failure.KindOf(err) == failure.KindTimeout:
		return Identity{}, failure.NotFound("resolve extension",
			fmt.Errorf("no installed extension matched (seen: %s)", names(items)))
	default:
		return Identity{}, fmt.Errorf("query extension list: %w", err)
	}

	found.Name = displayName(found.Name)
	if matches > 1 {
		log.Warn("several extensions matched, using the first", "count", matches, "id", found.ID)
	}
	log.Info("extension resolved", "id", found.ID, "name", found.Name)
	return found, nil
}

func names(items []Identity) string {
	if len(items) == 0 {
		return "none"
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%q", displayName(it.Name)))
	}
	return strings.Join(out, ", ")
}

// displayName collapses the layout whitespace of a card label.
func displayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
