package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neboloop/extharness/internal/browser"
	"github.com/neboloop/extharness/internal/failure"
	"github.com/neboloop/extharness/internal/logging"
	"github.com/neboloop/extharness/internal/wait"
)

// DefaultElementTimeout bounds each wait for an options page element.
const DefaultElementTimeout = 10 * time.Second

// DefaultOptionsPage is the options page path inside the extension.
const DefaultOptionsPage = "options.html"

// Field is one input on the options page and the value to enter.
type Field struct {
	Selector string
	Value    string
	// Secret values are never logged or echoed in errors.
	Secret bool
}

// Confirmation is page text that appears once a save has been applied.
type Confirmation struct {
	Selector string
	Contains string
}

// Values describes what to enter on the options page and how to commit it.
type Values struct {
	// Page is the options page path or an absolute URL. Empty means
	// DefaultOptionsPage.
	Page    string
	Fields  []Field
	Commit  string
	Confirm *Confirmation
}

// Configurator enters values on an extension's options page.
type Configurator struct {
	// ElementTimeout bounds each element wait. Zero means
	// DefaultElementTimeout.
	ElementTimeout time.Duration

	// Interval is the poll period. Zero means wait.DefaultInterval.
	Interval time.Duration
}

func (c Configurator) opts() wait.Options {
	timeout := c.ElementTimeout
	if timeout <= 0 {
		timeout = DefaultElementTimeout
	}
	return wait.Options{Timeout: timeout, Interval: c.Interval}
}

// OptionsURL returns the address of page inside the extension id. A page
// that is already an absolute URL is returned as is.
func OptionsURL(id Identity, page string) string {
	if page == "" {
		page = DefaultOptionsPage
	}
	if strings.Contains(page, "://") {
		return page
	}
	return fmt.Sprintf("%s://%s/%s", browser.ExtensionScheme, id.ID, strings.TrimPrefix(page, "/"))
}

// Apply opens the options page of id, fills every field and clicks the commit
// control. Element waits that expire are failure.Timeout; anything else is
// failure.Configuration wrapping the cause. Nothing is retried.
func (c Configurator) Apply(ctx context.Context, page Page, id Identity, v Values) error {
	const op = "configure extension"
	log := logging.Component("extension")

	if id.ID == "" {
		return failure.Configuration(op, errors.New("extension id is empty"))
	}
	if v.Commit == "" {
		return failure.Configuration(op, errors.New("no commit control given"))
	}
	opts := c.opts()

	url := OptionsURL(id, v.Page)
	err := wait.Do(ctx, "open options page", opts.Timeout, func(ctx context.Context) error {
		return page.Navigate(ctx, url)
	})
	if err != nil {
		return failure.Configuration(op, err)
	}

	for _, f := range v.Fields {
		if err := c.waitPresent(ctx, page, f.Selector); err != nil {
			return failure.Configuration(op, err)
		}
		if err := c.step(ctx, "clear "+f.Selector, func(ctx context.Context) error {
			return page.Clear(ctx, f.Selector)
		}); err != nil {
			return failure.Configuration(op, err)
		}
		if err := c.step(ctx, "type into "+f.Selector, func(ctx context.Context) error {
			return page.SendKeys(ctx, f.Selector, f.Value)
		}); err != nil {
			return failure.Configuration(op, err)
		}
	}

	if err := c.waitPresent(ctx, page, v.Commit); err != nil {
		return failure.Configuration(op, err)
	}
	if err := c.step(ctx, "click "+v.Commit, func(ctx context.Context) error {
		return page.Click(ctx, v.Commit)
	}); err != nil {
		return failure.Configuration(op, err)
	}

	if v.Confirm != nil {
		want := strings.ToLower(v.Confirm.Contains)
		err := wait.For(ctx, "save confirmation", opts, func(ctx context.Context) (bool, error) {
			text, err := page.Text(ctx, v.Confirm.Selector)
			if err != nil {
				return false, err
			}
			return strings.Contains(strings.ToLower(text), want), nil
		})
		if err != nil {
			return failure.Configuration(op, err)
		}
	}

	log.Info("options saved", "id", id.ID, "fields", len(v.Fields))
	return nil
}

// Verify reloads the options page and checks every field shows the value
// entered by Apply. A field that keeps a different value is a
// failure.Configuration.
func (c Configurator) Verify(ctx context.Context, page Page, v Values) error {
	const op = "verify extension options"
	opts := c.opts()

	if err := wait.Do(ctx, "reload options page", opts.Timeout, page.Reload); err != nil {
		return failure.Configuration(op, err)
	}

	for _, f := range v.Fields {
		if err := c.waitPresent(ctx, page, f.Selector); err != nil {
			return failure.Configuration(op, err)
		}

		var got string
		err := wait.For(ctx, "saved value of "+f.Selector, opts, func(ctx context.Context) (bool, error) {
			var err error
			got, err = page.Value(ctx, f.Selector)
			if err != nil {
				return false, err
			}
			return got == f.Value, nil
		})
		switch {
		case err == nil:
		case failure.KindOf(err) == failure.KindTimeout:
			return failure.Configuration(op, mismatch(f, got))
		default:
			return failure.Configuration(op, err)
		}
	}

	logging.Component("extension").Info("options verified", "fields", len(v.Fields))
	return nil
}

func mismatch(f Field, got string) error {
	if f.Secret {
		return fmt.Errorf("%s holds %d chars after reload, want %d", f.Selector, len(got), len(f.Value))
	}
	return fmt.Errorf("%s holds %q after reload, want %q", f.Selector, got, f.Value)
}

func (c Configurator) waitPresent(ctx context.Context, page Page, selector string) error {
	return wait.For(ctx, selector, c.opts(), func(ctx context.Context) (bool, error) {
		return page.Present(ctx, selector)
	})
}

func (c Configurator) step(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	err := wait.Do(ctx, what, c.opts().Timeout, fn)
	if err != nil && failure.KindOf(err) == failure.KindUnknown {
		return fmt.Errorf("%s: %w", what, err)
	}
	return err
}
