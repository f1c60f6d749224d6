// Package extension finds the extension under test on chrome://extensions and
// drives its options page.
package extension

import "context"

// Page is the subset of a browser tab the locator and configurator need.
// *browser.Session implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Evaluate(ctx context.Context, expr string, res any) error
	Present(ctx context.Context, selector string) (bool, error)
	Clear(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Value(ctx context.Context, selector string) (string, error)
	Text(ctx context.Context, selector string) (string, error)
}

// Identity is an installed extension as listed by the browser.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
