package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/chromedp/chromedp"
)

// BrowserKind identifies the type of Chromium-based browser.
type BrowserKind string

const (
	BrowserChrome           BrowserKind = "chrome"
	BrowserChromeForTesting BrowserKind = "chrome-for-testing"
	BrowserChromium         BrowserKind = "chromium"
	BrowserCanary           BrowserKind = "canary"
	BrowserCustom           BrowserKind = "custom"
)

// BrowserExecutable represents a found browser binary.
type BrowserExecutable struct {
	Kind BrowserKind
	Path string
}

type candidate struct {
	kind BrowserKind
	path string
}

// FindChromeExecutable finds a Chrome/Chromium browser on the system. A
// non-empty customPath must exist. Returns nil without error when nothing is
// installed in a known location; chromedp then falls back to its own lookup.
func FindChromeExecutable(customPath string) (*BrowserExecutable, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("browser executable not found: %s", customPath)
		}
		return &BrowserExecutable{Kind: BrowserCustom, Path: customPath}, nil
	}

	var candidates []candidate
	switch runtime.GOOS {
	case "darwin":
		candidates = macCandidates()
	case "linux":
		candidates = linuxCandidates()
	case "windows":
		candidates = windowsCandidates()
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	for _, c := range candidates {
		if filepath.IsAbs(c.path) {
			if fileExists(c.path) {
				return &BrowserExecutable{Kind: c.kind, Path: c.path}, nil
			}
			continue
		}
		if p, err := exec.LookPath(c.path); err == nil {
			return &BrowserExecutable{Kind: c.kind, Path: p}, nil
		}
	}
	return nil, nil
}

// Chromium builds are listed before branded Chrome: recent stable Chrome
// ignores --load-extension unless the switch is re-enabled.
func linuxCandidates() []candidate {
	return []candidate{
		{BrowserChromeForTesting, "chrome-for-testing"},
		{BrowserChromium, "/usr/bin/chromium"},
		{BrowserChromium, "/usr/bin/chromium-browser"},
		{BrowserChromium, "/snap/bin/chromium"},
		{BrowserChrome, "/usr/bin/google-chrome"},
		{BrowserChrome, "/usr/bin/google-chrome-stable"},
		{BrowserChrome, "/usr/bin/chrome"},
	}
}

func macCandidates() []candidate {
	home := os.Getenv("HOME")
	return []candidate{
		{BrowserChromeForTesting, "/Applications/Google Chrome for Testing.app/Contents/MacOS/Google Chrome for Testing"},
		{BrowserChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
		{BrowserChromium, filepath.Join(home, "Applications/Chromium.app/Contents/MacOS/Chromium")},
		{BrowserChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
		{BrowserChrome, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
		{BrowserCanary, "/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary"},
	}
}

func windowsCandidates() []candidate {
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = "C:\\Program Files"
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = "C:\\Program Files (x86)"
	}

	var out []candidate
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		out = append(out,
			candidate{BrowserChromium, filepath.Join(localAppData, "Chromium", "Application", "chrome.exe")},
			candidate{BrowserChrome, filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserCanary, filepath.Join(localAppData, "Google", "Chrome SxS", "Application", "chrome.exe")},
		)
	}
	return append(out,
		candidate{BrowserChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
		candidate{BrowserChrome, filepath.Join(programFilesX86, "Google", "Chrome", "Application", "chrome.exe")},
	)
}

// chromeFlags returns the command-line switches for cfg. Chrome's default
// automation flags are not used: they disable extensions.
func chromeFlags(cfg Config) map[string]any {
	flags := map[string]any{
		"user-data-dir":                  cfg.ProfileDir,
		"load-extension":                 cfg.ExtensionPath,
		"disable-extensions-except":      cfg.ExtensionPath,
		"disable-features":               "DisableLoadExtensionCommandLineSwitch",
		"no-first-run":                   true,
		"no-default-browser-check":       true,
		"disable-sync":                   true,
		"disable-background-networking":  true,
		"disable-session-crashed-bubble": true,
		"hide-crash-restore-bubble":      true,
		"password-store":                 "basic",
	}

	if cfg.StartMaximized {
		flags["start-maximized"] = true
	}

	if cfg.Headless {
		// Legacy headless mode cannot load extensions.
		flags["headless"] = "new"
		flags["disable-gpu"] = true
	}

	if cfg.NoSandbox {
		flags["no-sandbox"] = true
		flags["disable-setuid-sandbox"] = true
	}

	if runtime.GOOS == "linux" {
		flags["disable-dev-shm-usage"] = true
	}
	return flags
}

// allocatorOptions builds the exec allocator options for cfg.
func allocatorOptions(cfg Config, exe *BrowserExecutable) []chromedp.ExecAllocatorOption {
	flags := chromeFlags(cfg)
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags)+2)
	for name, value := range flags {
		opts = append(opts, chromedp.Flag(name, value))
	}
	opts = append(opts, chromedp.ModifyCmdFunc(setChromeProcessGroup))
	if exe != nil {
		opts = append(opts, chromedp.ExecPath(exe.Path))
	}
	return opts
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
