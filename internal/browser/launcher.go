// Package browser opens article links in the user's external browser.
package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pders01/flip/internal/config"
	"github.com/pders01/flip/internal/debuglog"
	"github.com/pders01/flip/internal/validation"
)

var ErrNoOpener = errors.New("no application found to open URL")

type Launcher struct {
	opener    string
	validator *validation.URLValidator
	start     func(name string, args ...string) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	return &Launcher{
		opener:    strings.TrimSpace(cfg.Browser.Opener),
		validator: validation.NewArticleURLValidator(),
		start:     startDetached,
	}
}

// Open validates url and hands it to the configured opener without
// waiting for the opener to exit.
func (l *Launcher) Open(url string) error {
	normalized, err := l.validator.ValidateAndNormalize(url)
	if err != nil {
		return fmt.Errorf("refusing to open link: %w", err)
	}
	if l.opener == "" {
		return ErrNoOpener
	}

	name, args := command(l.opener, normalized)
	debuglog.Debugf("opening %s with %s", normalized, name)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// command splits the opener into program and arguments. The windows
// "start" builtin has to run through cmd.
func command(opener, url string) (string, []string) {
	fields := strings.Fields(opener)
	if fields[0] == "start" {
		return "cmd", append([]string{"/c", "start", ""}, append(fields[1:], url)...)
	}
	return fields[0], append(fields[1:], url)
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
