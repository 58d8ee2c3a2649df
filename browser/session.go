package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// Session owns one browser process for the duration of a single crawl. The
// orchestrator creates it at the start of a run and closes it on every exit
// path so no browser process outlives its crawl.
type Session interface {
	// NewPage opens a fresh page on the session's browser.
	NewPage(ctx context.Context) (Driver, error)
	Close() error
}

// SessionOptions configures browser launch.
type SessionOptions struct {
	Headless       bool
	BinPath        string
	ElementTimeout time.Duration
}

type rodSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

// NewSession launches a browser and connects to it.
func NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-gpu")

	if opts.BinPath != "" {
		l = l.Bin(opts.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, err
	}

	return &rodSession{
		browser:  b,
		launcher: l,
		timeout:  opts.ElementTimeout,
	}, nil
}

func (s *rodSession) NewPage(ctx context.Context) (Driver, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	return NewPage(page, s.timeout), nil
}

func (s *rodSession) Close() error {
	err := s.browser.Close()
	if err != nil {
		log.Error().Err(err).Msg("Error closing browser")
	}
	s.launcher.Cleanup()
	return err
}
