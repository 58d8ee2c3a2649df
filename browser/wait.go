package browser

import (
	"context"
	"strings"
	"time"
)

const (
	// DefaultPollInterval is how often wait conditions are re-checked.
	DefaultPollInterval = 250 * time.Millisecond

	frameworkIdleTimeout       = 10 * time.Second
	frameworkIdleFallbackSleep = 2 * time.Second
)

// The portals render through a client-side data-binding framework with an
// asynchronous digest cycle. There is no synchronous "rendering finished"
// signal, so idleness is inferred from the framework's own HTTP request
// tracking: the global handle exists, the injector resolves, and the request
// queue is empty.
const frameworkIdleScript = `() => {
	try {
		if (!window.angular) return false;
		const injector = window.angular.element(document.body).injector();
		if (!injector) return false;
		const http = injector.get('$http');
		return http.pendingRequests.length === 0;
	} catch (e) {
		return false;
	}
}`

// PollUntil re-checks pred every interval until it returns true or the
// timeout elapses. Predicate errors count as "not yet". Returns whether the
// condition was met.
func PollUntil(ctx context.Context, timeout, interval time.Duration, pred func(context.Context) (bool, error)) bool {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err == nil && ok {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

// WaitSelector polls until an element matching the selector exists in the
// DOM. Absence after the timeout is surfaced as false, never as an error.
func WaitSelector(ctx context.Context, d Driver, selector string, timeout time.Duration) bool {
	return PollUntil(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		return d.Has(selector)
	})
}

// WaitVisible polls until an element matching the selector exists and is
// rendered.
func WaitVisible(ctx context.Context, d Driver, selector string, timeout time.Duration) bool {
	return PollUntil(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		has, err := d.Has(selector)
		if err != nil || !has {
			return false, err
		}
		el, err := d.Element(selector)
		if err != nil {
			return false, err
		}
		return ElementVisible(el), nil
	})
}

// ElementVisible reports whether an element is rendered: computed-style
// visible and not carrying the framework's hidden-class marker.
func ElementVisible(el Element) bool {
	class, err := el.Attribute("class")
	if err == nil {
		for _, marker := range []string{"ng-hide", "hidden", "collapse-hidden"} {
			if strings.Contains(class, marker) {
				return false
			}
		}
	}

	visible, err := el.Visible()
	if err != nil {
		return false
	}
	return visible
}

// WaitFrameworkIdle blocks until the page's client framework reports no
// pending tracked requests, or the fixed timeout elapses. Idleness detection
// is best-effort: on timeout it falls back to a short settle sleep instead of
// failing, so this never returns an error.
func WaitFrameworkIdle(ctx context.Context, d Driver) {
	idle := PollUntil(ctx, frameworkIdleTimeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		return d.EvalBool(ctx, frameworkIdleScript)
	})

	if !idle {
		select {
		case <-ctx.Done():
		case <-time.After(frameworkIdleFallbackSleep):
		}
	}
}

// Settle sleeps for a fixed delay, respecting context cancellation. Used
// after framework idleness where the portals still populate fields
// asynchronously.
func Settle(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
