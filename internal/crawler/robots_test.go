package crawler

import (
	"context"
	"testing"
)

func TestRobotsGateAllowed(t *testing.T) {
	t.Parallel()

	t.Run("disallow rules are honored", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/robots.txt": "User-agent: *\nDisallow: /private/\n",
		}}
		gate := NewRobotsGate(f, "urlscope/1.0")

		if gate.Allowed(context.Background(), "https://example.com/private/page") {
			t.Error("disallowed path should be denied")
		}
		if !gate.Allowed(context.Background(), "https://example.com/public") {
			t.Error("unlisted path should be allowed")
		}
	})

	t.Run("missing robots.txt allows everything", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{}}
		gate := NewRobotsGate(f, "urlscope/1.0")

		if !gate.Allowed(context.Background(), "https://example.com/anything") {
			t.Error("missing robots.txt should allow all")
		}
	})

	t.Run("robots.txt is fetched once per host", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/robots.txt": "User-agent: *\nDisallow:\n",
		}}
		gate := NewRobotsGate(f, "urlscope/1.0")

		gate.Allowed(context.Background(), "https://example.com/a")
		gate.Allowed(context.Background(), "https://example.com/b")
		gate.Allowed(context.Background(), "https://example.com/c")

		if len(f.fetched) != 1 {
			t.Errorf("fetched %d times, want 1 (cached)", len(f.fetched))
		}
	})

	t.Run("agent-specific rules beat wildcard", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{pages: map[string]string{
			"https://example.com/robots.txt": "User-agent: *\nDisallow: /\n\nUser-agent: urlscope\nDisallow: /private/\n",
		}}
		gate := NewRobotsGate(f, "urlscope")

		if !gate.Allowed(context.Background(), "https://example.com/public") {
			t.Error("agent-specific group should apply")
		}
		if gate.Allowed(context.Background(), "https://example.com/private/x") {
			t.Error("agent-specific disallow should deny")
		}
	})

	t.Run("unparsable URL is allowed through", func(t *testing.T) {
		t.Parallel()

		gate := NewRobotsGate(&stubFetcher{pages: map[string]string{}}, "urlscope/1.0")
		if !gate.Allowed(context.Background(), "not a url") {
			t.Error("unparsable URL should pass the gate")
		}
	})
}
