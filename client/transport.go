package client

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

// DefaultAuthPrefix marks requests that never enter the refresh cycle.
const DefaultAuthPrefix = "/api/auth/"

// Transport attaches the session's access token and recovers from an expired
// one through the [Coordinator]. A request is replayed at most once.
type Transport struct {
	Base        http.RoundTripper
	Tokens      *TokenStore
	Coordinator *Coordinator
	// AuthPrefix defaults to DefaultAuthPrefix.
	AuthPrefix string
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) authPrefix() string {
	if t.AuthPrefix != "" {
		return t.AuthPrefix
	}
	return DefaultAuthPrefix
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasPrefix(req.URL.Path, t.authPrefix()) || t.Coordinator == nil {
		return t.send(req, t.Tokens.Access())
	}

	out, err := replayable(req)
	if err != nil {
		return nil, err
	}

	gen := t.Coordinator.Generation()
	sent := t.Tokens.Access()
	resp, err := t.send(out, sent)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	switch current := t.Tokens.Access(); {
	case current == "" && sent != "":
		// the session ended while this request was in flight
		return resp, nil
	case current != sent:
		// another request already rotated the token
	default:
		if werr := t.Coordinator.WaitAfter(req.Context(), gen); werr != nil {
			if errors.Is(werr, ErrRefreshExhausted) {
				return resp, nil
			}
			drainClose(resp)
			return nil, werr
		}
	}

	replay, err := rewind(out)
	if err != nil {
		return resp, nil
	}
	drainClose(resp)
	return t.send(replay, t.Tokens.Access())
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base().RoundTrip(out)
}

// replayable returns a copy of req whose body can be read again. req itself
// is only consumed and closed.
func replayable(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return out, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.Body, _ = out.GetBody()
	return out, nil
}

func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return out, nil
}

func drainClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
