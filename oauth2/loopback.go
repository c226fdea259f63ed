package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
)

// LoopbackAuthorizer completes the consent step for native and CLI clients:
// it serves a one-shot callback endpoint on the loopback interface, points
// the user's browser at the authorization URL, and waits for the provider
// redirect.
type LoopbackAuthorizer struct {
	// Addr is the listen address, for example "127.0.0.1:8453". Required.
	Addr string

	// CallbackPath defaults to /auth/callback and must match the path
	// registered with the provider.
	CallbackPath string

	// OpenBrowser launches the user's browser at the authorization URL.
	// When nil the URL is logged for the user to open by hand.
	OpenBrowser func(url string) error

	Logger *slog.Logger
}

func (a *LoopbackAuthorizer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Authorize serves the callback endpoint until the provider redirects back
// or ctx is done. A provider redirect carrying error=access_denied, and a
// cancelled context, both report ErrCancelled.
func (a *LoopbackAuthorizer) Authorize(ctx context.Context, authURL, state string) (*Callback, error) {
	path := a.CallbackPath
	if path == "" {
		path = "/auth/callback"
	}

	type redirect struct {
		cb     *Callback
		errVal string
	}
	results := make(chan redirect, 1)

	router := mux.NewRouter()
	router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errVal := q.Get("error"); errVal != "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><p>Sign-in was not completed. You can close this window.</p></body></html>")
			select {
			case results <- redirect{errVal: errVal}:
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>Sign-in complete. You can close this window.</p></body></html>")
		select {
		case results <- redirect{cb: &Callback{Code: q.Get("code"), State: q.Get("state")}}:
		default:
		}
	}).Methods(http.MethodGet)

	ln, err := net.Listen("tcp", a.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", a.Addr, err)
	}
	srv := &http.Server{Handler: router}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.logger().Warn("callback server stopped", "err", serveErr)
		}
	}()
	defer srv.Shutdown(context.Background())

	if a.OpenBrowser != nil {
		if err := a.OpenBrowser(authURL); err != nil {
			return nil, fmt.Errorf("opening browser: %w", err)
		}
	} else {
		a.logger().Info("open this URL to continue sign-in", "url", authURL)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, ctx.Err()
	case res := <-results:
		switch {
		case res.errVal == "access_denied":
			return nil, ErrCancelled
		case res.errVal != "":
			return nil, fmt.Errorf("provider returned error %q", res.errVal)
		default:
			return res.cb, nil
		}
	}
}
