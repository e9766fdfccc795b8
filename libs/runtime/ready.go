package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// Route mounts an extra handler (e.g. /metrics) on the admin mux.
type Route struct {
	Pattern string
	Handler http.Handler
}

const readyCheckTimeout = 2 * time.Second

// NewAdminMux serves /healthz, /readyz and any extra routes. It never exposes
// a way to trigger a producer run.
func NewAdminMux(checks []ReadyCheck, routes ...Route) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if failures := runChecks(r.Context(), checks); len(failures) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, strings.Join(failures, "; "))
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	for _, rt := range routes {
		if rt.Pattern == "" || rt.Handler == nil {
			continue
		}
		mux.Handle(rt.Pattern, rt.Handler)
	}
	return mux
}

func runChecks(ctx context.Context, checks []ReadyCheck) []string {
	var failures []string
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
		err := check.Check(checkCtx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures = append(failures, name+": "+err.Error())
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
