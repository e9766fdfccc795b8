// upstream-sim serves in-memory CRM and inventory collections for running
// the producer locally. Start one instance per source:
//
//	go run ./tools/upstream-sim -port 8081 -resource customers
//	go run ./tools/upstream-sim -port 8082 -resource products
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/datasync/libs/config"
	"github.com/md-rashed-zaman/datasync/libs/httpx"
	"github.com/md-rashed-zaman/datasync/libs/runtime"
)

func main() {
	var (
		port     = flag.String("port", config.String("PORT", "8081"), "listen port")
		resource = flag.String("resource", config.String("RESOURCE", "customers"), "customers or products")
		seed     = flag.Int("seed", 3, "number of generated records")
		failRate = flag.Float64("fail-rate", 0, "fraction of GETs answered with 503, to exercise producer retries")
	)
	flag.Parse()

	if *resource != "customers" && *resource != "products" {
		fatal("resource must be customers or products")
	}
	if *failRate < 0 || *failRate > 1 {
		fatal("fail-rate must be within [0,1]")
	}

	logger := runtime.NewLogger("upstream-sim-"+*resource, config.String("LOG_LEVEL", "info"))
	store := newStore(gofakeit.New(time.Now().UnixNano()), *resource, *seed)

	mux := http.NewServeMux()
	mux.Handle("/"+*resource, store.handler(*failRate))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           httpx.Chain(mux, httpx.WithRequestID, httpx.WithAccessLog(logger, "/healthz")),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("upstream simulator listening", "addr", srv.Addr, "resource", *resource, "records", *seed)
	if err := srv.ListenAndServe(); err != nil {
		fatal(err.Error())
	}
}

// store is a single-writer map of records keyed by generated id.
type store struct {
	mu      sync.RWMutex
	records map[string]map[string]any
}

func newStore(f *gofakeit.Faker, resource string, n int) *store {
	s := &store{records: make(map[string]map[string]any, n)}
	for i := 0; i < n; i++ {
		var rec map[string]any
		if resource == "products" {
			rec = map[string]any{
				"name":  f.ProductName(),
				"sku":   strings.ToUpper(f.LetterN(3)) + "-" + f.DigitN(4),
				"price": f.Price(1, 500),
				"stock": f.Number(0, 1000),
			}
		} else {
			rec = map[string]any{
				"name":  f.Name(),
				"email": f.Email(),
				"phone": f.Phone(),
			}
		}
		s.add(rec)
	}
	return s
}

func (s *store) add(rec map[string]any) map[string]any {
	id := uuid.NewString()
	rec["id"] = id
	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()
	return rec
}

func (s *store) list() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["id"]) < fmt.Sprint(out[j]["id"])
	})
	return out
}

func (s *store) handler(failRate float64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if failRate > 0 && rand.Float64() < failRate {
				http.Error(w, "simulated outage", http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, s.list())
		case http.MethodPost:
			var rec map[string]any
			if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec == nil {
				http.Error(w, "body must be a JSON object", http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusCreated, s.add(rec))
		default:
			w.Header().Set("Allow", "GET, POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fatal(msg string) {
	slog.Error(msg)
	os.Exit(1)
}
