// Package main implements a mock vendor pricing server for local development.
// It answers computePrice requests with deterministic prices so extractions
// can run end to end without vendor credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// behavior controls how the mock answers.
type behavior struct {
	invalid    map[string]bool // value IDs rejected as invalid attributes
	suspicious map[string]bool // value IDs priced at the placeholder amount
	failEvery  int             // every Nth request returns 503; 0 disables
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	invalid := flag.String("invalid", "", "comma-separated value IDs to reject as invalid attributes")
	suspicious := flag.String("suspicious", "", "comma-separated value IDs priced at the placeholder amount")
	failEvery := flag.Int("fail-every", 0, "return 503 on every Nth request (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := behavior{
		invalid:    idSet(*invalid),
		suspicious: idSet(*suspicious),
		failEvery:  *failEvery,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/computePrice", computePriceHandler(logger, b))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock pricing server", "addr", addr,
		"invalid", len(b.invalid), "suspicious", len(b.suspicious), "fail_every", b.failEvery)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func idSet(csv string) map[string]bool {
	set := map[string]bool{}
	for id := range strings.SplitSeq(csv, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func computePriceHandler(logger *slog.Logger, b behavior) http.HandlerFunc {
	var requests atomic.Int64

	return func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if b.failEvery > 0 && n%int64(b.failEvery) == 0 {
			logger.Warn("injecting failure", "request", n)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
			return
		}

		if r.URL.Query().Get("website_code") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "website_code is required"})
			return
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
			return
		}
		productID := body["product_id"]
		if productID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "product_id is required"})
			return
		}

		values := attributeValues(body)
		for _, v := range values {
			if b.invalid[v] {
				logger.Info("rejecting invalid attribute", "product_id", productID, "value", v)
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"message": "Invalid attribute value id: " + v,
				})
				return
			}
		}

		resp := quote(productID, values, body["attr5"])
		for _, v := range values {
			if b.suspicious[v] {
				resp["price"] = "20"
				break
			}
		}

		writeJSON(w, http.StatusOK, resp)
		logger.Info("priced", "product_id", productID, "slots", len(values), "price", resp["price"])
	}
}

// attributeValues returns the attrN values of a request in slot order.
func attributeValues(body map[string]string) []string {
	slots := make([]string, 0, len(body))
	for k := range body {
		if strings.HasPrefix(k, "attr") {
			slots = append(slots, k)
		}
	}
	slices.SortFunc(slots, func(a, b string) int {
		na, _ := strconv.Atoi(strings.TrimPrefix(a, "attr"))
		nb, _ := strconv.Atoi(strings.TrimPrefix(b, "attr"))
		return na - nb
	})

	values := make([]string, len(slots))
	for i, s := range slots {
		values[i] = body[s]
	}
	return values
}

// quote derives a stable price from the product and its values so repeated
// runs produce identical tables.
func quote(productID string, values []string, qty string) map[string]any {
	h := fnv.New32a()
	h.Write([]byte(productID))
	for _, v := range values {
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	cents := 500 + int(h.Sum32()%20000)
	total := fmt.Sprintf("%d.%02d", cents/100, cents%100)

	resp := map[string]any{
		"price":       total,
		"total_price": total,
		"turnaround":  strconv.Itoa(1 + int(h.Sum32()%7)),
	}
	// The quantity slot carries a value ID, echoed back like the vendor does
	// for unknown quantities.
	if qty != "" {
		resp["qty"] = qty
	}
	return resp
}
