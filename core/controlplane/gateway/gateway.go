// Package gateway serves the guarded chat API. Every prompt passes the
// intent classifier and the policy evaluator before it may reach the
// upstream model; every decision is audited and streamed to observers.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rolefirst/guardrail/core/guard"
	"github.com/rolefirst/guardrail/core/infra/audit"
	"github.com/rolefirst/guardrail/core/infra/config"
	"github.com/rolefirst/guardrail/core/infra/logging"
	"github.com/rolefirst/guardrail/core/infra/metrics"
	"github.com/rolefirst/guardrail/core/intent"
	"github.com/rolefirst/guardrail/core/policy"
	"github.com/rolefirst/guardrail/packages/providers/ollama"
)

const (
	envGatewayHTTPAddr    = "GATEWAY_HTTP_ADDR"
	envGatewayMetricsAddr = "GATEWAY_METRICS_ADDR"
	defaultHTTPAddr       = ":8081"
	defaultMetricsAddr    = ":9092"

	headerRole          = "x-user-role"
	headerOrgUnit       = "x-user-orgunit"
	headerGeo           = "x-user-geo"
	headerTicketID      = "x-ticket-id"
	headerJustification = "x-justification"
	headerRequestID     = "x-request-id"
)

type server struct {
	guard     *guard.Guard
	policies  *policy.Store
	sink      audit.Sink
	decisions *audit.RedisStore
	upstream  ModelProvider
	metrics   metrics.GatewayMetrics

	stream  *streamHub
	started time.Time
}

// Run wires the classifier, policy store, audit sinks and upstream provider
// from configuration and serves HTTP until the listener fails.
func Run(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Load()
	}

	policies, err := policy.NewStore(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	var embedder intent.Embedder
	switch cfg.EmbedProvider {
	case "ollama":
		embedder = intent.NewResilientEmbedder(ollama.NewFromEnv(), cfg.EmbedTimeout)
	default:
		embedder = intent.NewHashingEmbedder(0)
	}
	classifier := intent.NewClassifier(embedder, cfg.IntentThreshold)

	var upstream ModelProvider = EchoProvider{}
	if cfg.UpstreamModel == "ollama" {
		upstream = ollama.NewFromEnv()
	}

	sinks := []audit.Sink{}
	jsonl, err := audit.NewJSONLSink(cfg.AuditLogPath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	sinks = append(sinks, jsonl)

	var decisions *audit.RedisStore
	if cfg.AuditRedis {
		decisions, err = audit.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis audit store: %w", err)
		}
		sinks = append(sinks, decisions)
	}
	if cfg.AuditNATS {
		natsSink, err := audit.NewNATSSink(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("connect nats audit sink: %w", err)
		}
		sinks = append(sinks, natsSink)
	}
	sink := audit.NewFanout(sinks...)
	defer sink.Close()

	s := newServer(
		guard.New(classifier, policies, metrics.NewProm("guardrail")),
		policies,
		sink,
		decisions,
		upstream,
		metrics.NewGatewayProm("guardrail_gateway"),
	)

	warmupCtx, cancel := contextWithWarmupTimeout()
	defer cancel()
	if err := s.guard.Warm(warmupCtx); err != nil {
		logging.Error("gateway", "classifier warmup failed", "error", err)
	}

	httpAddr := addrFromEnv(envGatewayHTTPAddr, defaultHTTPAddr)
	metricsAddr := addrFromEnv(envGatewayMetricsAddr, defaultMetricsAddr)
	return s.serve(httpAddr, metricsAddr)
}

func newServer(g *guard.Guard, policies *policy.Store, sink audit.Sink, decisions *audit.RedisStore, upstream ModelProvider, gw metrics.GatewayMetrics) *server {
	if sink == nil {
		sink = audit.Noop{}
	}
	s := &server{
		guard:     g,
		policies:  policies,
		sink:      sink,
		decisions: decisions,
		upstream:  upstream,
		metrics:   gw,
		stream:    newStreamHub(),
		started:   time.Now().UTC(),
	}
	s.stream.start()
	return s
}

func (s *server) serve(httpAddr, metricsAddr string) error {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	go func() {
		srv := &http.Server{
			Addr:         metricsAddr,
			Handler:      metricsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		logging.Info("gateway", "metrics listening", "addr", metricsAddr+"/metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("gateway", "metrics server error", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      corsMiddleware(rateLimitMiddleware(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	logging.Info("gateway", "http listening", "addr", httpAddr)
	return srv.ListenAndServe()
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /whoami", s.instrumented("/whoami", s.handleWhoami))

	mux.HandleFunc("POST /v1/chat", s.instrumented("/v1/chat", s.handleChat))
	mux.HandleFunc("POST /v1/policy/reload", s.instrumented("/v1/policy/reload", s.handleReloadPolicy))
	mux.HandleFunc("GET /v1/decisions", s.instrumented("/v1/decisions", s.handleListDecisions))
	mux.HandleFunc("GET /v1/stream", s.handleStream)

	return mux
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResult struct {
	Blocked bool   `json:"blocked"`
	Intent  string `json:"intent"`
	Reason  string `json:"reason,omitempty"`
	Answer  string `json:"answer,omitempty"`
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-Id", requestID)
	w.Header().Set("X-Policy-Version", s.policies.Current().Version)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "messages required"})
		return
	}
	prompt := strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	if prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "empty content"})
		return
	}

	rc := identityFromRequest(r)
	res := s.guard.Check(r.Context(), rc, prompt)

	rec := audit.Record{
		RequestID:     requestID,
		Role:          rc.Role,
		Attributes:    rc.Attributes,
		Intent:        res.Classification.Intent,
		Confidence:    res.Classification.Confidence,
		Allowed:       res.Decision.Allowed,
		Reason:        res.Decision.Reason,
		Resources:     res.Decision.Resources,
		BreakGlass:    res.Decision.BreakGlassUsed,
		ClassifyMS:    res.ClassifyMS,
		EvaluateMS:    res.EvaluateMS,
		LatencyMS:     float64(time.Since(start).Microseconds()) / 1000.0,
		PromptChars:   len(prompt),
		PolicyVersion: res.PolicyVersion,
	}
	rec.Stamp()
	if err := s.sink.Append(r.Context(), rec); err != nil {
		logging.Error("gateway", "audit append failed", "error", err, "request_id", requestID)
	}
	s.stream.publish(rec)

	if !res.Decision.Allowed {
		writeJSON(w, http.StatusForbidden, map[string]any{"response": chatResult{
			Blocked: true,
			Intent:  res.Classification.Intent,
			Reason:  res.Decision.Reason,
		}})
		return
	}

	answer, err := s.upstream.Generate(r.Context(), prompt)
	if err != nil {
		logging.Error("gateway", "upstream generate failed", "error", err, "request_id", requestID)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream model unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": chatResult{
		Blocked: false,
		Intent:  res.Classification.Intent,
		Answer:  answer,
	}})
}

func (s *server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	rc := identityFromRequest(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"role":       rc.Role,
		"attrs":      rc.Attributes,
		"request_id": r.Header.Get(headerRequestID),
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.guard.Warm(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleReloadPolicy(w http.ResponseWriter, _ *http.Request) {
	if err := s.policies.Reload(); err != nil {
		logging.Error("gateway", "policy reload rejected", "error", err)
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	version := s.policies.Current().Version
	logging.Info("gateway", "policy reloaded", "version", version)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "policy_version": version})
}

func (s *server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	if s.decisions == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "decision store not configured"})
		return
	}
	limit := int64(100)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	recent, err := s.decisions.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": recent})
}

// identityFromRequest reads the trusted identity headers set by the fronting
// proxy. Blank headers stay absent from the attribute map. An absent role
// stays empty and fails closed downstream.
func identityFromRequest(r *http.Request) policy.RequestContext {
	attrs := map[string]string{}
	for key, header := range map[string]string{
		"org_unit":      headerOrgUnit,
		"geo":           headerGeo,
		"ticket_id":     headerTicketID,
		"justification": headerJustification,
	} {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			attrs[key] = v
		}
	}
	return policy.RequestContext{
		Role:       strings.TrimSpace(r.Header.Get(headerRole)),
		Attributes: attrs,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
