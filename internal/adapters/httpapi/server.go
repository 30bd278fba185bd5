// Package httpapi exposes reward reports over HTTP.
package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/core/service"
	"github.com/TeneoProtocolAI/staking-rewards/pkg/version"
)

// Reporter produces reward reports.
type Reporter interface {
	GenerateReportWithProgress(ctx context.Context, input domain.ReportInput, progress domain.ProgressFunc) (*domain.AggregateResult, error)
}

// Refresher rebuilds stored price datasets.
type Refresher interface {
	UpdatePrices(ctx context.Context, currency string) error
}

type Config struct {
	Reporter  Reporter
	Refresher Refresher
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// JWTSecret enables POST /v1/prices/refresh. Empty disables the endpoint.
	JWTSecret string
	Logger    *slog.Logger
}

type Server struct {
	cfg       Config
	mux       *http.ServeMux
	assembler *service.ResultAssembler
	logger    *slog.Logger
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		assembler: service.NewResultAssembler(),
		logger:    cfg.Logger.With("component", "http-api"),
	}
	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.GetBuildInfo())
	})
	if cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", cfg.Metrics)
	}
	s.mux.HandleFunc("GET /v1/rewards", s.handleRewards)
	s.mux.HandleFunc("GET /v1/rewards/stream", s.handleStream)
	if cfg.Refresher != nil && cfg.JWTSecret != "" {
		s.mux.HandleFunc("POST /v1/prices/refresh", s.requireToken(s.handleRefresh))
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func parseInput(r *http.Request) domain.ReportInput {
	q := r.URL.Query()
	return domain.ReportInput{
		Address:  strings.TrimSpace(q.Get("address")),
		Network:  strings.TrimSpace(q.Get("network")),
		Currency: strings.TrimSpace(q.Get("currency")),
	}
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	res, err := s.cfg.Reporter.GenerateReportWithProgress(r.Context(), parseInput(r), nil)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("report failed", "path", r.URL.Path, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("X-Report-Id", res.ReportID)
	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="rewards-`+res.ReportID+`.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(s.assembler.CSVHeader(res))
		_ = cw.WriteAll(s.assembler.CSVRecords(res))
		return
	}
	writeJSON(w, http.StatusOK, s.assembler.Assemble(res))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if err := s.cfg.Refresher.UpdatePrices(r.Context(), currency); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrUnsupportedCurrency) {
			status = http.StatusBadRequest
		}
		s.logger.Error("price refresh failed", "currency", currency, "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "currency": strings.ToLower(currency)})
}

func statusFor(err error) int {
	var te *domain.TransportError
	switch {
	case errors.Is(err, domain.ErrUnsupportedNetwork),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
