package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"solaboard/internal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solaboard"

var (
	RpcCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "JSON-RPC calls by method and result",
	}, []string{"method", "result"})

	RpcLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "JSON-RPC call latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	Aggregations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "passes_total",
		Help:      "Aggregation passes by result (ok, failed, stale)",
	}, []string{"result"})

	TokensListed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "tokens_listed",
		Help:      "Entries in the last applied token list",
	})

	MetadataLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "metadata",
		Name:      "lookups_total",
		Help:      "Metadata lookups by stage (onchain, offchain) and result",
	}, []string{"stage", "result"})

	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transfer",
		Name:      "total",
		Help:      "Transfers by final state and error kind",
	}, []string{"state", "kind"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Notifications delivered per sink",
	}, []string{"sink", "result"})
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRpc 记录一次 RPC 调用
func ObserveRpc(method string, start time.Time, err error) {
	RpcLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	RpcCalls.WithLabelValues(method, Result(err)).Inc()
}

// Server 暴露 /metrics，实现 go-zero service.Service
type Server struct {
	srv *http.Server
}

func NewServer(addr, path string) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

func (s *Server) Start() {
	logger.Infof("[Metrics] listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("[Metrics] server stopped: %v", err)
	}
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}
