package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"wallet-core-sol/internal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService 暴露 prometheus /metrics
type MetricsService struct {
	addr   string
	server *http.Server
	ln     net.Listener
}

func NewMetricsService(addr string, gatherer prometheus.Gatherer) *MetricsService {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsService{
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Listen 提前绑定端口，":0" 时可通过 Addr 获取实际地址
func (m *MetricsService) Listen() error {
	if m.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	m.ln = ln
	return nil
}

func (m *MetricsService) Addr() string {
	if m.ln == nil {
		return m.addr
	}
	return m.ln.Addr().String()
}

func (m *MetricsService) Start() {
	if err := m.Listen(); err != nil {
		logger.Errorf("[MetricsService] listen %s failed: %v", m.addr, err)
		return
	}
	logger.Infof("[MetricsService] listening on %s", m.Addr())
	if err := m.server.Serve(m.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("[MetricsService] serve failed: %v", err)
	}
}

func (m *MetricsService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
}
