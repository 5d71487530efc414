package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// ============================================
	// Mint attempts
	// ============================================
	MintAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artmint_mint_attempts_total",
			Help: "Total number of mint attempts by outcome",
		},
		[]string{"outcome"},
	)

	MintDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artmint_mint_duration_seconds",
		Help:    "Duration of a mint attempt from preconditions to ledger append",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	ConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artmint_confirmation_duration_seconds",
		Help:    "Time spent waiting for a mint transaction receipt",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})

	PaymentFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artmint_payment_fallbacks_total",
		Help: "Number of times the minimum payment read failed and the fallback was used",
	})

	EventParseMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artmint_event_parse_misses_total",
		Help: "Confirmed mints whose receipt carried no recognizable mint event",
	})

	// ============================================
	// Storage uploads
	// ============================================
	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artmint_upload_duration_seconds",
			Help:    "Storage upload duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "kind"},
	)

	UploadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artmint_upload_failures_total",
			Help: "Total number of failed storage uploads",
		},
		[]string{"provider", "kind"},
	)

	// ============================================
	// Network gatekeeper
	// ============================================
	NetworkSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artmint_network_switches_total",
			Help: "Network switch attempts by result",
		},
		[]string{"result"},
	)

	WalletEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artmint_wallet_events_total",
			Help: "Wallet notifications received by kind",
		},
		[]string{"kind"},
	)

	// ============================================
	// Local ledger
	// ============================================
	LedgerRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artmint_ledger_records",
		Help: "Number of records in the local ledger after the last append",
	})

	LedgerResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artmint_ledger_resets_total",
		Help: "Number of times a corrupt ledger was set aside and a fresh list started",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).WithField("addr", addr).Error("❌ metrics server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server
}
