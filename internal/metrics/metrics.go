package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	inboundMsgs = prometheus.NewCounter(prometheus.CounterOpts{Name: "rcd_inbound_total", Help: "Inbound messages seen"})
	commands    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "rcd_commands_total", Help: "Commands answered"}, []string{"handler", "kind"})
	updates     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "rcd_cooldown_updates_total", Help: "Cooldown updates stored"}, []string{"source"})
	evictions   = prometheus.NewCounter(prometheus.CounterOpts{Name: "rcd_cooldown_evictions_total", Help: "Cooldowns cleared as ready"})
	reminders   = prometheus.NewCounter(prometheus.CounterOpts{Name: "rcd_reminders_scheduled_total", Help: "Reminders handed to the scheduler"})
	sendErrors  = prometheus.NewCounter(prometheus.CounterOpts{Name: "rcd_send_errors_total", Help: "Transport send errors"})
)

func init() {
	prometheus.MustRegister(inboundMsgs, commands, updates, evictions, reminders, sendErrors)
}

// Start runs a Prometheus handler on the given listen addr.
func Start(ctx context.Context, listen string, log *slog.Logger) error {
	if listen == "" {
		return nil
	}
	srv := &http.Server{Addr: listen, Handler: promhttp.Handler()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", slog.String("err", err.Error()))
			}
		}
	}()
	return nil
}

func IncInbound() { inboundMsgs.Inc() }

func IncCommand(handler, kind string) { commands.WithLabelValues(handler, kind).Inc() }

// AddUpdates counts n stored updates from source ("status", "command" or "confirmation").
func AddUpdates(source string, n int) { updates.WithLabelValues(source).Add(float64(n)) }

func AddEvictions(n int) { evictions.Add(float64(n)) }

func IncReminder() { reminders.Inc() }

func IncSendError() { sendErrors.Inc() }
