package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clip-worker/internal/logging"
)

// promErrorLog routes scrape errors into the service log.
type promErrorLog struct{}

func (promErrorLog) Println(v ...interface{}) {
	logging.Warn("metrics scrape: %s", fmt.Sprint(v...))
}

// MetricsHandler serves the default registry for the metrics listener.
// A collector that fails does not hide the others, and scrapes are
// themselves counted.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          promErrorLog{},
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}),
	)
}
