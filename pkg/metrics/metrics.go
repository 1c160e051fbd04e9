// Package metrics exposes Prometheus metrics for the generation pipeline and
// an optional HTTP exporter to scrape them while a long run is in progress.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/synthgen/pkg/logging"
)

// Discard reasons recorded on the images_discarded_total counter
const (
	ReasonNoObjects     = "no_objects"
	ReasonRenderFailed  = "render_failed"
	ReasonNoAnnotations = "no_annotations"
	ReasonWriteFailed   = "write_failed"
)

// Generation tracks pipeline progress. All methods are safe on a nil
// receiver so callers can run without metrics.
type Generation struct {
	imagesAttempted    prometheus.Counter
	imagesCommitted    *prometheus.CounterVec
	imagesDiscarded    *prometheus.CounterVec
	objectsPlaced      prometheus.Counter
	annotationsWritten prometheus.Counter
	renderSeconds      prometheus.Histogram
}

// NewGeneration creates and registers the generation metrics
func NewGeneration(reg prometheus.Registerer) *Generation {
	g := &Generation{
		imagesAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synthgen_images_attempted_total",
			Help: "Image generation attempts, committed or not",
		}),
		imagesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synthgen_images_committed_total",
			Help: "Images committed to the dataset by split",
		}, []string{"split"}),
		imagesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synthgen_images_discarded_total",
			Help: "Image attempts discarded by reason",
		}, []string{"reason"}),
		objectsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synthgen_objects_placed_total",
			Help: "Objects successfully placed across all scenes",
		}),
		annotationsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synthgen_annotations_written_total",
			Help: "Annotation lines written to label files",
		}),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synthgen_render_duration_seconds",
			Help:    "Wall time of backend render calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	reg.MustRegister(
		g.imagesAttempted, g.imagesCommitted, g.imagesDiscarded,
		g.objectsPlaced, g.annotationsWritten, g.renderSeconds,
	)
	return g
}

// ImageAttempted records one generation attempt
func (g *Generation) ImageAttempted() {
	if g == nil {
		return
	}
	g.imagesAttempted.Inc()
}

// ImageCommitted records a committed image for a split
func (g *Generation) ImageCommitted(split string) {
	if g == nil {
		return
	}
	g.imagesCommitted.WithLabelValues(split).Inc()
}

// ImageDiscarded records a discarded attempt with its reason
func (g *Generation) ImageDiscarded(reason string) {
	if g == nil {
		return
	}
	g.imagesDiscarded.WithLabelValues(reason).Inc()
}

// ObjectsPlaced records placed object count for one scene
func (g *Generation) ObjectsPlaced(n int) {
	if g == nil {
		return
	}
	g.objectsPlaced.Add(float64(n))
}

// AnnotationsWritten records written annotation lines for one image
func (g *Generation) AnnotationsWritten(n int) {
	if g == nil {
		return
	}
	g.annotationsWritten.Add(float64(n))
}

// ObserveRender records the duration of one render call
func (g *Generation) ObserveRender(d time.Duration) {
	if g == nil {
		return
	}
	g.renderSeconds.Observe(d.Seconds())
}

// Handler returns an HTTP handler serving /metrics and /health for the
// given registry
func Handler(reg *prometheus.Registry) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")
	return router
}

// Serve starts the metrics exporter in the background. The returned server
// should be Closed when generation finishes.
func Serve(port string, reg *prometheus.Registry, log *logging.Logger) *http.Server {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      Handler(reg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("Metrics server listening on :%s", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	return srv
}
