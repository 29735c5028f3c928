package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/itohio/goaqim/pkg/metrics"
	"github.com/itohio/goaqim/pkg/ring"
	"github.com/itohio/goaqim/pkg/sample"
	"github.com/itohio/goaqim/pkg/series"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the stored samples over HTTP.
type Server struct {
	monitor *Monitor
	metrics *metrics.Registry
	log     *slog.Logger
	router  *mux.Router
}

// NewServer creates the API server of m. A nil registry uses the monitor's.
func NewServer(m *Monitor, reg *metrics.Registry) *Server {
	if reg == nil {
		reg = m.metrics
	}
	s := &Server{
		monitor: m,
		metrics: reg,
		log:     m.log,
		router:  mux.NewRouter(),
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/samples/latest", s.latest).Methods(http.MethodGet)
	api.HandleFunc("/samples", s.samples).Methods(http.MethodGet)
	api.HandleFunc("/series", s.series).Methods(http.MethodGet)
	api.HandleFunc("/store", s.store).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", reg.Handler()).Methods(http.MethodGet)

	s.router.Use(s.metricsMiddleware)
	return s
}

// Handler returns the router wrapped with CORS and access logging.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)
	access := slog.NewLogLogger(s.log.Handler(), slog.LevelInfo).Writer()
	return handlers.LoggingHandler(access, cors(s.router))
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// SampleJSON is the API representation of a sample.
type SampleJSON struct {
	Timestamp    time.Time `json:"timestamp"`
	PM1          float32   `json:"pm1"`
	PM25         float32   `json:"pm25"`
	PM10         float32   `json:"pm10"`
	Pressure     float32   `json:"pressure"`
	TemperatureF int16     `json:"temperature_f"`
	TemperatureC float32   `json:"temperature_c"`
	Humidity     uint8     `json:"humidity"`
	Count        uint8     `json:"count"`
	MAE          float32   `json:"mae"`
	AQI          int16     `json:"aqi"`
	Level        string    `json:"level"`
	Color        string    `json:"color"`
	Valid        bool      `json:"valid"`
}

func toJSON(s sample.Sample) SampleJSON {
	return SampleJSON{
		Timestamp:    s.Timestamp,
		PM1:          s.PM1,
		PM25:         s.PM25,
		PM10:         s.PM10,
		Pressure:     s.Pressure,
		TemperatureF: s.TemperatureF,
		TemperatureC: s.TemperatureC(),
		Humidity:     s.Humidity,
		Count:        s.Count,
		MAE:          s.MAE,
		AQI:          s.AQI,
		Level:        s.Level.String(),
		Color:        s.Level.Color(),
		Valid:        s.Valid,
	}
}

// SeriesJSON is the API representation of a series. Empty buckets are null.
type SeriesJSON struct {
	Period int64    `json:"period_seconds"`
	Filled int      `json:"filled"`
	Min    int16    `json:"min"`
	Max    int16    `json:"max"`
	Values []*int16 `json:"values"`
}

// StoreJSON is the API representation of the store layout.
type StoreJSON struct {
	RecordSize      int    `json:"record_size"`
	Start           uint32 `json:"start"`
	Length          uint32 `json:"length"`
	SectorSize      uint32 `json:"sector_size"`
	Sectors         int    `json:"sectors"`
	NominalCapacity int    `json:"nominal_capacity"`
	Scanned         bool   `json:"scanned"`
	Empty           bool   `json:"empty"`
	First           uint32 `json:"first"`
	Last            uint32 `json:"last"`
	Count           int    `json:"count"`
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	smp, err := s.monitor.Latest()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, toJSON(smp))
}

func (s *Server) samples(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	points, err := queryInt(r, "points")
	if err != nil {
		http.Error(w, "invalid points", http.StatusBadRequest)
		return
	}

	samples, err := s.monitor.Samples(limit)
	if err != nil && len(samples) == 0 {
		s.fail(w, err)
		return
	}
	if err != nil {
		s.log.Warn("sample listing truncated", "returned", len(samples), "err", err)
	}

	samples = sample.DownsampleSamples(nil, samples, points)
	out := make([]SampleJSON, len(samples))
	for i, smp := range samples {
		out[i] = toJSON(smp)
	}
	s.writeJSON(w, out)
}

func (s *Server) series(w http.ResponseWriter, r *http.Request) {
	length, err := queryInt(r, "length")
	if err != nil || length > MaxSeriesLength {
		http.Error(w, "invalid length", http.StatusBadRequest)
		return
	}
	var period time.Duration
	if v := r.URL.Query().Get("period"); v != "" {
		if period, err = time.ParseDuration(v); err != nil || period < time.Minute {
			http.Error(w, "invalid period", http.StatusBadRequest)
			return
		}
	}

	chart, filled := s.monitor.Series(length, period)
	out := SeriesJSON{
		Period: int64(chart.Period() / time.Second),
		Filled: filled,
		Min:    chart.Min(),
		Max:    chart.Max(),
		Values: make([]*int16, chart.Len()),
	}
	for i, v := range chart.Values() {
		if v != series.NoData {
			out.Values[i] = &v
		}
	}
	s.writeJSON(w, out)
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) {
	info := s.monitor.Info()
	s.writeJSON(w, StoreJSON(info))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"scanned": s.monitor.Info().Scanned,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ring.ErrNoSample):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ring.ErrNotScanned):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("request failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

// metricsMiddleware records request counts and durations per route template.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapper.statusCode), time.Since(start))
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
