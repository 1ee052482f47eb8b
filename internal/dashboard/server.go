// Package dashboard serves a small JSON API over a live brokerage client:
// current quote, raw positions, and reconstructed put credit spreads.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/putspread/schwab"
	"github.com/eddiefleurent/putspread/spread"
	"github.com/eddiefleurent/putspread/util"
)

type Server struct {
	router     *chi.Mux
	server     *http.Server
	api        schwab.API
	logger     *logrus.Logger
	port       int
	authToken  string
	underlying string
}

type Config struct {
	Port       int
	AuthToken  string
	Underlying string // default underlying for /api/spreads
}

// SpreadView is the wire shape for one reconstructed spread.
type SpreadView struct {
	Underlying  string    `json:"underlying"`
	Expiry      time.Time `json:"expiry"`
	ShortStrike float64   `json:"short_strike"`
	LongStrike  float64   `json:"long_strike"`
	Width       float64   `json:"width"`
	Credit      float64   `json:"credit"`
	Quantity    float64   `json:"quantity"`
	MaxLoss     float64   `json:"max_loss"`
}

// QuoteView is the wire shape for a quote, with a derived mid price.
type QuoteView struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Mid    float64 `json:"mid"`
	Volume int64   `json:"volume"`
}

func NewServer(cfg Config, api schwab.API, logger *logrus.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		api:        api,
		logger:     logger,
		port:       cfg.Port,
		authToken:  cfg.AuthToken,
		underlying: cfg.Underlying,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/api/quote/{symbol}", s.handleGetQuote)
	s.router.Get("/api/positions", s.handleGetPositions)
	s.router.Get("/api/spreads", s.handleGetSpreads)
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := s.api.GetQuote(r.Context(), symbol)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get quote")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, QuoteView{
		Symbol: quote.Symbol,
		Last:   quote.Last,
		Bid:    quote.Bid,
		Ask:    quote.Ask,
		Mid:    util.Mid(quote.Bid, quote.Ask),
		Volume: quote.Volume,
	})
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.api.AllPositions(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to get positions")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, positions)
}

func (s *Server) handleGetSpreads(w http.ResponseWriter, r *http.Request) {
	underlying := r.URL.Query().Get("underlying")
	if underlying == "" {
		underlying = s.underlying
	}
	if underlying == "" {
		http.Error(w, "underlying is required", http.StatusBadRequest)
		return
	}

	spreads, err := s.api.GetSpreads(r.Context(), underlying)
	if err != nil {
		s.logger.WithError(err).Error("Failed to reconstruct spreads")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, toSpreadViews(spreads))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, health)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func toSpreadViews(spreads []spread.Spread) []SpreadView {
	views := make([]SpreadView, 0, len(spreads))
	for _, sp := range spreads {
		views = append(views, SpreadView{
			Underlying:  sp.Underlying,
			Expiry:      sp.Expiry,
			ShortStrike: sp.ShortStrike,
			LongStrike:  sp.LongStrike,
			Width:       sp.Width(),
			Credit:      sp.Credit,
			Quantity:    sp.Quantity,
			MaxLoss:     sp.MaxLoss,
		})
	}
	return views
}
