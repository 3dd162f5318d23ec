// Package server implements the HTTP API of the KRIGE suggestion service:
// a registry of fitted surrogate models and a suggest endpoint that runs
// the acquisition policies against them.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/KRIGE/internal/config"
	"github.com/copyleftdev/KRIGE/internal/logging"
	"github.com/copyleftdev/KRIGE/internal/optimization"
	"github.com/copyleftdev/KRIGE/internal/optimization/kernels"
	"github.com/copyleftdev/KRIGE/internal/optimization/policy"
	"github.com/copyleftdev/KRIGE/internal/optimization/surrogate"
)

// Logger defines the logging interface used by the server, keeping the
// implementation swappable.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// modelEntry is a fitted surrogate model held in the registry.
type modelEntry struct {
	ID      string
	Created time.Time
	GP      *surrogate.GP
}

// Server manages fitted surrogate models and serves suggestions. The model
// registry is safe for concurrent access; individual policies are built per
// request and never shared.
type Server struct {
	cfg    *config.Config
	logger Logger
	zlog   *zap.Logger

	models   map[string]*modelEntry
	modelsMu sync.RWMutex
}

// NewServer creates a server with the given config and loggers. zlog feeds
// the numeric layers (GP, policies) and may be nil.
func NewServer(cfg *config.Config, logger Logger, zlog *zap.Logger) *Server {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		zlog:   zlog,
		models: make(map[string]*modelEntry),
	}
}

// RegisterRoutes mounts the API on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/models", s.handleCreateModel)
		r.Get("/models/{id}", s.handleGetModel)
		r.Delete("/models/{id}", s.handleDeleteModel)
		r.Post("/models/{id}/predict", s.handlePredict)
		r.Post("/suggest", s.handleSuggest)
	})
}

// Close releases server resources.
func (s *Server) Close() error {
	s.modelsMu.Lock()
	defer s.modelsMu.Unlock()
	s.models = make(map[string]*modelEntry)
	return nil
}

type createModelRequest struct {
	X              [][]float64  `json:"x"`
	Y              []float64    `json:"y"`
	Bounds         [][2]float64 `json:"bounds,omitempty"`
	Kernel         string       `json:"kernel,omitempty"`
	LengthScale    float64      `json:"length_scale,omitempty"`
	SignalVariance float64      `json:"signal_variance,omitempty"`
	NoiseVariance  *float64     `json:"noise_variance,omitempty"`
}

// handleCreateModel fits a Gaussian Process to the posted observations and
// stores it under a fresh id.
func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if len(req.X) == 0 || len(req.Y) == 0 {
		s.respondError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	if len(req.X) != len(req.Y) {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("x has %d samples but y has %d", len(req.X), len(req.Y)))
		return
	}

	nFeatures := len(req.X[0])
	X := mat.NewDense(len(req.X), nFeatures, nil)
	for i, row := range req.X {
		if len(row) != nFeatures {
			s.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("row %d has %d features, expected %d", i, len(row), nFeatures))
			return
		}
		X.SetRow(i, row)
	}
	y := mat.NewVecDense(len(req.Y), req.Y)

	lengthScale, signalVar := req.LengthScale, req.SignalVariance
	if lengthScale == 0 {
		lengthScale = 1.0
	}
	if signalVar == 0 {
		signalVar = 1.0
	}
	kernel, err := kernels.New(req.Kernel, lengthScale, signalVar)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	noiseVar := s.cfg.Optimization.NoiseVariance
	if req.NoiseVariance != nil {
		noiseVar = *req.NoiseVariance
	}

	opts := []surrogate.Option{surrogate.WithLogger(s.zlog)}
	if s.cfg.Optimization.Seed != 0 {
		opts = append(opts, surrogate.WithSeed(s.cfg.Optimization.Seed))
	}
	gp := surrogate.NewGP(kernel, noiseVar, opts...)
	if err := gp.Fit(X, y); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Bounds != nil {
		if err := gp.SetBounds(req.Bounds); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	id := fmt.Sprintf("gp_%d", time.Now().UnixNano())
	entry := &modelEntry{ID: id, Created: time.Now(), GP: gp}

	s.modelsMu.Lock()
	s.models[id] = entry
	s.modelsMu.Unlock()

	s.logger.Info("Model fitted", map[string]interface{}{
		"model_id": id,
		"samples":  gp.NumSamples(),
		"features": gp.NumFeatures(),
		"kernel":   kernel.Name(),
	})

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"model_id": id,
		"samples":  gp.NumSamples(),
		"features": gp.NumFeatures(),
		"kernel":   kernel.Name(),
		"bounds":   gp.Bounds(),
	})
}

// handleGetModel returns metadata for a fitted model.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "model not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"model_id": entry.ID,
		"created":  entry.Created.Format(time.RFC3339),
		"samples":  entry.GP.NumSamples(),
		"features": entry.GP.NumFeatures(),
		"kernel":   entry.GP.Kernel().Name(),
		"bounds":   entry.GP.Bounds(),
	})
}

// handleDeleteModel removes a model from the registry.
func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.modelsMu.Lock()
	_, ok := s.models[id]
	delete(s.models, id)
	s.modelsMu.Unlock()

	if !ok {
		s.respondError(w, http.StatusNotFound, "model not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type predictRequest struct {
	X [][]float64 `json:"x"`
}

// handlePredict returns posterior mean and standard deviation at the posted
// points.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "model not found")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.X) == 0 {
		s.respondError(w, http.StatusBadRequest, "x is required")
		return
	}

	nFeatures := entry.GP.NumFeatures()
	X := mat.NewDense(len(req.X), nFeatures, nil)
	for i, row := range req.X {
		if len(row) != nFeatures {
			s.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("row %d has %d features, expected %d", i, len(row), nFeatures))
			return
		}
		X.SetRow(i, row)
	}

	mean, std, err := entry.GP.Predict(X)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	means := make([]float64, mean.Len())
	stds := make([]float64, std.Len())
	for i := range means {
		means[i] = mean.AtVec(i)
		stds[i] = std.AtVec(i)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"mean": means,
		"std":  stds,
	})
}

type suggestRequest struct {
	ModelID  string   `json:"model_id"`
	Policy   string   `json:"policy"`
	Target   *float64 `json:"target,omitempty"`
	Ybest    *float64 `json:"ybest,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Restarts int      `json:"n_restarts,omitempty"`
	Samples  int      `json:"n_samples,omitempty"`
}

// handleSuggest builds the requested acquisition policy and returns the
// next point to sample.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	entry, ok := s.lookup(req.ModelID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "model not found")
		return
	}

	p, err := s.buildPolicy(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	restarts := req.Restarts
	if restarts <= 0 {
		restarts = s.cfg.Optimization.Restarts
	}

	x, err := p.Suggest(entry.GP, restarts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, optimization.ErrTargetNotSet) ||
			errors.Is(err, optimization.ErrYbestNotSet) ||
			errors.Is(err, optimization.ErrBatchSize) {
			status = http.StatusBadRequest
		}
		logging.FromContext(r.Context()).WithError(err).Error("Suggestion failed",
			map[string]interface{}{
				"model_id": req.ModelID,
				"policy":   req.Policy,
			})
		s.respondError(w, status, err.Error())
		return
	}

	s.logger.Info("Suggestion computed", map[string]interface{}{
		"model_id": req.ModelID,
		"policy":   req.Policy,
	})
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"model_id": req.ModelID,
		"policy":   req.Policy,
		"x":        x,
	})
}

// buildPolicy maps a policy name and its parameters onto a policy instance,
// validating the per-variant preconditions up front.
func (s *Server) buildPolicy(req *suggestRequest) (policy.Policy, error) {
	opts := []policy.Option{policy.WithLogger(s.zlog)}
	if s.cfg.Optimization.Seed != 0 {
		opts = append(opts, policy.WithRestarter(
			policy.NewRestarter(policy.WithSeed(s.cfg.Optimization.Seed))))
	}

	samples := req.Samples
	if samples <= 0 {
		samples = s.cfg.Optimization.Samples
	}

	var p policy.Policy
	switch req.Policy {
	case "max_variance":
		p = policy.NewMaxVariance(opts...)

	case "max_variance_of_objective":
		if req.Target == nil {
			return nil, fmt.Errorf("policy %q requires target", req.Policy)
		}
		p = policy.NewMaxVarianceOfObjective(
			policy.DistanceToTarget(*req.Target), samples, opts...)

	case "exploitation_target":
		if req.Target == nil {
			return nil, fmt.Errorf("policy %q requires target", req.Policy)
		}
		et := policy.NewExploitationTarget(opts...)
		et.SetTarget(*req.Target)
		p = et

	case "expected_improvement":
		if req.Target == nil || req.Ybest == nil {
			return nil, fmt.Errorf("policy %q requires target and ybest", req.Policy)
		}
		ei := policy.NewExpectedImprovement(samples, opts...)
		ei.SetTarget(*req.Target)
		ei.SetYbest(*req.Ybest)
		p = ei

	default:
		return nil, fmt.Errorf("unknown policy %q", req.Policy)
	}

	if req.Weight != nil {
		if ws, ok := p.(interface{ SetWeight(float64) }); ok {
			ws.SetWeight(*req.Weight)
		}
	}
	return p, nil
}

func (s *Server) lookup(id string) (*modelEntry, bool) {
	if id == "" {
		return nil, false
	}
	s.modelsMu.RLock()
	defer s.modelsMu.RUnlock()
	entry, ok := s.models[id]
	return entry, ok
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		s.logger.Error("Request error", map[string]interface{}{
			"status":  status,
			"message": message,
		})
	}
	s.respondJSON(w, status, map[string]string{"error": message})
}
