// Package api serves family statistics, scores and trading plans over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"fx-impact-lab/internal/classifier"
	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/metrics"
	"fx-impact-lab/internal/orchestrator"
	"fx-impact-lab/internal/planner"
	"fx-impact-lab/internal/reporting"
	"fx-impact-lab/internal/scoring"
	"fx-impact-lab/internal/storage"
)

// RunTrigger starts an engine run. Implemented by *orchestrator.Orchestrator.
type RunTrigger interface {
	Run(ctx context.Context, req orchestrator.RunRequest) (*orchestrator.RunResult, error)
}

// Options configures a Handler. Stores and the classifier are required.
type Options struct {
	Stats      storage.FamilyStatsStore
	Scores     storage.ScoreStore
	Events     storage.EventStore // optional, enables plans by date
	Groups     planner.GroupSource
	Planner    *planner.Planner
	Runner     RunTrigger // optional, enables POST /runs
	Classifier *classifier.Classifier

	ScoreHorizon int
	Logger       *logger.Logger
}

// Handler handles the read API and plan requests.
type Handler struct {
	stats        storage.FamilyStatsStore
	scores       storage.ScoreStore
	events       storage.EventStore
	groups       planner.GroupSource
	planner      *planner.Planner
	runner       RunTrigger
	classifier   *classifier.Classifier
	scoreHorizon int
	log          *logger.Logger
}

// NewHandler creates a new handler.
func NewHandler(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		stats:        opts.Stats,
		scores:       opts.Scores,
		events:       opts.Events,
		groups:       opts.Groups,
		planner:      opts.Planner,
		runner:       opts.Runner,
		classifier:   opts.Classifier,
		scoreHorizon: opts.ScoreHorizon,
		log:          log.With(logger.String("component", "api")),
	}
}

// Routes returns the /api/v1 routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/families", h.GetFamilies)
	r.Get("/stats", h.GetStats)
	r.Get("/stats/{family}", h.GetGroupStats)
	r.Get("/scores", h.GetScores)
	r.Post("/plan", h.CreatePlan)
	r.Post("/runs", h.CreateRun)
	return r
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// FamilyResponse is one row of the family table.
type FamilyResponse struct {
	Family      string  `json:"family"`
	Pattern     string  `json:"pattern"`
	Importance  int     `json:"importance"`
	Sensitivity float64 `json:"sensitivity"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
}

// GetFamilies handles GET /api/v1/families.
func (h *Handler) GetFamilies(w http.ResponseWriter, r *http.Request) {
	infos := h.classifier.Families()
	out := make([]FamilyResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, FamilyResponse{
			Family:      info.Family.String(),
			Pattern:     info.Pattern,
			Importance:  info.Importance,
			Sensitivity: info.Sensitivity,
			Unit:        info.Unit,
			Description: info.Description,
		})
	}
	render.JSON(w, r, out)
}

// statsFilter holds the optional query filters of the stats and scores endpoints.
type statsFilter struct {
	family  string
	country *string // nil keeps every country, "" selects the all-country groups
	horizon int     // 0 keeps every horizon
}

func parseFilter(r *http.Request) (statsFilter, error) {
	q := r.URL.Query()
	f := statsFilter{family: q.Get("family")}
	if q.Has("country") {
		c := normalizeCountry(q.Get("country"))
		f.country = &c
	}
	if v := q.Get("horizon"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return f, errors.New("horizon must be a positive integer")
		}
		f.horizon = h
	}
	return f, nil
}

func (f statsFilter) match(family domain.Family, country string, horizon int) bool {
	if f.family != "" && !strings.EqualFold(f.family, family.String()) {
		return false
	}
	if f.country != nil && *f.country != country {
		return false
	}
	return f.horizon == 0 || f.horizon == horizon
}

// GetStats handles GET /api/v1/stats?family=&country=&horizon=.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.renderError(w, r, errBadRequest(err.Error()))
		return
	}

	all, err := h.stats.GetAll(r.Context())
	if err != nil {
		h.fail(w, r, "get stats", err)
		return
	}
	selected := make([]*domain.FamilyStats, 0, len(all))
	for _, s := range all {
		if filter.match(s.Family, s.Country, s.HorizonMinutes) {
			selected = append(selected, s)
		}
	}
	metrics.SortStats(selected)
	render.JSON(w, r, reporting.StatsRows(selected))
}

// GetGroupStats handles GET /api/v1/stats/{family}?country=&horizon=.
// The group is served from the cache or recomputed from stored reactions.
func (h *Handler) GetGroupStats(w http.ResponseWriter, r *http.Request) {
	if h.groups == nil {
		h.renderError(w, r, errUnavailable("group statistics are not configured"))
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "family"))
	if err != nil || name == "" {
		h.renderError(w, r, errBadRequest("invalid family"))
		return
	}
	family, ok := h.lookupFamily(name)
	if !ok {
		h.renderError(w, r, errNotFound("unknown family "+name))
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.renderError(w, r, errBadRequest(err.Error()))
		return
	}

	key := domain.StatsKey{Family: family, HorizonMinutes: h.scoreHorizon}
	if filter.country != nil {
		key.Country = *filter.country
	}
	if filter.horizon > 0 {
		key.HorizonMinutes = filter.horizon
	}

	stats, err := h.groups.ComputeGroup(r.Context(), key)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoReactionData) {
			h.renderError(w, r, errUnavailable(err.Error()))
			return
		}
		h.fail(w, r, "compute group", err)
		return
	}
	render.JSON(w, r, reporting.StatsRows([]*domain.FamilyStats{stats})[0])
}

// GetScores handles GET /api/v1/scores?family=&country=&horizon=.
// Scores are returned ranked by composite descending.
func (h *Handler) GetScores(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.renderError(w, r, errBadRequest(err.Error()))
		return
	}

	all, err := h.scores.GetAll(r.Context())
	if err != nil {
		h.fail(w, r, "get scores", err)
		return
	}
	selected := make([]*domain.Score, 0, len(all))
	for _, s := range all {
		if filter.match(s.Family, s.Country, s.HorizonMinutes) {
			selected = append(selected, s)
		}
	}
	scoring.Rank(selected)
	render.JSON(w, r, reporting.ScoreRows(selected))
}

// PlanEvent is one event of a plan request.
type PlanEvent struct {
	Title    string   `json:"title"`
	Country  string   `json:"country"`
	Time     string   `json:"time"` // RFC3339
	Actual   *float64 `json:"actual"`
	Forecast *float64 `json:"forecast"`
	Previous *float64 `json:"previous"`
	Surprise *float64 `json:"surprise"` // overrides actual minus forecast

	at time.Time // Time parsed by Bind
}

// PlanRequest is the body of POST /api/v1/plan.
// Without events, the stored events released on date are planned.
type PlanRequest struct {
	Date   string      `json:"date"` // YYYY-MM-DD
	Events []PlanEvent `json:"events"`
}

// Bind implements render.Binder.
func (p *PlanRequest) Bind(_ *http.Request) error {
	if p.Date == "" && len(p.Events) == 0 {
		return errors.New("date or events are required")
	}
	for i := range p.Events {
		e := &p.Events[i]
		if strings.TrimSpace(e.Title) == "" {
			return errors.New("events[" + strconv.Itoa(i) + "].title is required")
		}
		at, err := time.Parse(time.RFC3339, e.Time)
		if err != nil {
			return errors.New("events[" + strconv.Itoa(i) + "].time must be RFC3339")
		}
		e.at = at.UTC()
	}
	return nil
}

// CreatePlan handles POST /api/v1/plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		h.renderError(w, r, errUnavailable("planner is not configured"))
		return
	}
	req := &PlanRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderError(w, r, errBadRequest(err.Error()))
		return
	}

	inputs, date, apiErr := h.planInputs(r.Context(), req)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}
	if len(inputs) == 0 {
		h.renderError(w, r, errNotFound("no events on "+date.Format(time.DateOnly)))
		return
	}

	plan, err := h.planner.Plan(r.Context(), inputs)
	if err != nil {
		h.fail(w, r, "plan", err)
		return
	}
	if plan.Prediction == nil {
		h.renderError(w, r, errUnprocessable(strings.Join(plan.Warnings(), "; ")))
		return
	}

	doc := reporting.NewPlanDocument(date, plan.Prediction)
	doc.Warnings = plan.Warnings()
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, doc)
}

func (h *Handler) planInputs(ctx context.Context, req *PlanRequest) ([]planner.Input, time.Time, *APIError) {
	var date time.Time
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			return nil, date, errBadRequest("date must be YYYY-MM-DD")
		}
		date = d
	}

	if len(req.Events) == 0 {
		if h.events == nil {
			return nil, date, errUnavailable("event store is not configured")
		}
		events, err := planner.EventsForDate(ctx, h.events, date)
		if err != nil {
			h.log.Error("load events", logger.Err(err))
			return nil, date, errInternal()
		}
		return planner.Inputs(events), date, nil
	}

	inputs := make([]planner.Input, 0, len(req.Events))
	for i, pe := range req.Events {
		at := pe.at
		if i == 0 && req.Date == "" {
			date = at
		}
		country := normalizeCountry(pe.Country)
		inputs = append(inputs, planner.Input{
			Event: &domain.Event{
				EventID:     "req-" + strconv.Itoa(i+1),
				TimestampMs: at.UnixMilli(),
				Country:     country,
				Title:       pe.Title,
				Actual:      pe.Actual,
				Forecast:    pe.Forecast,
				Previous:    pe.Previous,
			},
			Surprise: pe.Surprise,
		})
	}
	return inputs, date, nil
}

// RunRequest is the body of POST /api/v1/runs. Empty bounds use the lookback.
type RunRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Bind implements render.Binder.
func (req *RunRequest) Bind(_ *http.Request) error {
	if req.Start != nil && req.End != nil && req.Start.After(*req.End) {
		return errors.New("start must not be after end")
	}
	return nil
}

// RunResponse summarizes a completed run.
type RunResponse struct {
	RunID            string         `json:"run_id"`
	ParamsHash       string         `json:"params_hash"`
	Start            time.Time      `json:"start"`
	End              time.Time      `json:"end"`
	DurationMs       int64          `json:"duration_ms"`
	EventsLoaded     int            `json:"events_loaded"`
	EventsAnalyzed   int            `json:"events_analyzed"`
	Reactions        int            `json:"reactions"`
	Groups           int            `json:"groups"`
	SufficientGroups int            `json:"sufficient_groups"`
	Skips            map[string]int `json:"skips"`
}

// CreateRun handles POST /api/v1/runs.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.renderError(w, r, errUnavailable("runs are not enabled"))
		return
	}
	req := &RunRequest{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, req); err != nil {
			h.renderError(w, r, errBadRequest(err.Error()))
			return
		}
	}

	var runReq orchestrator.RunRequest
	if req.Start != nil {
		runReq.Start = *req.Start
	}
	if req.End != nil {
		runReq.End = *req.End
	}

	result, err := h.runner.Run(r.Context(), runReq)
	if errors.Is(err, orchestrator.ErrRunInProgress) {
		h.renderError(w, r, errConflict(err.Error()))
		return
	}
	if err != nil {
		h.fail(w, r, "run", err)
		return
	}

	skips := make(map[string]int, len(result.Skips.Counts))
	for reason, n := range result.Skips.Counts {
		skips[string(reason)] = n
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RunResponse{
		RunID:            result.RunID,
		ParamsHash:       result.ParamsHash,
		Start:            result.Start.UTC(),
		End:              result.End.UTC(),
		DurationMs:       result.Duration.Milliseconds(),
		EventsLoaded:     result.EventsLoaded,
		EventsAnalyzed:   result.EventsAnalyzed,
		Reactions:        len(result.Reactions),
		Groups:           len(result.Stats),
		SufficientGroups: result.SufficientGroups(),
		Skips:            skips,
	})
}

// lookupFamily resolves a family name case-insensitively against the table.
func (h *Handler) lookupFamily(name string) (domain.Family, bool) {
	for _, info := range h.classifier.Families() {
		if strings.EqualFold(info.Family.String(), name) {
			return info.Family, true
		}
	}
	return "", false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error("request failed",
		logger.String("op", op),
		logger.String("request_id", middleware.GetReqID(r.Context())),
		logger.Err(err),
	)
	h.renderError(w, r, errInternal())
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, e *APIError) {
	if err := render.Render(w, r, e); err != nil {
		h.log.Error("render error", logger.Err(err))
	}
}

// normalizeCountry maps "ALL" to the all-country group and uppercases codes.
func normalizeCountry(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "ALL" {
		return ""
	}
	return c
}
