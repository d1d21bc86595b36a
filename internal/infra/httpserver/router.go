package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/evidence-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/checklists"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/report"
	domai "github.com/bryanwahyu/evidence-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/evidence"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/db/memory"
	"github.com/bryanwahyu/evidence-analyzer/internal/middleware"
)

// DefaultMaxUploadBytes is the evidence upload limit when none is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

// Deps are the services behind the HTTP surface. Limiter and Health are
// optional. A nil Analyses falls back to an in-memory repository.
type Deps struct {
	Analysis       *analysis.Service
	Checklists     *checklists.Service
	Reports        *report.Service
	Analyses       analyst.Repository
	MaxUploadBytes int64
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
	Health         map[string]middleware.HealthChecker
}

type Router struct {
	analysis   *analysis.Service
	checklists *checklists.Service
	reports    *report.Service
	analyses   analyst.Repository
	maxUpload  int64
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		analysis:   d.Analysis,
		checklists: d.Checklists,
		reports:    d.Reports,
		analyses:   d.Analyses,
		maxUpload:  d.MaxUploadBytes,
	}
	if r.maxUpload <= 0 {
		r.maxUpload = DefaultMaxUploadBytes
	}
	if r.analyses == nil {
		r.analyses = memory.NewAnalysisRepo()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if d.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(d.Limiter))
	}

	health := middleware.HealthHandler("evidence-analyzer", d.Health)
	mux.Get("/health", health)
	mux.Get("/readyz", health)
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze/document", r.wrap(r.handleAnalyzeDocument))
		rt.Post("/analyze/match", r.wrap(r.handleMatch))
		rt.Post("/analyze/gaps", r.wrap(r.handleGaps))

		rt.Get("/checklists", r.wrap(r.handleListChecklists))
		rt.Get("/checklists/{id}", r.wrap(r.handleGetChecklist))
		rt.Get("/checklists/{id}/progress", r.wrap(r.handleProgress))
		rt.Post("/checklists/{id}/items/{itemId}/status", r.wrap(r.handleUpdateStatus))
		rt.Post("/checklists/{id}/items/{itemId}/documents", r.wrap(r.handleItemDocument))
		rt.Get("/checklists/{id}/items/{itemId}/analysis", r.wrap(r.handleLatestAnalysis))
		rt.Post("/checklists/{id}/documents", r.wrap(r.handleChecklistDocument))

		rt.Get("/report/compliance/{id}", r.wrap(r.handleCompliance))
		rt.Get("/report/gaps/{id}", r.wrap(r.handleGapReport))
		rt.Post("/report/suggestions", r.wrap(r.handleSuggestions))

		rt.Get("/analyses", r.wrap(r.handleAnalysesList))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// requestError carries a client-facing status code
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var reqErr *requestError
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &reqErr):
			writeError(w, reqErr.status, reqErr.msg)
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("document exceeds %d bytes", tooBig.Limit))
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, checklist.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			log.Printf("request error: method=%s path=%s err=%v", req.Method, req.URL.Path, err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// readUpload parses the multipart "document" field within the upload limit.
func (r *Router) readUpload(w http.ResponseWriter, req *http.Request) (checklists.Upload, error) {
	// form fields ride along with the file, allow a little headroom
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+(1<<20))
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return checklists.Upload{}, err
		}
		return checklists.Upload{}, badRequest("invalid multipart form: %v", err)
	}
	file, hdr, err := req.FormFile("document")
	if err != nil {
		return checklists.Upload{}, badRequest("No document uploaded")
	}
	defer file.Close()

	if hdr.Size > r.maxUpload {
		return checklists.Upload{}, &http.MaxBytesError{Limit: r.maxUpload}
	}
	if err := middleware.ValidateFilename(hdr.Filename); err != nil {
		return checklists.Upload{}, badRequest("%v", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return checklists.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	middleware.RecordUpload()
	return checklists.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func pathIDs(req *http.Request) (string, string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateChecklistID(id); err != nil {
		return "", "", badRequest("%v", err)
	}
	itemID := chi.URLParam(req, "itemId")
	if itemID == "" {
		return id, "", nil
	}
	if err := middleware.ValidateItemID(itemID); err != nil {
		return "", "", badRequest("%v", err)
	}
	return id, itemID, nil
}

// isMatchFallback compares the whole result; a model may echo the fallback reasoning text.
func isMatchFallback(res evidence.AnalysisResult) bool {
	return reflect.DeepEqual(res, evidence.MatchFallback())
}

func isGapFallback(res evidence.GapAnalysisResult) bool {
	return reflect.DeepEqual(res, evidence.GapFallback())
}

// POST /api/analyze/document (multipart: document, requirement, hints)
func (r *Router) handleAnalyzeDocument(w http.ResponseWriter, req *http.Request) error {
	up, err := r.readUpload(w, req)
	if err != nil {
		return err
	}
	requirement := middleware.SanitizeString(req.FormValue("requirement"))
	if err := middleware.ValidateRequirement(requirement); err != nil {
		return badRequest("Requirement is required")
	}
	var hints []string
	if raw := req.FormValue("hints"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &hints); err != nil {
			return badRequest("hints must be a JSON array of strings")
		}
	}

	res, err := r.checklists.AnalyzeUpload(req.Context(), up, requirement, middleware.SanitizeHints(hints))
	if err != nil {
		return badRequest("cannot read document: %v", err)
	}
	middleware.RecordMatch(isMatchFallback(res))
	return writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"documentName": up.Filename,
		"analysis":     res,
	})
}

// POST /api/analyze/match
func (r *Router) handleMatch(w http.ResponseWriter, req *http.Request) error {
	var body evidence.DocumentMatchRequest
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	if body.DocumentText == "" || body.Requirement == "" {
		return badRequest("documentText and requirement are required")
	}
	body.Hints = middleware.SanitizeHints(body.Hints)

	res := r.analysis.AnalyzeDocumentMatch(req.Context(), body)
	middleware.RecordMatch(isMatchFallback(res))
	return writeJSON(w, http.StatusOK, res)
}

// POST /api/analyze/gaps
func (r *Router) handleGaps(w http.ResponseWriter, req *http.Request) error {
	var body evidence.GapAnalysisRequest
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	if body.Requirements == nil {
		return badRequest("requirements array is required")
	}
	if body.EvidenceList == nil {
		body.EvidenceList = []evidence.EvidenceRef{}
	}

	res := r.analysis.PerformGapAnalysis(req.Context(), body)
	middleware.RecordGap(isGapFallback(res))
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/checklists
func (r *Router) handleListChecklists(w http.ResponseWriter, req *http.Request) error {
	list, err := r.checklists.List(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/checklists/{id}
func (r *Router) handleGetChecklist(w http.ResponseWriter, req *http.Request) error {
	id, _, err := pathIDs(req)
	if err != nil {
		return err
	}
	c, err := r.checklists.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c)
}

// GET /api/checklists/{id}/progress
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	id, _, err := pathIDs(req)
	if err != nil {
		return err
	}
	p, err := r.checklists.Progress(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// POST /api/checklists/{id}/items/{itemId}/status
// Body: {"evidence": {...}}. The status is always derived from evidence;
// a "status" field sent by the client is ignored.
func (r *Router) handleUpdateStatus(w http.ResponseWriter, req *http.Request) error {
	id, itemID, err := pathIDs(req)
	if err != nil {
		return err
	}
	var body struct {
		Evidence *checklist.Evidence `json:"evidence"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	if ev := body.Evidence; ev != nil {
		if ev.Confidence < 0 || ev.Confidence > 1 {
			return badRequest("evidence confidence must be within [0, 1]")
		}
		ev.DocumentName = middleware.SanitizeString(ev.DocumentName)
	}

	it, err := r.checklists.UpdateItemStatus(req.Context(), id, itemID, body.Evidence)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, it)
}

// POST /api/checklists/{id}/items/{itemId}/documents (multipart: document)
func (r *Router) handleItemDocument(w http.ResponseWriter, req *http.Request) error {
	id, itemID, err := pathIDs(req)
	if err != nil {
		return err
	}
	up, err := r.readUpload(w, req)
	if err != nil {
		return err
	}
	out, err := r.checklists.AnalyzeItemDocument(req.Context(), id, itemID, up)
	if err != nil {
		return err
	}
	middleware.RecordMatch(isMatchFallback(out.Analysis))
	return writeJSON(w, http.StatusOK, out)
}

// GET /api/checklists/{id}/items/{itemId}/analysis
func (r *Router) handleLatestAnalysis(w http.ResponseWriter, req *http.Request) error {
	id, itemID, err := pathIDs(req)
	if err != nil {
		return err
	}
	a, err := r.analyses.LatestByItem(req.Context(), id, itemID)
	if err != nil {
		return err
	}
	if a == nil {
		return checklist.ErrNotFound
	}
	return writeJSON(w, http.StatusOK, a)
}

// POST /api/checklists/{id}/documents (multipart: document)
func (r *Router) handleChecklistDocument(w http.ResponseWriter, req *http.Request) error {
	id, _, err := pathIDs(req)
	if err != nil {
		return err
	}
	up, err := r.readUpload(w, req)
	if err != nil {
		return err
	}
	out, err := r.checklists.AnalyzeChecklistDocument(req.Context(), id, up)
	if err != nil {
		return err
	}
	for _, m := range out.Matches {
		middleware.RecordMatch(isMatchFallback(m.Analysis))
	}
	return writeJSON(w, http.StatusOK, out)
}

// GET /api/report/compliance/{id}
func (r *Router) handleCompliance(w http.ResponseWriter, req *http.Request) error {
	id, _, err := pathIDs(req)
	if err != nil {
		return err
	}
	rep, err := r.reports.Compliance(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// GET /api/report/gaps/{id}
func (r *Router) handleGapReport(w http.ResponseWriter, req *http.Request) error {
	id, _, err := pathIDs(req)
	if err != nil {
		return err
	}
	rep, err := r.reports.GapReport(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// POST /api/report/suggestions
// Body: {"gaps": ["AC-1: ...", ...]}
func (r *Router) handleSuggestions(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Gaps []string `json:"gaps"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, r.reports.Suggestions(body.Gaps))
}

// GET /api/analyses?checklist_id=&page=&page_size=
func (r *Router) handleAnalysesList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	checklistID := q.Get("checklist_id")
	if checklistID != "" {
		if err := middleware.ValidateChecklistID(checklistID); err != nil {
			return badRequest("%v", err)
		}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	list, err := r.analyses.Paginate(req.Context(), checklistID, middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}
