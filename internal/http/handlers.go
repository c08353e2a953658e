package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tracker/internal/cache"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/nlp"
	"tracker/internal/receipt"
	"tracker/internal/store"
)

const readyTimeout = 2 * time.Second

const msgParseFailed = "Failed to parse text."

type CategoriesResponse struct {
	Categories    []CategoryDTO `json:"categories"`
	Uncategorized CategoryDTO   `json:"uncategorized"`
}

type CacheStatsDTO struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

type MetricsDTO struct {
	TotalRequests      int64         `json:"totalRequests"`
	AvgResponseMs      float64       `json:"avgResponseMs"`
	RateLimited        int64         `json:"rateLimited"`
	RateLimitClients   int64         `json:"rateLimitClients"`
	SuspiciousRequests int64         `json:"suspiciousRequests"`
	InvalidIPAttempts  int64         `json:"invalidIpAttempts"`
	SectionsCache      CacheStatsDTO `json:"sectionsCache"`
	FlatCache          CacheStatsDTO `json:"flatCache"`
	StoreVersion       uint64        `json:"storeVersion"`
	Items              int           `json:"items"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	OK(StatusDTO{Status: "ok", App: s.cfg.AppName, Version: s.cfg.AppVersion, Locale: s.cfg.DefaultLocale}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ServiceUnavailableError("Database unavailable").Write(w)
			return
		}
	}
	OK(StatusDTO{Status: "ready"}).Write(w)
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	case http.MethodDelete:
		s.handleClearExpenses(w, r)
	default:
		MethodNotAllowedError("GET, POST, DELETE").Write(w)
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query(), s.cfg.PageSize, s.cfg.MaxPageSize)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.store.Refresh(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	state := s.store.Snapshot()
	now := s.now()
	currency := s.cfg.DefaultCurrency
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Listing expenses",
		applog.FieldOperation, applog.OpList,
		applog.FieldView, params.View,
		applog.FieldCount, len(state.Items),
		applog.FieldStoreVersion, state.Version)

	switch params.View {
	case ViewSections:
		sections := s.sectionsCache.GetOrCompute(viewCacheKey(state.Version, now), func() []SectionDTO {
			return toSectionDTOs(core.GroupByDate(state.Items, now), currency)
		})
		OK(SectionsResponse{Sections: sections, Version: state.Version}).Write(w)

	case ViewFlat:
		flat := s.flatCache.GetOrCompute(viewCacheKey(state.Version, now), func() FlatResponse {
			return toFlatResponse(core.FlattenForList(state.Items, now), currency, state.Version)
		})
		OK(flat).Write(w)

	default:
		total := len(state.Items)
		start := min(params.Offset, total)
		end := min(start+params.Limit, total)
		OK(ListResponse{
			Items:   toExpenseDTOs(state.Items[start:end], currency),
			Total:   total,
			Limit:   params.Limit,
			Offset:  params.Offset,
			Version: state.Version,
		}).Write(w)
	}
}

// viewCacheKey changes with the data and with the local day, since
// "Today" and "Yesterday" labels move at midnight.
func viewCacheKey(version uint64, now time.Time) string {
	return fmt.Sprintf("%d|%s|%s", version, now.Format(time.DateOnly), now.Location())
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeBodyError(w, err)
		return
	}

	categoryID, err := p.OptionalInt("categoryId")
	if err != nil {
		ValidationErrorResponse(&core.ValidationError{
			Field: "categoryId", Title: "Unknown Category",
			Message: "Please select one of the listed categories.", Err: core.ErrUnknownCategory,
		}).Write(w)
		return
	}

	draft := core.Draft{
		Amount:     p.Get("amount"),
		Title:      p.Get("title"),
		Date:       p.Get("date"),
		CategoryID: categoryID,
	}
	expense, err := draft.ToNewExpense(s.now())
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			ValidationErrorResponse(ve).Write(w)
			return
		}
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.store.Add(ctx, expense)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogExpenseCreated(ctx, created.ID, created.Title, created.Amount.Cents, created.CategoryID)
	Created(toExpenseDTO(created, s.cfg.DefaultCurrency)).Write(w)
}

func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expenses cleared", applog.FieldOperation, applog.OpClear)
	NoContent().Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := s.store.Refresh(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	summary := core.Summarize(s.store.Snapshot().Items, s.now())
	OK(toSummaryDTO(summary, s.cfg.DefaultCurrency, s.cfg.DefaultLocale)).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	cats := core.Categories()
	out := CategoriesResponse{
		Categories:    make([]CategoryDTO, 0, len(cats)),
		Uncategorized: toCategoryDTO(core.Uncategorized),
	}
	for _, c := range cats {
		out.Categories = append(out.Categories, toCategoryDTO(c))
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	OK(out).Write(w)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeBodyError(w, err)
		return
	}

	text, _ := p.Value("text")
	draft, err := s.parser.ParseValue(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, nlp.ErrParseFailed):
		applog.FromContext(ctx).WarnContext(ctx, "Text parse failed", applog.FieldOperation, applog.OpParse)
		UnprocessableEntityError(msgParseFailed).Write(w)
		return
	case ctx.Err() != nil:
		ServiceUnavailableError("Request canceled").Write(w)
		return
	default:
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Text parse error", err, applog.OpParse, nil)
		InternalServerError(msgParseFailed).Write(w)
		return
	}

	OK(toDraftDTO(draft)).Write(w)
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		BadRequestError("Invalid multipart form").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := r.FormValue("source")
	if name == "" {
		name = string(receipt.SourceCamera)
	}
	src, err := receipt.ParseSource(name)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var img []byte
	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		img, err = io.ReadAll(file)
		file.Close()
		if err != nil {
			BadRequestError("Failed to read image").Write(w)
			return
		}
	case !errors.Is(err, http.ErrMissingFile):
		BadRequestError("Invalid image upload").Write(w)
		return
	}

	draft, err := s.scanner.Scan(ctx, src, img)
	var permErr *receipt.PermissionError
	switch {
	case err == nil:
	case errors.Is(err, receipt.ErrCanceled):
		NoContent().Write(w)
		return
	case errors.As(err, &permErr):
		ForbiddenError(permErr.Error()).Write(w)
		return
	case errors.Is(err, receipt.ErrInvalidImage):
		UnprocessableEntityError("Invalid receipt image").Write(w)
		return
	case ctx.Err() != nil:
		ServiceUnavailableError("Request canceled").Write(w)
		return
	default:
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Receipt scan failed", err, applog.OpScan, nil)
		InternalServerError("Failed to scan receipt").Write(w)
		return
	}

	OK(toDraftDTO(draft)).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	state := s.store.Snapshot()

	OK(MetricsDTO{
		TotalRequests:      traceMetrics.TotalRequests,
		AvgResponseMs:      float64(traceMetrics.AverageResponseTime.Microseconds()) / 1000,
		RateLimited:        limitMetrics.Rejected,
		RateLimitClients:   limitMetrics.ClientCount,
		SuspiciousRequests: securityMetrics.SuspiciousRequests,
		InvalidIPAttempts:  securityMetrics.InvalidIPAttempts,
		SectionsCache:      toCacheStatsDTO(s.sectionsCache.Stats()),
		FlatCache:          toCacheStatsDTO(s.flatCache.Stats()),
		StoreVersion:       state.Version,
		Items:              len(state.Items),
	}).Write(w)
}

func toCacheStatsDTO(st cache.Stats) CacheStatsDTO {
	return CacheStatsDTO{Hits: st.Hits, Misses: st.Misses, Size: st.Size}
}

// writeStoreError exposes only the store's fixed message. The store has
// already logged the cause.
func writeStoreError(w http.ResponseWriter, err error) {
	var ae *store.ActionError
	if errors.As(err, &ae) {
		InternalServerError(ae.Message).Write(w)
		return
	}
	InternalServerError("Internal server error").Write(w)
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
		return
	}
	BadRequestError("Invalid request body").Write(w)
}
