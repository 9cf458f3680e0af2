package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
	"PressWatch/internal/usecase"
)

// Ingest is the ingest pipeline as seen by the HTTP layer.
type Ingest interface {
	CrawlAndSave(ctx context.Context, groupID, sourceID string) (usecase.IngestReport, error)
	RunGroup(ctx context.Context, groupID string) (usecase.IngestReport, error)
	SaveItem(ctx context.Context, item domain.KnownItem) (domain.KnownItem, error)
	Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error)
}

// Notifications runs the notification gate for a group.
type Notifications interface {
	Run(ctx context.Context, groupID string) (usecase.NotifyReport, error)
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Items         ports.ItemRepository
	Ingest        Ingest
	Notifications Notifications
	FreshWindow   time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	items       ports.ItemRepository
	ingest      Ingest
	notify      Notifications
	freshWindow time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	if deps.FreshWindow <= 0 {
		deps.FreshWindow = domain.DefaultFreshWindow
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{
		items:       deps.Items,
		ingest:      deps.Ingest,
		notify:      deps.Notifications,
		freshWindow: deps.FreshWindow,
		now:         deps.Now,
		logger:      deps.Logger,
	}
}

// ListItems handles GET /groups/{groupId}/items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := &listQuery{GroupID: chi.URLParam(r, "groupId"), RawLimit: r.URL.Query().Get("limit")}
	if err := validate(q); err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := h.items.ListByGroup(r.Context(), q.GroupID, q.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := h.now()
	resp := itemList{GroupID: q.GroupID, Items: make([]itemSummary, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toSummary(item, now, h.freshWindow))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem handles GET /groups/{groupId}/items/{itemId}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Get(r.Context(), chi.URLParam(r, "groupId"), chi.URLParam(r, "itemId"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(item, h.now(), h.freshWindow))
}

// SaveItem handles PUT /groups/{groupId}/items.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var req saveItemRequest
	if err := bind(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.ingest.SaveItem(r.Context(), req.item(chi.URLParam(r, "groupId")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetail(saved, h.now(), h.freshWindow))
}

// CrawlSource handles POST /crawl.
func (h *Handler) CrawlSource(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := bind(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.ingest.CrawlAndSave(r.Context(), req.GroupID, req.SourceID)
	if err != nil {
		if len(report.FailedSources) > 0 {
			resp := toIngestResponse(report, req.SourceID)
			resp.Error = err.Error()
			writeJSON(w, statusFor(err), resp)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIngestResponse(report, req.SourceID))
}

// RunGroup handles POST /groups/{groupId}/crawl.
func (h *Handler) RunGroup(w http.ResponseWriter, r *http.Request) {
	report, err := h.ingest.RunGroup(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIngestResponse(report, ""))
}

// Notify handles POST /groups/{groupId}/notify.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	report, err := h.notify.Run(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	now := h.now()
	resp := notifyResponse{
		GroupID:          report.GroupID,
		Notified:         make([]itemSummary, 0, len(report.Notified)),
		Skipped:          report.Skipped,
		DeliveryFailures: report.DeliveryFailures,
	}
	if report.Watermark != nil {
		resp.Watermark = instantPtr(*report.Watermark)
	}
	for _, item := range report.Notified {
		resp.Notified = append(resp.Notified, toSummary(item, now, h.freshWindow))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summarize handles POST /summarize.
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := bind(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.ingest.Summarize(r.Context(), req.request())
	if err != nil {
		if errors.Is(err, domain.ErrMisconfigured) {
			h.writeError(w, r, err)
			return
		}
		h.logger.Error("summarize failed", slog.String("url", req.URL), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("summary generation failed"))
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{SummaryText: summary.Text, Glossary: toGlossary(summary.Glossary)})
}
