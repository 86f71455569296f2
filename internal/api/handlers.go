// Package api exposes the pipeline as an HTTP tools surface: one endpoint
// per pipeline operation plus lead queries and stats. Handlers validate
// status strings at the boundary and translate service errors to JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leadez/outreach/internal/domain"
	"github.com/leadez/outreach/internal/leadgen"
	"github.com/leadez/outreach/internal/pipeline"
	"github.com/leadez/outreach/internal/pkg/httputil"
	"github.com/leadez/outreach/internal/service/outreach"
	"github.com/leadez/outreach/internal/worker"
)

// DispatchFunc triggers one dispatch run. The server wires it to a worker
// dispatcher; tests stub it.
type DispatchFunc func(ctx context.Context, dryRun bool, channel domain.Channel) (worker.RunStats, error)

// Handlers holds the dependencies of the tools API.
type Handlers struct {
	svc      *outreach.Service
	engine   *pipeline.Engine
	dispatch DispatchFunc
}

// NewHandlers creates the handler set.
func NewHandlers(svc *outreach.Service, engine *pipeline.Engine, dispatch DispatchFunc) *Handlers {
	return &Handlers{svc: svc, engine: engine, dispatch: dispatch}
}

// HealthCheck reports liveness.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

type toolInfo struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// ListTools enumerates the available tool endpoints.
//
//	GET /tools
func (h *Handlers) ListTools(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, map[string]interface{}{"tools": []toolInfo{
		{"generate_leads", "POST", "/tools/generate_leads", "Generate and import synthetic leads"},
		{"enrich_leads", "POST", "/tools/enrich_leads", "Enrich NEW leads with firmographic data"},
		{"generate_messages", "POST", "/tools/generate_messages", "Compose message variants for enriched leads"},
		{"review_messages", "POST", "/tools/review_messages", "Approve one variant per lead and channel"},
		{"send_messages", "POST", "/tools/send_messages", "Run the rate-limited dispatch loop"},
		{"retry_failed", "POST", "/tools/retry_failed", "Requeue failed messages with retry budget left"},
		{"agent_decide", "POST", "/tools/agent_decide", "Resolve the next pipeline action for given statuses"},
		{"get_stats", "GET", "/tools/get_stats", "Lead and message counts grouped by status"},
	}})
}

// GenerateLeads seeds the pipeline with synthetic leads.
//
//	POST /tools/generate_leads {"count": 200, "seed": 42}
func (h *Handlers) GenerateLeads(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Count int   `json:"count"`
		Seed  int64 `json:"seed"`
	}{Count: 200, Seed: 42}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Count <= 0 || req.Count > 10000 {
		httputil.BadRequest(w, "count must be between 1 and 10000")
		return
	}

	leads := leadgen.New(req.Seed).Leads(req.Count)
	saved, err := h.svc.ImportLeads(r.Context(), leads)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"generated": len(leads), "saved": saved})
}

// EnrichLeads enriches pending NEW leads.
//
//	POST /tools/enrich_leads {"limit": 100}
func (h *Handlers) EnrichLeads(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Limit int `json:"limit"`
	}{Limit: 0}
	if !httputil.Decode(w, r, &req) {
		return
	}

	enriched, err := h.svc.EnrichLeads(r.Context(), req.Limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"enriched": enriched})
}

// GenerateMessages composes variants for enriched leads above the
// confidence threshold.
//
//	POST /tools/generate_messages {"limit": 100}
func (h *Handlers) GenerateMessages(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Limit int `json:"limit"`
	}{Limit: 0}
	if !httputil.Decode(w, r, &req) {
		return
	}

	processed, created, err := h.svc.GenerateMessages(r.Context(), req.Limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"leads_processed": processed, "messages_created": created})
}

// ReviewMessages reviews all pending messages.
//
//	POST /tools/review_messages
func (h *Handlers) ReviewMessages(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReviewMessages(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, res)
}

// SendMessages runs one dispatch pass. Dry run is the default; live
// sending must be requested explicitly.
//
//	POST /tools/send_messages {"dry_run": false, "channel": "email"}
func (h *Handlers) SendMessages(w http.ResponseWriter, r *http.Request) {
	req := struct {
		DryRun  *bool  `json:"dry_run"`
		Channel string `json:"channel"`
	}{}
	if !httputil.Decode(w, r, &req) {
		return
	}

	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	var channel domain.Channel
	if req.Channel != "" {
		var err error
		if channel, err = domain.ParseChannel(req.Channel); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	started := time.Now()
	stats, err := h.dispatch(r.Context(), dryRun, channel)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if err := h.svc.RecordRun(r.Context(), dryRun, stats.Sent, stats.Failed, started); err != nil {
		httputil.InternalError(w, err)
		return
	}

	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	httputil.OK(w, map[string]interface{}{
		"mode":            mode,
		"sent":            stats.Sent,
		"failed":          stats.Failed,
		"elapsed_seconds": stats.Elapsed.Seconds(),
		"achieved_rate":   stats.AchievedRate,
	})
}

// RetryFailed requeues failed messages with retry budget remaining.
//
//	POST /tools/retry_failed
func (h *Handlers) RetryFailed(w http.ResponseWriter, r *http.Request) {
	retried, err := h.svc.RetryFailed(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"retried": retried})
}

// AgentDecide resolves the next action for one status pair, or for a batch
// when items are supplied.
//
//	POST /tools/agent_decide {"lead_status": "ENRICHED"}
//	POST /tools/agent_decide {"items": [{"lead_id": "...", "lead_status": "NEW"}]}
func (h *Handlers) AgentDecide(w http.ResponseWriter, r *http.Request) {
	req := struct {
		LeadStatus    string               `json:"lead_status"`
		MessageStatus string               `json:"message_status"`
		Items         []pipeline.BatchItem `json:"items"`
	}{}
	if !httputil.Decode(w, r, &req) {
		return
	}

	if len(req.Items) > 0 {
		for _, item := range req.Items {
			if _, err := domain.ParseLeadStatus(string(item.LeadStatus)); err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			if item.MessageStatus != "" {
				if _, err := domain.ParseMessageStatus(string(item.MessageStatus)); err != nil {
					httputil.BadRequest(w, err.Error())
					return
				}
			}
		}
		httputil.OK(w, map[string]interface{}{"groups": h.engine.BatchDecide(req.Items)})
		return
	}

	leadStatus, err := domain.ParseLeadStatus(req.LeadStatus)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	var msgStatus domain.MessageStatus
	if req.MessageStatus != "" {
		if msgStatus, err = domain.ParseMessageStatus(req.MessageStatus); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	httputil.OK(w, h.engine.Decide(leadStatus, msgStatus))
}

// GetStats returns pipeline counters.
//
//	GET /tools/get_stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// ListLeads returns a paginated lead list, optionally filtered by status.
//
//	GET /leads?status=NEW&limit=100&offset=0
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	f := outreach.ListFilter{
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := domain.ParseLeadStatus(s)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		f.Status = status
	}

	leads, total, err := h.svc.Leads(r.Context(), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	httputil.OK(w, map[string]interface{}{
		"leads":  leads,
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

// GetLead returns one lead.
//
//	GET /leads/{id}
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Lead(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, outreach.ErrNotFound) {
		httputil.NotFound(w, "lead not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, l)
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
