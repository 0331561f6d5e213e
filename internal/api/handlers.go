package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ignite/mandrill-gateway/internal/deliverylog"
	"github.com/ignite/mandrill-gateway/internal/gateway"
	"github.com/ignite/mandrill-gateway/internal/mandrill"
	"github.com/ignite/mandrill-gateway/internal/pkg/httputil"
	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
	"github.com/ignite/mandrill-gateway/internal/pkg/ordered"
	"github.com/ignite/mandrill-gateway/internal/sendtemplate"
)

// Handlers contains the HTTP handlers
type Handlers struct {
	sender    *sendtemplate.Sender
	sends     deliverylog.Lister
	startTime time.Time
}

// NewHandlers creates handlers around sender. sends may be nil when the
// configured delivery log cannot be listed.
func NewHandlers(sender *sendtemplate.Sender, sends deliverylog.Lister) *Handlers {
	return &Handlers{sender: sender, sends: sends, startTime: time.Now()}
}

// HealthCheck reports liveness and the active gateway profile.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	reg := h.sender.Registry()
	httputil.OK(w, map[string]any{
		"status":      "healthy",
		"gateway":     reg.Name(),
		"environment": reg.Environment(),
		"uptime":      time.Since(h.startTime).Round(time.Second).String(),
	})
}

type addressPayload struct {
	Email     string                `json:"email"`
	Name      string                `json:"name,omitempty"`
	MergeTags *ordered.Map[*string] `json:"merge_tags,omitempty"`
}

type sendTemplatePayload struct {
	Endpoint        string                `json:"endpoint,omitempty"`
	Slug            string                `json:"slug"`
	MergeLanguage   string                `json:"merge_language,omitempty"`
	Subject         string                `json:"subject,omitempty"`
	From            addressPayload        `json:"from"`
	To              []addressPayload      `json:"to"`
	Tags            []string              `json:"tags,omitempty"`
	Content         *ordered.Map[*string] `json:"content,omitempty"`
	GlobalMergeTags *ordered.Map[any]     `json:"global_merge_tags,omitempty"`
}

type sendTemplateResult struct {
	Successful  bool   `json:"successful"`
	ReferenceID string `json:"reference_id,omitempty"`
	Message     string `json:"message,omitempty"`
	Data        []any  `json:"data"`
}

// SendTemplate sends a stored template to one or more recipients.
// A 200 means Mandrill answered; check "successful" for the per-recipient outcome.
//
//	POST /api/send-template
func (h *Handlers) SendTemplate(w http.ResponseWriter, r *http.Request) {
	var p sendTemplatePayload
	if !httputil.Decode(w, r, &p) {
		return
	}

	from, err := sendtemplate.NewEmailAddress(p.From.Email, p.From.Name, nil)
	if err != nil {
		httputil.BadRequest(w, "from: "+err.Error())
		return
	}
	recipients := make([]*sendtemplate.EmailAddress, 0, len(p.To))
	for _, to := range p.To {
		rcpt, err := sendtemplate.NewEmailAddress(to.Email, to.Name, to.MergeTags)
		if err != nil {
			httputil.BadRequest(w, "to: "+err.Error())
			return
		}
		recipients = append(recipients, rcpt)
	}

	rc, err := h.sender.ForEndpoint(p.Endpoint).SendTemplate(r.Context(),
		p.Slug, p.MergeLanguage, p.Subject, from, recipients, p.Tags, p.Content, p.GlobalMergeTags)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	result := sendTemplateResult{Successful: rc.IsSuccessful(), Data: rc.Data()}
	result.ReferenceID, _ = rc.ReferenceID()
	result.Message, _ = rc.Message()
	if result.Data == nil {
		result.Data = []any{}
	}
	httputil.OK(w, result)
}

// Ping checks the credentials of an endpoint against Mandrill.
//
//	GET /api/gateway/ping?endpoint=default
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	sender := h.sender.ForEndpoint(r.URL.Query().Get("endpoint"))
	reg := sender.Registry()

	if err := reg.Ping(r.Context(), sender.EndpointID()); err != nil {
		writeGatewayError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"status":      "PONG!",
		"environment": reg.Environment(),
		"endpoint":    sender.EndpointID(),
	})
}

// GetEnvironment returns the active environment.
//
//	GET /api/gateway/environment
func (h *Handlers) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"environment": h.sender.Registry().Environment()})
}

// SetEnvironment switches every subsequent send to another credential profile.
// The switch affects all callers of the relay. When server.admin_token is set
// the request must carry it in X-Admin-Token; without one the route is open to
// anyone who can reach the relay, which is only safe on a trusted network.
//
//	POST /api/gateway/environment {"environment":"sandbox"}
func (h *Handlers) SetEnvironment(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Environment string `json:"environment"`
	}
	if !httputil.Decode(w, r, &p) {
		return
	}

	env, err := gateway.ParseEnvironment(p.Environment)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	reg := h.sender.Registry()
	if err := reg.SetEnvironment(env); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, map[string]any{"environment": reg.Environment()})
}

// RecentSends lists the most recent delivery log entries, newest first.
//
//	GET /api/sends?limit=50
func (h *Handlers) RecentSends(w http.ResponseWriter, r *http.Request) {
	if h.sends == nil {
		httputil.NotImplemented(w, "delivery log is not configured for listing")
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 50, 1, 500)
	if err != nil {
		httputil.BadRequest(w, "limit must be an integer")
		return
	}

	entries, err := h.sends.Recent(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []deliverylog.Entry{}
	}
	httputil.OK(w, map[string]any{"sends": entries, "count": len(entries)})
}

// writeGatewayError maps send and credential failures onto HTTP statuses:
// caller mistakes are 400, missing credentials are 500, and anything
// Mandrill or the network rejected is 502.
func writeGatewayError(w http.ResponseWriter, err error) {
	var apiErr *mandrill.APIError
	switch {
	case errors.Is(err, sendtemplate.ErrEmptySlug),
		errors.Is(err, sendtemplate.ErrEmptyAddress),
		errors.Is(err, sendtemplate.ErrNoSender),
		errors.Is(err, sendtemplate.ErrNoRecipients):
		httputil.BadRequest(w, err.Error())

	case errors.Is(err, gateway.ErrUnknownEnvironment),
		errors.Is(err, gateway.ErrUnknownEndpoint),
		errors.Is(err, gateway.ErrMissingToken):
		logger.Error("api: gateway misconfigured", "error", err)
		httputil.ErrorWithCode(w, http.StatusInternalServerError, "configuration_error", err.Error(), nil)

	case errors.As(err, &apiErr):
		httputil.ErrorWithCode(w, http.StatusBadGateway, apiErr.Name, apiErr.Message, map[string]any{
			"status": apiErr.HTTPStatus,
			"code":   apiErr.Code,
		})

	default:
		logger.Error("api: mandrill unreachable", "error", err)
		httputil.ErrorWithCode(w, http.StatusBadGateway, "transport_error", "mandrill request failed", nil)
	}
}
