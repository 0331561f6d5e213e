package sendtemplate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ignite/mandrill-gateway/internal/deliverylog"
	"github.com/ignite/mandrill-gateway/internal/gateway"
	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
)

var (
	_ gateway.RequestData        = (*Request)(nil)
	_ gateway.ResponseData       = (*Response)(nil)
	_ gateway.ResponseController = (*ResponseController)(nil)
)

// RequestController pairs a request with the gateway handle that will send it.
type RequestController struct {
	request  *Request
	gateway  *gateway.Gateway
	service  RequestService
	recorder deliverylog.Recorder

	mu   sync.Mutex
	sent bool
}

// NewRequestController binds req to g. A nil recorder disables the delivery log.
func NewRequestController(g *gateway.Gateway, req *Request, recorder deliverylog.Recorder) *RequestController {
	if recorder == nil {
		recorder = deliverylog.Nop{}
	}
	return &RequestController{request: req, gateway: g, recorder: recorder}
}

// Request returns the request so callers can keep adding recipients, tags
// and content before sending.
func (c *RequestController) Request() *Request { return c.request }

func (c *RequestController) Gateway() *gateway.Gateway { return c.gateway }

// Send performs the round trip and classifies the result. The outcome is
// written to the delivery log; a log failure is reported but does not
// change what Send returns.
//
// A request goes out at most once. Later calls return ErrAlreadySent, whatever
// the first outcome was. A request rejected with ErrNoRecipients was never
// sent and may be retried after adding recipients.
func (c *RequestController) Send(ctx context.Context) (*ResponseController, error) {
	if !c.claim() {
		return nil, ErrAlreadySent
	}

	start := time.Now()
	resp, err := c.service.Send(ctx, c.gateway, c.request)
	if errors.Is(err, ErrNoRecipients) {
		c.release()
		return nil, err
	}

	entry := deliverylog.Entry{
		Gateway:     c.gateway.Name(),
		Environment: string(c.gateway.Environment()),
		EndpointID:  c.gateway.EndpointID(),
		Action:      c.request.Action(),
		Slug:        c.request.Slug(),
		Subject:     c.request.Subject(),
		Recipients:  len(c.request.recipients),
	}

	var rc *ResponseController
	if err != nil {
		entry.Error = err.Error()
		logger.Error("sendtemplate: send failed",
			"gateway", entry.Gateway,
			"environment", entry.Environment,
			"endpoint", entry.EndpointID,
			"slug", entry.Slug,
			"error", err,
		)
	} else {
		rc = NewResponseController(resp)
		entry.Successful = rc.IsSuccessful()
		entry.ReferenceID, _ = rc.ReferenceID()
		entry.Message, _ = rc.Message()
		logger.Info("sendtemplate: sent",
			"gateway", entry.Gateway,
			"environment", entry.Environment,
			"endpoint", entry.EndpointID,
			"slug", entry.Slug,
			"rcpt_count", entry.Recipients,
			"successful", entry.Successful,
			"reference_id", entry.ReferenceID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if recErr := c.recorder.Record(ctx, entry); recErr != nil {
		logger.Warn("sendtemplate: recording send failed", "slug", entry.Slug, "error", recErr)
	}

	return rc, err
}

func (c *RequestController) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return false
	}
	c.sent = true
	return true
}

func (c *RequestController) release() {
	c.mu.Lock()
	c.sent = false
	c.mu.Unlock()
}

// ResponseController exposes the classified outcome of a send.
type ResponseController struct {
	response *Response
	service  ResponseService
}

func NewResponseController(resp *Response) *ResponseController {
	return &ResponseController{response: resp}
}

func (c *ResponseController) Response() *Response { return c.response }

func (c *ResponseController) IsSuccessful() bool { return c.service.IsSuccessful(c.response) }

func (c *ResponseController) ReferenceID() (string, bool) { return c.service.ReferenceID(c.response) }

func (c *ResponseController) Message() (string, bool) { return c.service.Message(c.response) }

func (c *ResponseController) Data() []any { return c.service.Data(c.response) }
