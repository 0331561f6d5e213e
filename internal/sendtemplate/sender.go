// Package sendtemplate builds Mandrill send-template requests from plain
// values, sends them through a gateway handle, and classifies the
// per-recipient results.
package sendtemplate

import (
	"context"

	"github.com/ignite/mandrill-gateway/internal/config"
	"github.com/ignite/mandrill-gateway/internal/deliverylog"
	"github.com/ignite/mandrill-gateway/internal/gateway"
	"github.com/ignite/mandrill-gateway/internal/pkg/ordered"
)

// Sender is the entry point for callers: it resolves gateway handles from a
// registry and hands out request controllers bound to them.
type Sender struct {
	registry   *gateway.Registry
	endpointID string
	recorder   deliverylog.Recorder
}

// Option configures a Sender.
type Option func(*Sender)

// WithEndpoint selects the credential slot used for sends. Defaults to "default".
func WithEndpoint(id string) Option {
	return func(s *Sender) { s.endpointID = id }
}

// WithRecorder sets the delivery log. Defaults to deliverylog.Nop.
func WithRecorder(r deliverylog.Recorder) Option {
	return func(s *Sender) { s.recorder = r }
}

func NewSender(registry *gateway.Registry, opts ...Option) *Sender {
	s := &Sender{
		registry:   registry,
		endpointID: config.DefaultEndpointID,
		recorder:   deliverylog.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForEndpoint returns a copy of s that sends through endpointID.
// An empty id keeps the current endpoint.
func (s *Sender) ForEndpoint(endpointID string) *Sender {
	cp := *s
	if endpointID != "" {
		cp.endpointID = endpointID
	}
	return &cp
}

func (s *Sender) EndpointID() string { return s.endpointID }

func (s *Sender) Registry() *gateway.Registry { return s.registry }

// NewRequestController validates the request and resolves the gateway
// handle for the active environment. Configuration problems surface here,
// before anything is sent.
func (s *Sender) NewRequestController(
	slug, mergeLanguage, subject string,
	sender *EmailAddress,
	recipients []*EmailAddress,
	tags []string,
	content *ordered.Map[*string],
	globalMergeTags *ordered.Map[any],
) (*RequestController, error) {
	req, err := NewRequest(slug, mergeLanguage, subject, sender, recipients, tags, content, globalMergeTags)
	if err != nil {
		return nil, err
	}
	g, err := s.registry.Gateway(s.endpointID)
	if err != nil {
		return nil, err
	}
	return NewRequestController(g, req, s.recorder), nil
}

// SendTemplate builds a request controller and sends it in one step.
func (s *Sender) SendTemplate(
	ctx context.Context,
	slug, mergeLanguage, subject string,
	sender *EmailAddress,
	recipients []*EmailAddress,
	tags []string,
	content *ordered.Map[*string],
	globalMergeTags *ordered.Map[any],
) (*ResponseController, error) {
	rc, err := s.NewRequestController(slug, mergeLanguage, subject, sender, recipients, tags, content, globalMergeTags)
	if err != nil {
		return nil, err
	}
	return rc.Send(ctx)
}
