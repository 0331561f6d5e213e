package sendtemplate

import (
	"context"
	"fmt"

	"github.com/ignite/mandrill-gateway/internal/gateway"
	"github.com/ignite/mandrill-gateway/internal/mandrill"
	"github.com/ignite/mandrill-gateway/internal/pkg/ordered"
)

// RequestService translates requests into Mandrill's field layout and sends them.
type RequestService struct{}

// Translate reshapes req into the template content list and message object
// of a messages/send-template call. It has no side effects, so translating
// the same request twice yields identical output.
func (RequestService) Translate(req *Request) ([]mandrill.TemplateContent, mandrill.Message) {
	content := make([]mandrill.TemplateContent, 0, req.content.Len())
	for name, value := range req.content.All() {
		content = append(content, mandrill.TemplateContent{Name: name, Content: value})
	}

	to := make([]mandrill.Recipient, 0, len(req.recipients))
	mergeVars := make([]mandrill.RecipientMergeVars, 0, len(req.recipients))
	for _, rcpt := range req.recipients {
		to = append(to, mandrill.Recipient{Email: rcpt.Address(), Name: rcpt.DisplayName()})
		mergeVars = append(mergeVars, mandrill.RecipientMergeVars{
			Rcpt: rcpt.Address(),
			Vars: translateMergeTags(rcpt.MergeTags()),
		})
	}

	tags := req.Tags()
	if tags == nil {
		tags = []string{}
	}

	msg := mandrill.Message{
		Subject:         req.subject,
		FromEmail:       req.sender.Address(),
		FromName:        req.sender.DisplayName(),
		To:              to,
		TrackOpens:      true,
		TrackClicks:     true,
		AutoText:        true,
		MergeLanguage:   req.mergeLanguage,
		GlobalMergeVars: translateMergeTags(req.globalMergeTags),
		MergeVars:       mergeVars,
		Tags:            tags,
	}
	return content, msg
}

// Send translates req and submits it through g. Vendor and transport errors
// are returned wrapped; a successful round trip always yields a Response,
// even when every recipient was rejected.
func (s RequestService) Send(ctx context.Context, g *gateway.Gateway, req *Request) (*Response, error) {
	if len(req.recipients) == 0 {
		return nil, ErrNoRecipients
	}

	content, msg := s.Translate(req)
	raw, err := g.API().SendTemplate(ctx, req.slug, content, msg)
	if err != nil {
		return nil, fmt.Errorf("%s via %s/%s: %w", req.Action(), g.Environment(), g.EndpointID(), err)
	}
	return NewResponse(raw, g.Name(), req.Action()), nil
}

// translateMergeTags never returns nil so an empty map encodes as [] rather than null.
func translateMergeTags[V any](tags *ordered.Map[V]) []mandrill.MergeVar {
	vars := make([]mandrill.MergeVar, 0, tags.Len())
	for name, value := range tags.All() {
		vars = append(vars, mandrill.MergeVar{Name: name, Content: value})
	}
	return vars
}
