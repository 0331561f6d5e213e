package sendtemplate

import (
	"errors"
	"strings"

	"github.com/ignite/mandrill-gateway/internal/pkg/ordered"
)

// ActionSendTemplate names the vendor action a Request performs.
const ActionSendTemplate = "sendTemplate"

var (
	ErrEmptyAddress = errors.New("sendtemplate: email address is empty")
	ErrEmptySlug    = errors.New("sendtemplate: template slug is empty")
	ErrNoSender     = errors.New("sendtemplate: sender is required")
	ErrNoRecipients = errors.New("sendtemplate: at least one recipient is required")
	ErrAlreadySent  = errors.New("sendtemplate: request already sent")
)

// Request holds everything needed for one messages/send-template call.
// The sender is fixed at construction; everything else can be extended
// until the request is sent.
type Request struct {
	slug            string
	mergeLanguage   string
	subject         string
	sender          *EmailAddress
	recipients      []*EmailAddress
	tags            []string
	content         *ordered.Map[*string]
	globalMergeTags *ordered.Map[any]
}

// NewRequest builds a request. Recipients may be empty here and added
// later with AddRecipient. The maps are copied.
func NewRequest(
	slug, mergeLanguage, subject string,
	sender *EmailAddress,
	recipients []*EmailAddress,
	tags []string,
	content *ordered.Map[*string],
	globalMergeTags *ordered.Map[any],
) (*Request, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, ErrEmptySlug
	}
	if sender == nil {
		return nil, ErrNoSender
	}

	r := &Request{
		slug:            slug,
		mergeLanguage:   mergeLanguage,
		subject:         subject,
		sender:          sender,
		tags:            append([]string(nil), tags...),
		content:         content.Clone(),
		globalMergeTags: globalMergeTags.Clone(),
	}
	for _, rcpt := range recipients {
		r.AddRecipient(rcpt)
	}
	return r, nil
}

// Action implements gateway.RequestData.
func (r *Request) Action() string { return ActionSendTemplate }

func (r *Request) Slug() string          { return r.slug }
func (r *Request) MergeLanguage() string { return r.mergeLanguage }
func (r *Request) Subject() string       { return r.subject }
func (r *Request) Sender() *EmailAddress { return r.sender }

// Recipients returns the recipients in the order they were added.
func (r *Request) Recipients() []*EmailAddress {
	return append([]*EmailAddress(nil), r.recipients...)
}

func (r *Request) Tags() []string { return append([]string(nil), r.tags...) }

func (r *Request) Content() *ordered.Map[*string] { return r.content }

func (r *Request) GlobalMergeTags() *ordered.Map[any] { return r.globalMergeTags }

// AddRecipient appends a recipient. Nil is ignored.
func (r *Request) AddRecipient(rcpt *EmailAddress) {
	if rcpt == nil {
		return
	}
	r.recipients = append(r.recipients, rcpt)
}

// AddTag appends a tag. Blank tags are ignored.
func (r *Request) AddTag(tag string) {
	if strings.TrimSpace(tag) == "" {
		return
	}
	r.tags = append(r.tags, tag)
}

// SetContent sets one editable template region.
func (r *Request) SetContent(name string, value *string) {
	r.content.Set(name, value)
}

// SetMergeTag sets one global merge tag. value may be any JSON-encodable
// value; handlebars templates can loop over slices and read nested maps.
func (r *Request) SetMergeTag(name string, value any) {
	r.globalMergeTags.Set(name, value)
}
