package sendtemplate

import (
	"strings"

	"github.com/ignite/mandrill-gateway/internal/pkg/ordered"
)

// EmailAddress is a sender or recipient. Merge tags only apply when the
// address is a recipient, where they override the request's global tags.
type EmailAddress struct {
	address     string
	displayName string
	mergeTags   *ordered.Map[*string]
}

// NewEmailAddress validates address and copies mergeTags, so later changes
// to the caller's map do not leak into the request.
func NewEmailAddress(address, displayName string, mergeTags *ordered.Map[*string]) (*EmailAddress, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}
	return &EmailAddress{
		address:     address,
		displayName: displayName,
		mergeTags:   mergeTags.Clone(),
	}, nil
}

func (a *EmailAddress) Address() string     { return a.address }
func (a *EmailAddress) DisplayName() string { return a.displayName }

// MergeTags returns the recipient's merge tags in insertion order.
func (a *EmailAddress) MergeTags() *ordered.Map[*string] { return a.mergeTags }

// SetDisplayName replaces the display name. An empty name is omitted on the wire.
func (a *EmailAddress) SetDisplayName(name string) {
	a.displayName = name
}

// SetMergeTag sets one merge tag. A nil value is sent as JSON null.
func (a *EmailAddress) SetMergeTag(name string, value *string) {
	a.mergeTags.Set(name, value)
}

// MergeTag returns the value stored under name.
func (a *EmailAddress) MergeTag(name string) (*string, bool) {
	return a.mergeTags.Get(name)
}

// String returns a pointer to s, for building nullable merge tags and content.
func String(s string) *string { return &s }
