package sendtemplate

import (
	"strings"

	"github.com/ignite/mandrill-gateway/internal/mandrill"
)

// ResponseService classifies send-template responses. Every method is a pure
// function of the response and never fails; missing data reads as failure
// or absence.
type ResponseService struct{}

// IsSuccessful reports whether every recipient was sent or queued.
// An empty list, a non-list body, or an entry that is not an object is a failure.
func (ResponseService) IsSuccessful(r *Response) bool {
	if r == nil || len(r.items) == 0 {
		return false
	}
	for i := range r.items {
		rec, ok := r.record(i)
		if !ok {
			return false
		}
		status, _ := rec["status"].(string)
		if status != mandrill.StatusSent && status != mandrill.StatusQueued {
			return false
		}
	}
	return true
}

// ReferenceID joins every non-empty recipient message id with ":".
func (ResponseService) ReferenceID(r *Response) (string, bool) {
	if r == nil {
		return "", false
	}
	var ids []string
	for i := range r.items {
		rec, ok := r.record(i)
		if !ok {
			continue
		}
		if id, ok := rec["_id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	return strings.Join(ids, ":"), true
}

// Message returns the first recipient's reject reason. Later entries are
// not consulted; their detail is only available through Data.
func (ResponseService) Message(r *Response) (string, bool) {
	if r == nil {
		return "", false
	}
	rec, ok := r.record(0)
	if !ok {
		return "", false
	}
	reason, ok := rec["reject_reason"].(string)
	return reason, ok
}

// Data returns the decoded list untouched.
func (ResponseService) Data(r *Response) []any {
	if r == nil {
		return nil
	}
	return r.items
}
