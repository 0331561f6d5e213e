package sendtemplate

import (
	"bytes"
	"encoding/json"
)

// Response is Mandrill's answer to one send: the raw body plus the
// per-recipient list decoded from it. It implements gateway.ResponseData.
type Response struct {
	raw         []byte
	gatewayName string
	action      string

	// items is nil when the body was not a JSON list.
	items []any
}

// NewResponse decodes raw leniently. A body that is not a list produces a
// Response that classifies as failed; it is never an error.
func NewResponse(raw []byte, gatewayName, action string) *Response {
	r := &Response{raw: raw, gatewayName: gatewayName, action: action}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err == nil {
		r.items = items
	}
	return r
}

// Raw returns the response body exactly as Mandrill sent it.
func (r *Response) Raw() []byte         { return r.raw }
func (r *Response) GatewayName() string { return r.gatewayName }
func (r *Response) Action() string      { return r.action }

// Items returns the decoded list untouched, including entries that are not
// objects. Nil when the body was not a list.
func (r *Response) Items() []any { return r.items }

// record returns item i when it is a JSON object.
func (r *Response) record(i int) (map[string]any, bool) {
	if i < 0 || i >= len(r.items) {
		return nil, false
	}
	rec, ok := r.items[i].(map[string]any)
	return rec, ok
}
