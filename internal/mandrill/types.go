package mandrill

import "fmt"

// TemplateContent is one editable region injected into a stored template.
type TemplateContent struct {
	Name    string  `json:"name"`
	Content *string `json:"content"`
}

// MergeVar is one merge tag substitution. Content may be any JSON value;
// handlebars templates can iterate arrays and read nested objects.
type MergeVar struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
}

// Recipient is one entry of message.to.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

// RecipientMergeVars overrides global merge vars for a single recipient.
type RecipientMergeVars struct {
	Rcpt string     `json:"rcpt"`
	Vars []MergeVar `json:"vars"`
}

// Message is the message object of a messages/send-template call.
type Message struct {
	Subject         string               `json:"subject,omitempty"`
	FromEmail       string               `json:"from_email"`
	FromName        string               `json:"from_name,omitempty"`
	To              []Recipient          `json:"to"`
	TrackOpens      bool                 `json:"track_opens"`
	TrackClicks     bool                 `json:"track_clicks"`
	AutoText        bool                 `json:"auto_text"`
	MergeLanguage   string               `json:"merge_language,omitempty"`
	GlobalMergeVars []MergeVar           `json:"global_merge_vars"`
	MergeVars       []RecipientMergeVars `json:"merge_vars"`
	Tags            []string             `json:"tags"`
}

// sendTemplateRequest is the full messages/send-template.json body.
type sendTemplateRequest struct {
	Key             string            `json:"key"`
	TemplateName    string            `json:"template_name"`
	TemplateContent []TemplateContent `json:"template_content"`
	Message         Message           `json:"message"`
}

type keyOnlyRequest struct {
	Key string `json:"key"`
}

// Per-recipient statuses reported by messages/send*.
const (
	StatusSent      = "sent"
	StatusQueued    = "queued"
	StatusScheduled = "scheduled"
	StatusRejected  = "rejected"
	StatusInvalid   = "invalid"
)

// Error names Mandrill puts in the "name" field of its error envelope.
const (
	ErrNameInvalidKey         = "Invalid_Key"
	ErrNameUnknownTemplate    = "Unknown_Template"
	ErrNameValidation         = "ValidationError"
	ErrNamePaymentRequired    = "PaymentRequired"
	ErrNameUnknownSubaccount  = "Unknown_Subaccount"
	ErrNameServiceUnavailable = "ServiceUnavailable"
	ErrNameGeneral            = "GeneralError"
)

// APIError is Mandrill's error envelope:
// {"status":"error","code":-1,"name":"Invalid_Key","message":"Invalid API key"}
type APIError struct {
	HTTPStatus int    `json:"-"`
	Status     string `json:"status"`
	Code       int    `json:"code"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mandrill API error (status %d, %s): %s", e.HTTPStatus, e.Name, e.Message)
}

// IsAuthError reports whether the vendor rejected the API key.
func (e *APIError) IsAuthError() bool {
	return e.Name == ErrNameInvalidKey
}
