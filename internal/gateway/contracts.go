// Package gateway owns authenticated vendor handles and the small contracts
// every gateway request/response type implements.
package gateway

// RequestData is an outbound request that names the vendor action it performs.
type RequestData interface {
	Action() string
}

// ResponseData is a vendor response tagged with where it came from.
type ResponseData interface {
	Action() string
	GatewayName() string
	Raw() []byte
}

// ResponseController is what callers inspect after a send.
// ReferenceID and Message report false when the vendor supplied nothing.
type ResponseController interface {
	IsSuccessful() bool
	ReferenceID() (string, bool)
	Message() (string, bool)
}
