package gateway

import (
	"github.com/ignite/mandrill-gateway/internal/mandrill"
)

// Gateway is an authenticated Mandrill handle for one (environment, endpoint) pair.
type Gateway struct {
	api         *mandrill.Client
	name        string
	environment Environment
	endpointID  string
}

// New wraps an API client. Most callers get a Gateway from a Registry instead.
func New(api *mandrill.Client, name string, env Environment, endpointID string) *Gateway {
	return &Gateway{api: api, name: name, environment: env, endpointID: endpointID}
}

func (g *Gateway) API() *mandrill.Client    { return g.api }
func (g *Gateway) Name() string             { return g.name }
func (g *Gateway) Environment() Environment { return g.environment }
func (g *Gateway) EndpointID() string       { return g.endpointID }
