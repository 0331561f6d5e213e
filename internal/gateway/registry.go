package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignite/mandrill-gateway/internal/config"
	"github.com/ignite/mandrill-gateway/internal/mandrill"
	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
)

// Registry builds Gateway handles from configuration and caches one per
// endpoint for the current environment. Switching environment drops the
// cache so the next lookup authenticates with the other profile.
type Registry struct {
	cfg config.MandrillConfig

	mu          sync.Mutex
	environment Environment
	handles     map[string]*Gateway
}

// NewRegistry creates a registry in the environment named by cfg.Environment.
func NewRegistry(cfg config.MandrillConfig) (*Registry, error) {
	env, err := ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}
	return NewRegistryForEnvironment(cfg, env), nil
}

// NewRegistryForEnvironment creates a registry pinned to env regardless of cfg.Environment.
func NewRegistryForEnvironment(cfg config.MandrillConfig, env Environment) *Registry {
	if cfg.Name == "" {
		cfg.Name = config.DefaultGatewayName
	}
	return &Registry{
		cfg:         cfg,
		environment: env,
		handles:     make(map[string]*Gateway),
	}
}

// Name is the configured gateway name.
func (r *Registry) Name() string { return r.cfg.Name }

// Environment returns the active environment.
func (r *Registry) Environment() Environment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.environment
}

// SetEnvironment switches profiles and discards cached handles.
func (r *Registry) SetEnvironment(env Environment) error {
	if _, err := ParseEnvironment(string(env)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if env == r.environment {
		return nil
	}
	logger.Info("gateway: switching environment", "gateway", r.cfg.Name, "from", r.environment, "to", env)
	r.environment = env
	r.handles = make(map[string]*Gateway)
	return nil
}

// Gateway returns the cached handle for endpointID, creating it on first use.
func (r *Registry) Gateway(endpointID string) (*Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.handles[endpointID]; ok {
		return g, nil
	}
	g, err := r.newGateway(r.environment, endpointID)
	if err != nil {
		return nil, err
	}
	r.handles[endpointID] = g
	return g, nil
}

// NewGateway builds a fresh, uncached handle for endpointID.
func (r *Registry) NewGateway(endpointID string) (*Gateway, error) {
	r.mu.Lock()
	env := r.environment
	r.mu.Unlock()
	return r.newGateway(env, endpointID)
}

// Ping checks the credentials behind endpointID against the vendor.
func (r *Registry) Ping(ctx context.Context, endpointID string) error {
	g, err := r.Gateway(endpointID)
	if err != nil {
		return err
	}
	return g.API().Ping(ctx)
}

func (r *Registry) newGateway(env Environment, endpointID string) (*Gateway, error) {
	token, err := r.credentials(env, endpointID)
	if err != nil {
		return nil, err
	}

	api := mandrill.NewClient(r.cfg.EndpointURL(string(env)), token, r.cfg.Timeout(), r.cfg.Retries())

	logger.Debug("gateway: created handle",
		"gateway", r.cfg.Name,
		"environment", env,
		"endpoint", endpointID,
		"base_url", api.BaseURL(),
		"token", token,
	)
	return New(api, r.cfg.Name, env, endpointID), nil
}

func (r *Registry) credentials(env Environment, endpointID string) (string, error) {
	if !r.cfg.HasEnvironment(string(env)) {
		return "", fmt.Errorf("%w: no credentials configured for %q", ErrUnknownEnvironment, env)
	}
	token, ok := r.cfg.Token(string(env), endpointID)
	if !ok {
		return "", fmt.Errorf("%w: %q in environment %q", ErrUnknownEndpoint, endpointID, env)
	}
	if token == "" {
		return "", fmt.Errorf("%w: %q in environment %q", ErrMissingToken, endpointID, env)
	}
	return token, nil
}
