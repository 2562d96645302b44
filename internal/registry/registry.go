// Package registry maps provider names to completion-client factories.
// Provider packages register themselves from init.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloudiagent/cloudiagent/internal/core"
	"github.com/cloudiagent/cloudiagent/internal/health"
)

// ClientOptions carries what a provider needs to build a client.
type ClientOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// Tracker, when set, records the outcome of every completion call.
	Tracker *health.Tracker
}

// ClientFactory builds a completion client.
type ClientFactory func(ctx context.Context, opts ClientOptions) (core.LLMClient, error)

var (
	mu         sync.RWMutex
	LLMClients = make(map[string]ClientFactory)
)

func RegisterClient(name string, f ClientFactory) {
	mu.Lock()
	defer mu.Unlock()
	LLMClients[name] = f
}

func GetClientFactory(name string) (ClientFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := LLMClients[name]
	return f, ok
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(LLMClients))
	for n := range LLMClients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
