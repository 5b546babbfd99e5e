// Package normalize maps raw provider user-info payloads into a
// CanonicalIdentity. Each provider has an incompatible nesting shape, so the
// mapping is a registry of per-provider strategies instead of a provider-name
// if/else chain. The fallback for unknown providers is an explicit strategy
// registered under DefaultKey, never an implicit branch.
package normalize

import (
	"sync"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

// DefaultKey is the registry key of the fallback strategy. An unknown provider
// name resolves to this strategy; callers should log that it happened (a
// typo'd provider name silently parsed with the wrong shape is a config bug
// worth surfacing).
const DefaultKey = "default"

// Normalizer extrae una CanonicalIdentity del payload crudo de un provider.
//
// attrs is the raw attribute tree as decoded from the provider's user-info
// response. subjectKey is the provider-specific attribute holding the subject
// id (e.g. "id" for kakao, "response" for naver, "sub" for google).
//
// A missing nested map never fails the login: the affected fields are simply
// left unset (the user may have denied an optional profile scope).
type Normalizer interface {
	Normalize(attrs map[string]any, subjectKey string) identity.CanonicalIdentity
}

// Registry resuelve el Normalizer por nombre de provider.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Normalizer
}

// NewRegistry creates a registry pre-populated with the built-in strategies:
// kakao, naver, google and the explicit default (kakao-shaped).
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Normalizer)}
	r.Register("kakao", kakaoNormalizer{})
	r.Register("naver", naverNormalizer{})
	r.Register("google", googleNormalizer{})
	r.Register(DefaultKey, kakaoNormalizer{})
	return r
}

// Register agrega o reemplaza una estrategia.
func (r *Registry) Register(provider string, n Normalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[provider] = n
}

// Lookup returns the strategy for provider. fellBack reports whether the
// default strategy was used because the provider name is unregistered.
func (r *Registry) Lookup(provider string) (n Normalizer, fellBack bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.strategies[provider]; ok {
		return n, false
	}
	return r.strategies[DefaultKey], true
}

// Normalize resuelve la estrategia y normaliza en un paso. El campo Provider
// del resultado siempre es el nombre pedido, incluso en el fallback.
func (r *Registry) Normalize(provider string, attrs map[string]any, subjectKey string) (identity.CanonicalIdentity, bool) {
	n, fellBack := r.Lookup(provider)
	ci := n.Normalize(attrs, subjectKey)
	ci.Provider = provider
	return ci, fellBack
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers compartidos por las estrategias
// ─────────────────────────────────────────────────────────────────────────────

// subMap devuelve attrs[key] como mapa, o nil si falta o no es un mapa.
func subMap(attrs map[string]any, key string) map[string]any {
	if attrs == nil {
		return nil
	}
	m, _ := attrs[key].(map[string]any)
	return m
}

// str devuelve attrs[key] como string (números incluidos), o "" si falta.
func str(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	return anyToString(attrs[key])
}
