// Package auth resolves marketplace credentials from the environment or
// from the credential store.
package auth

import (
	"errors"
	"os"
	"strings"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/rs/zerolog/log"
)

// Loader is the read side of a credential store
type Loader interface {
	Load(marketplace string) (Credentials, error)
}

// Resolver looks credentials up in the environment first and the store
// second.
type Resolver struct {
	Store  Loader
	Getenv func(string) string
}

// NewResolver reads the process environment and then store, which may be nil
func NewResolver(store Loader) *Resolver {
	return &Resolver{Store: store, Getenv: os.Getenv}
}

// EnvNames returns the identity and secret variables for marketplace,
// e.g. VEHIS_EMAIL and VEHIS_PASSWORD.
func EnvNames(marketplace string) (identity, secret string) {
	prefix := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(marketplace))
	return prefix + "_EMAIL", prefix + "_PASSWORD"
}

// Resolve returns a complete pair or a CONFIG error wrapping
// engine.ErrMissingCredentials.
func (r *Resolver) Resolve(marketplace string) (Credentials, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	idVar, secretVar := EnvNames(marketplace)
	c := Credentials{Identity: getenv(idVar), Secret: getenv(secretVar)}
	if c.Valid() {
		log.Debug().Str("marketplace", marketplace).Msg("Credentials taken from environment")
		return c, nil
	}

	if r.Store != nil {
		stored, err := r.Store.Load(marketplace)
		switch {
		case err == nil && stored.Valid():
			log.Debug().Str("marketplace", marketplace).Msg("Credentials taken from store")
			return stored, nil
		case err != nil && !errors.Is(err, ErrNotStored):
			log.Warn().Err(err).Str("marketplace", marketplace).Msg("Credential store unavailable")
		}
	}

	return Credentials{}, engine.ConfigError(marketplace,
		"set "+idVar+" and "+secretVar+" or run `autoscraper credentials set "+marketplace+"`",
		engine.ErrMissingCredentials)
}
