package providers

import (
	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/validation"
)

// AuthKey is the hex-encoded token key.
type AuthKey string

// ProvideAuthKey loads or generates the document server token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Server.KeyPath)
	if err != nil {
		return "", err
	}

	log.Info("token key loaded", "path", cfg.Server.KeyPath, "token_ttl", cfg.Server.TokenTTL)
	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Server.TokenTTL)
}

// ProvideHasher provides the argon2id password hasher.
func ProvideHasher(i do.Injector) (*auth.Hasher, error) {
	return auth.NewHasher(auth.DefaultParams), nil
}

// ProvideValidator provides the input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
