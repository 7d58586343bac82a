// Package secret resolves credentials and encrypted settings for modules
// and external service bindings using viant/scy.
package secret

import (
	"context"
	"fmt"

	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	_ "github.com/viant/scy/kms/blowfish"
	"github.com/viant/toolbox"
)

// Service loads and decrypts secrets.
type Service struct {
	scyService *scy.Service
}

// New creates a secret service.
func New() *Service {
	return &Service{scyService: scy.New()}
}

// Reveal decrypts the secret at sourceURL. Target selects a credential
// type ("raw", "basic", "generic", ...), key names the encryption key,
// for example "blowfish://default". Structured secrets return a map,
// raw ones a plain string.
func (s *Service) Reveal(ctx context.Context, sourceURL, target, key string) (string, map[string]interface{}, error) {
	var targetValue interface{}
	if target != "" && target != "raw" {
		targetType, err := cred.TargetType(target)
		if err != nil {
			return "", nil, fmt.Errorf("invalid target type '%s': %w", target, err)
		}
		if targetType != nil {
			targetValue = targetType
		}
	}
	resource := scy.NewResource(targetValue, sourceURL, key)
	secret, err := s.scyService.Load(ctx, resource)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load secret from %s: %w", sourceURL, err)
	}
	if !secret.IsPlain && secret.Target != nil {
		aMap := map[string]interface{}{}
		if err := toolbox.DefaultConverter.AssignConverted(&aMap, secret.Target); err != nil {
			return "", nil, fmt.Errorf("failed to convert secret data: %w", err)
		}
		return "", toolbox.DeleteEmptyKeys(aMap), nil
	}
	return secret.String(), nil, nil
}

// Secure encrypts plain content and stores it at destURL.
func (s *Service) Secure(ctx context.Context, destURL, key, plain string) error {
	resource := scy.NewResource(nil, destURL, key)
	secret := scy.NewSecret(plain, resource)
	if err := s.scyService.Store(ctx, secret); err != nil {
		return fmt.Errorf("failed to store secret at %s: %w", destURL, err)
	}
	return nil
}
