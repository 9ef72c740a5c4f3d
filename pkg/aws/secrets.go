package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the part of the Secrets Manager client the service uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ErrSecretEmpty is returned for a secret holding neither a string nor a
// binary value.
var ErrSecretEmpty = errors.New("secret has no value")

// SecretsClient resolves configuration secrets once per process. Each name is
// fetched at most once; failures are not cached.
type SecretsClient struct {
	api SecretsAPI

	mu     sync.Mutex
	values map[string][]byte
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWithAPI(api SecretsAPI) *SecretsClient {
	return &SecretsClient{api: api, values: make(map[string][]byte)}
}

// GetSecret returns the raw secret payload. SecretString wins over
// SecretBinary when both are set.
func (s *SecretsClient) GetSecret(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[name]; ok {
		return v, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("get secret %s: %w", name, err)
	}
	var v []byte
	switch {
	case out.SecretString != nil:
		v = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		v = out.SecretBinary
	default:
		return nil, fmt.Errorf("get secret %s: %w", name, ErrSecretEmpty)
	}
	s.values[name] = v
	return v, nil
}

// GetSecretJSON decodes a JSON secret into v.
func (s *SecretsClient) GetSecretJSON(ctx context.Context, name string, v any) error {
	raw, err := s.GetSecret(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("secret %s is not valid JSON: %w", name, err)
	}
	return nil
}
