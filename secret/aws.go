package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// DefaultAWSCacheTTL is how long AWSProvider keeps a fetched secret.
const DefaultAWSCacheTTL = 5 * time.Minute

// SecretsManagerAPI is the part of the Secrets Manager client AWSProvider
// uses.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSProvider reads secrets from AWS Secrets Manager.
//
// References are a secret id or ARN, optionally followed by #field to pick
// one field of a JSON secret:
//
//	secretref:aws:prod/pets_db#password
type AWSProvider struct {
	client SecretsManagerAPI
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]awsEntry
}

type awsEntry struct {
	value   string
	expires time.Time
}

// NewAWSProvider wraps client. A ttl <= 0 uses DefaultAWSCacheTTL.
func NewAWSProvider(client SecretsManagerAPI, ttl time.Duration) *AWSProvider {
	if ttl <= 0 {
		ttl = DefaultAWSCacheTTL
	}
	return &AWSProvider{client: client, ttl: ttl, now: time.Now, cache: make(map[string]awsEntry)}
}

// newAWSProviderFromConfig builds the client from a [secrets.aws] table:
// region, endpoint and cache_ttl.
func newAWSProviderFromConfig(cfg map[string]any) (Provider, error) {
	region, _ := cfg["region"].(string)
	endpoint, _ := cfg["endpoint"].(string)
	var ttl time.Duration
	if raw, ok := cfg["cache_ttl"].(string); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("secret: aws cache_ttl: %w", err)
		}
		ttl = d
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("secret: load aws config: %w", err)
	}
	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSProvider(client, ttl), nil
}

// Name implements Provider.
func (p *AWSProvider) Name() string { return "aws" }

// Resolve implements Provider.
func (p *AWSProvider) Resolve(ctx context.Context, ref string) (string, error) {
	id, field, _ := strings.Cut(ref, "#")
	raw, err := p.secret(ctx, id)
	if err != nil {
		return "", err
	}
	if field == "" {
		return raw, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret: aws secret %s is not a JSON object", mask(id))
	}
	v, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("%w: field %q of aws secret %s", ErrSecretNotFound, field, mask(id))
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func (p *AWSProvider) secret(ctx context.Context, id string) (string, error) {
	now := p.now()
	p.mu.Lock()
	e, ok := p.cache[id]
	p.mu.Unlock()
	if ok && now.Before(e.expires) {
		return e.value, nil
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var nf *smtypes.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: aws secret %s", ErrSecretNotFound, mask(id))
		}
		return "", fmt.Errorf("secret: get aws secret %s: %w", mask(id), err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret: aws secret %s has no string value", mask(id))
	}

	p.mu.Lock()
	p.cache[id] = awsEntry{value: *out.SecretString, expires: now.Add(p.ttl)}
	p.mu.Unlock()
	return *out.SecretString, nil
}

// Close drops cached values.
func (p *AWSProvider) Close() error {
	p.mu.Lock()
	p.cache = make(map[string]awsEntry)
	p.mu.Unlock()
	return nil
}

// mask keeps the tail of a secret id for error messages.
func mask(id string) string {
	if len(id) <= 12 {
		return "***"
	}
	return "..." + id[len(id)-8:]
}

var _ Provider = (*AWSProvider)(nil)
