package secret

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

type fakeSecretsManager struct {
	values map[string]string
	calls  int
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("no such secret")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestAWSProvider_Resolve(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{
		"prod/openai":  "sk-live",
		"prod/pets_db": `{"username":"app","password":"hunter2","port":5432}`,
	}}
	p := NewAWSProvider(fake, time.Minute)
	ctx := context.Background()

	tests := []struct {
		ref  string
		want string
	}{
		{"prod/openai", "sk-live"},
		{"prod/pets_db#password", "hunter2"},
		{"prod/pets_db#port", "5432"},
	}
	for _, tt := range tests {
		got, err := p.Resolve(ctx, tt.ref)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
	if fake.calls != 2 {
		t.Errorf("GetSecretValue calls = %d, want 2 (one per secret)", fake.calls)
	}
}

func TestAWSProvider_CacheExpires(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"k": "v1"}}
	p := NewAWSProvider(fake, time.Minute)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := p.Resolve(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	fake.values["k"] = "v2"
	if got, _ := p.Resolve(ctx, "k"); got != "v1" {
		t.Errorf("cached value = %q, want v1", got)
	}

	now = now.Add(2 * time.Minute)
	if got, _ := p.Resolve(ctx, "k"); got != "v2" {
		t.Errorf("value after ttl = %q, want v2", got)
	}
	if fake.calls != 2 {
		t.Errorf("calls = %d, want 2", fake.calls)
	}
}

func TestAWSProvider_Errors(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"plain": "x", "obj": `{"a":"b"}`}}
	p := NewAWSProvider(fake, 0)
	ctx := context.Background()

	if _, err := p.Resolve(ctx, "missing/secret/name"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("missing secret: err = %v, want ErrSecretNotFound", err)
	}
	if _, err := p.Resolve(ctx, "obj#nope"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("missing field: err = %v, want ErrSecretNotFound", err)
	}
	if _, err := p.Resolve(ctx, "plain#field"); err == nil {
		t.Error("field of a non-JSON secret: expected error")
	}
}

func TestAWSProvider_ThroughResolver(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{
		"arn:aws:secretsmanager:us-east-1:123456789012:secret:pets": `{"password":"pw"}`,
	}}
	r := NewResolver(true, NewAWSProvider(fake, time.Minute))

	got, err := r.ResolveValue(context.Background(), "secretref:aws:arn:aws:secretsmanager:us-east-1:123456789012:secret:pets#password")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "pw" {
		t.Errorf("ResolveValue() = %q, want pw", got)
	}
}
