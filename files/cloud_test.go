package files

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/dataconn/config"
)

func TestGCSCredentials(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Section
		wantFile string
		wantJSON map[string]any
		wantAnon bool
	}{
		{name: "application default", cfg: config.Section{"default_bucket": "b"}},
		{name: "credentials file", cfg: config.Section{"credentials_file": "/k.json"}, wantFile: "/k.json"},
		{name: "token path", cfg: config.Section{"token": "/t.json"}, wantFile: "/t.json"},
		{name: "anonymous", cfg: config.Section{"token": "anon"}, wantAnon: true},
		{
			name:     "token table",
			cfg:      config.Section{"token": map[string]any{"type": "service_account"}},
			wantJSON: map[string]any{"type": "service_account"},
		},
		{
			name: "inline service account",
			cfg: config.Section{
				"type":           "service_account",
				"private_key":    "pk",
				"client_email":   "a@b",
				"default_bucket": "b",
			},
			wantJSON: map[string]any{"type": "service_account", "private_key": "pk", "client_email": "a@b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, anon, err := gcsCredentials(tt.cfg)
			if err != nil {
				t.Fatalf("gcsCredentials: %v", err)
			}
			if anon != tt.wantAnon {
				t.Errorf("anon = %v, want %v", anon, tt.wantAnon)
			}
			if creds.file != tt.wantFile {
				t.Errorf("file = %q, want %q", creds.file, tt.wantFile)
			}
			var got map[string]any
			if len(creds.json) > 0 {
				if err := json.Unmarshal(creds.json, &got); err != nil {
					t.Fatalf("credentials json: %v", err)
				}
			}
			if diff := cmp.Diff(tt.wantJSON, got); diff != "" {
				t.Errorf("credentials mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAzureServiceURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Section
		want    string
		wantErr error
	}{
		{name: "account", cfg: config.Section{"account_name": "acct"}, want: "https://acct.blob.core.windows.net/"},
		{name: "endpoint", cfg: config.Section{"endpoint": "http://127.0.0.1:10000/devstoreaccount1"}, want: "http://127.0.0.1:10000/devstoreaccount1/"},
		{name: "missing", cfg: config.Section{}, wantErr: ErrAzureAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := azureServiceURL(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("azureServiceURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewAzureFS_AuthModes(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Section
		wantAnon bool
	}{
		{
			name: "connection string",
			cfg: config.Section{
				"connection_string": "DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=a2V5;EndpointSuffix=core.windows.net",
			},
		},
		{name: "shared key", cfg: config.Section{"account_name": "acct", "account_key": "a2V5"}},
		{name: "sas", cfg: config.Section{"account_name": "acct", "sas_token": "?sv=2020&sig=x"}},
		{name: "anonymous", cfg: config.Section{"account_name": "acct"}, wantAnon: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := newAzureFS(tt.cfg)
			if err != nil {
				t.Fatalf("newAzureFS: %v", err)
			}
			if fs.anonymous != tt.wantAnon {
				t.Errorf("anonymous = %v, want %v", fs.anonymous, tt.wantAnon)
			}
			if fs.Protocol() != ProtocolAzure {
				t.Errorf("Protocol = %q", fs.Protocol())
			}
		})
	}

	if _, err := newAzureFS(config.Section{}); !errors.Is(err, ErrAzureAccount) {
		t.Errorf("empty config error = %v, want ErrAzureAccount", err)
	}
}
