package secret

import (
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("DB_USER", "app")

	tests := []struct {
		in   string
		want string
	}{
		{"${DB_USER}", "app"},
		{"user=${DB_USER} pw=$ecret", "user=app pw=$ecret"},
		{"$$${DB_USER}", "$app"},
		{"$$", "$"},
		{"no vars", "no vars"},
	}
	for _, tt := range tests {
		got, err := ExpandEnvStrict(tt.in)
		if err != nil {
			t.Errorf("ExpandEnvStrict(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandEnvStrict_MissingVars(t *testing.T) {
	_, err := ExpandEnvStrict("${DATACONN_ZZ_MISSING} ${DATACONN_AA_MISSING} ${DATACONN_ZZ_MISSING}")
	if err == nil {
		t.Fatal("ExpandEnvStrict() error = nil, want error")
	}
	if !strings.HasSuffix(err.Error(), "DATACONN_AA_MISSING, DATACONN_ZZ_MISSING") {
		t.Errorf("error = %v, want sorted unique names", err)
	}
}
