package snowpark

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/dataconn/config"
)

// Session defaults.
const (
	TokenLifetime    = 59 * time.Minute
	DefaultTimeout   = 60 * time.Second
	DefaultPollDelay = 500 * time.Millisecond
)

// timeNow is the session clock.
var timeNow = time.Now

// StatementContext is the warehouse, database, schema and role statements
// run in. Empty fields use the user's defaults.
type StatementContext struct {
	Warehouse string `json:"warehouse,omitempty"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Session is an authenticated SQL API session. It is safe for concurrent
// use.
type Session struct {
	http        *http.Client
	endpoint    string
	account     string
	user        string
	fingerprint string
	key         *rsa.PrivateKey
	context     StatementContext
	timeout     time.Duration
	pollDelay   time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
	closed  bool
}

// NewSession builds a Session from a config section and signs its first
// token. It does not contact Snowflake.
func NewSession(cfg config.Section) (*Session, error) {
	account := cfg.String("account")
	if account == "" {
		return nil, ErrMissingAccount
	}
	user := cfg.String("user")
	if user == "" {
		return nil, ErrMissingUser
	}
	key, err := loadKey(cfg)
	if err != nil {
		return nil, err
	}
	fp, err := Fingerprint(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Duration("timeout", DefaultTimeout)
	if err != nil {
		return nil, err
	}
	pollDelay, err := cfg.Duration("poll_delay", DefaultPollDelay)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.StringOr("endpoint", "https://"+strings.ToLower(account)+".snowflakecomputing.com")
	s := &Session{
		http:        &http.Client{Timeout: timeout + 10*time.Second},
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		account:     AccountIdentifier(account),
		user:        strings.ToUpper(user),
		fingerprint: fp,
		key:         key,
		timeout:     timeout,
		pollDelay:   pollDelay,
		context: StatementContext{
			Warehouse: cfg.String("warehouse"),
			Database:  cfg.String("database"),
			Schema:    cfg.String("schema"),
			Role:      cfg.String("role"),
		},
	}
	if err := s.sign(); err != nil {
		return nil, err
	}
	return s, nil
}

func loadKey(cfg config.Section) (*rsa.PrivateKey, error) {
	pemData := []byte(cfg.String("private_key"))
	if len(pemData) == 0 {
		path := cfg.String("private_key_file")
		if path == "" {
			return nil, ErrMissingKey
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("snowpark: read private key: %w", err)
		}
		pemData = data
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("snowpark: parse private key: %w", err)
	}
	return key, nil
}

// Fingerprint returns the "SHA256:<base64>" fingerprint Snowflake stores for
// a public key.
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("snowpark: marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return "SHA256:" + base64.StdEncoding.EncodeToString(sum[:]), nil
}

// AccountIdentifier returns the account part used in JWT claims: upper case,
// without region or cloud suffixes.
func AccountIdentifier(account string) string {
	if i := strings.IndexByte(account, '.'); i >= 0 {
		account = account[:i]
	}
	return strings.ToUpper(account)
}

// sign issues a new token. Callers hold no lock.
func (s *Session) sign() error {
	now := timeNow()
	exp := now.Add(TokenLifetime)
	subject := s.account + "." + s.user
	claims := jwt.RegisteredClaims{
		Issuer:    subject + "." + s.fingerprint,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return fmt.Errorf("snowpark: sign token: %w", err)
	}
	s.mu.Lock()
	s.token, s.expires = token, exp
	s.mu.Unlock()
	return nil
}

// Context returns the statement context.
func (s *Session) Context() StatementContext { return s.context }

// Expires returns when the current token expires.
func (s *Session) Expires() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}

// Check reports ErrSessionClosed or ErrSessionExpired.
func (s *Session) Check() error {
	_, err := s.bearer()
	return err
}

func (s *Session) bearer() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if !timeNow().Before(s.expires) {
		return "", ErrSessionExpired
	}
	return s.token, nil
}

// Close marks the session closed. Tokens cannot be revoked, so nothing is
// sent to Snowflake.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.http.CloseIdleConnections()
	return nil
}

// Binding is one positional statement parameter.
type Binding struct {
	Type  string  `json:"type"`
	Value *string `json:"value"`
}

// Bind converts Go values to SQL API bindings keyed "1", "2", ...
func Bind(params ...any) map[string]Binding {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]Binding, len(params))
	for i, p := range params {
		var b Binding
		switch v := p.(type) {
		case nil:
			b.Type = "TEXT"
		case bool:
			b.Type, b.Value = "BOOLEAN", ptr(fmt.Sprint(v))
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			b.Type, b.Value = "FIXED", ptr(fmt.Sprint(v))
		case float32, float64:
			b.Type, b.Value = "REAL", ptr(fmt.Sprint(v))
		case time.Time:
			b.Type, b.Value = "TIMESTAMP_LTZ", ptr(fmt.Sprint(v.UnixNano()))
		default:
			b.Type, b.Value = "TEXT", ptr(fmt.Sprint(v))
		}
		out[fmt.Sprint(i+1)] = b
	}
	return out
}

func ptr(s string) *string { return &s }

type statementRequest struct {
	Statement string             `json:"statement"`
	Timeout   int                `json:"timeout,omitempty"`
	Bindings  map[string]Binding `json:"bindings,omitempty"`
	StatementContext
}

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Scale    int    `json:"scale"`
	Nullable bool   `json:"nullable"`
}

// Result is a complete statement result with every partition fetched.
type Result struct {
	Handle  string
	Columns []Column
	Data    [][]*string
}

type statementResponse struct {
	Handle            string `json:"statementHandle"`
	Code              string `json:"code"`
	Message           string `json:"message"`
	ResultSetMetaData struct {
		NumRows       int      `json:"numRows"`
		RowType       []Column `json:"rowType"`
		PartitionInfo []struct {
			RowCount int `json:"rowCount"`
		} `json:"partitionInfo"`
	} `json:"resultSetMetaData"`
	Data [][]*string `json:"data"`
}

// Execute runs one statement and returns its full result. A statement
// still running after submission is polled until it finishes.
func (s *Session) Execute(ctx context.Context, statement string, bindings map[string]Binding) (*Result, error) {
	body, err := json.Marshal(statementRequest{
		Statement:        statement,
		Timeout:          int(s.timeout / time.Second),
		Bindings:         bindings,
		StatementContext: s.context,
	})
	if err != nil {
		return nil, fmt.Errorf("snowpark: encode statement: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, "/api/v2/statements", nil, body)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Handle:  resp.Handle,
		Columns: resp.ResultSetMetaData.RowType,
		Data:    resp.Data,
	}
	for p := 1; p < len(resp.ResultSetMetaData.PartitionInfo); p++ {
		part, err := s.do(ctx, http.MethodGet, "/api/v2/statements/"+url.PathEscape(resp.Handle),
			url.Values{"partition": {fmt.Sprint(p)}}, nil)
		if err != nil {
			return nil, err
		}
		res.Data = append(res.Data, part.Data...)
	}
	return res, nil
}

// do sends one request, polling while the API answers 202.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, body []byte) (*statementResponse, error) {
	for {
		status, resp, err := s.send(ctx, method, path, query, body)
		if err != nil {
			return nil, err
		}
		if status != http.StatusAccepted {
			return resp, nil
		}
		method, path, query, body = http.MethodGet, "/api/v2/statements/"+url.PathEscape(resp.Handle), nil, nil
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollDelay):
		}
	}
}

func (s *Session) send(ctx context.Context, method, path string, query url.Values, body []byte) (int, *statementResponse, error) {
	token, err := s.bearer()
	if err != nil {
		return 0, nil, err
	}
	u := s.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("snowpark: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Snowflake-Authorization-Token-Type", "KEYPAIR_JWT")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("snowpark: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("snowpark: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return 0, nil, apiErr
	}
	var out statementResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, nil, fmt.Errorf("snowpark: decode response: %w", err)
	}
	return resp.StatusCode, &out, nil
}
