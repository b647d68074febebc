// Package e2e drives a running teamdns server through Gherkin scenarios.
// The server is expected to run with REGISTRAR_MODE=fake and
// FAKE_REGISTRAR_DOMAINS including the domains the features attach.
package e2e

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Attachment remembers a domain attached during a scenario so it can be
// detached afterwards.
type Attachment struct {
	Alias  string
	TeamID string
	Domain string
}

// TestContext is the per-scenario state shared by every step package.
type TestContext struct {
	baseURL string
	client  *http.Client

	runID    string
	clientIP string

	lastStatus int
	lastBody   []byte

	usernames map[string]string
	tokens    map[string]string
	userIDs   map[string]string
	teamIDs   map[string]string
	records   map[string]int64

	attachments []Attachment
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Reset starts a scenario with fresh aliases and a fresh client address so
// per-IP rate limits do not leak between scenarios.
func (tc *TestContext) Reset() {
	tc.runID = randomHex(4)
	tc.clientIP = fmt.Sprintf("10.%d.%d.%d", randomByte(), randomByte(), randomByte())
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.usernames = make(map[string]string)
	tc.tokens = make(map[string]string)
	tc.userIDs = make(map[string]string)
	tc.teamIDs = make(map[string]string)
	tc.records = make(map[string]int64)
	tc.attachments = nil
}

// Username maps a feature alias such as "alice" to a name unique to this run.
func (tc *TestContext) Username(alias string) string {
	if name, ok := tc.usernames[alias]; ok {
		return name
	}
	name := alias + "-" + tc.runID
	tc.usernames[alias] = name
	return name
}

func (tc *TestContext) Token(alias string) string             { return tc.tokens[alias] }
func (tc *TestContext) SetToken(alias, token string)          { tc.tokens[alias] = token }
func (tc *TestContext) UserID(alias string) string            { return tc.userIDs[alias] }
func (tc *TestContext) SetUserID(alias, userID string)        { tc.userIDs[alias] = userID }
func (tc *TestContext) TeamID(name string) string             { return tc.teamIDs[name] }
func (tc *TestContext) SetTeamID(name, teamID string)         { tc.teamIDs[name] = teamID }
func (tc *TestContext) LastRecord(domain string) int64        { return tc.records[domain] }
func (tc *TestContext) SetLastRecord(domain string, id int64) { tc.records[domain] = id }

func (tc *TestContext) TrackAttachment(alias, teamID, domain string) {
	tc.attachments = append(tc.attachments, Attachment{Alias: alias, TeamID: teamID, Domain: domain})
}

// Cleanup detaches every domain attached during the scenario.
func (tc *TestContext) Cleanup(ctx context.Context) error {
	for _, a := range tc.attachments {
		path := fmt.Sprintf("/teams/%s/domains/%s", a.TeamID, a.Domain)
		if err := tc.Do(ctx, http.MethodDelete, path, tc.Token(a.Alias), nil); err != nil {
			return err
		}
	}
	tc.attachments = nil
	return nil
}

// Do sends one request, with a bearer token when token is non-empty, and
// keeps the response for assertions.
func (tc *TestContext) Do(ctx context.Context, method, path, token string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Forwarded-For", tc.clientIP)

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) LastStatus() int  { return tc.lastStatus }
func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// ResponseField returns a top-level field of the last JSON object response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var obj map[string]any
	if err := json.Unmarshal(tc.lastBody, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := obj[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}

// ResponseList decodes the last response as a JSON array.
func (tc *TestContext) ResponseList() ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(tc.lastBody, &list); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %s", tc.lastBody)
	}
	return list, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func randomByte() int {
	buf := make([]byte, 1)
	_, _ = rand.Read(buf)
	return int(buf[0]%254) + 1
}
