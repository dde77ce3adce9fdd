// Package protocol talks to the remote scoring service. Every operation is a
// single JSON POST with no retry; replies are normalized into one shape
// before the state machine sees them.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/berth-dev/assessor/internal/model"
)

// Operation names used in errors.
const (
	OpInitiate = "initiate"
	OpBaseline = "baseline"
	OpNext     = "next"
	OpReport   = "report"
)

// Endpoints holds the path of each operation relative to the base URL.
type Endpoints struct {
	Initiate string
	Baseline string
	Next     string
	Report   string
}

// DefaultEndpoints returns the scoring service's standard paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Initiate: "/api/assessment/start",
		Baseline: "/api/assessment/baseline",
		Next:     "/api/assessment/next",
		Report:   "/api/assessment/report",
	}
}

// Client provides typed access to the scoring service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	endpoints  Endpoints
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithEndpoints overrides operation paths. Empty fields keep their default.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		if e.Initiate != "" {
			c.endpoints.Initiate = e.Initiate
		}
		if e.Baseline != "" {
			c.endpoints.Baseline = e.Baseline
		}
		if e.Next != "" {
			c.endpoints.Next = e.Next
		}
		if e.Report != "" {
			c.endpoints.Report = e.Report
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoints: DefaultEndpoints(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitiateRequest starts a session.
type InitiateRequest struct {
	Tier                      model.Tier        `json:"tier"`
	Concerns                  []string          `json:"concerns"`
	Demographics              map[string]string `json:"demographics"`
	PreferIntelligentSelector bool              `json:"preferIntelligentSelector"`
}

// Initiate creates a session and returns its first batch.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*Opening, error) {
	if req.Concerns == nil {
		req.Concerns = []string{}
	}
	if req.Demographics == nil {
		req.Demographics = map[string]string{}
	}

	var raw rawOpening
	if err := c.post(ctx, OpInitiate, c.endpoints.Initiate, req, &raw); err != nil {
		return nil, err
	}

	return &Opening{
		Turn:           raw.normalize(),
		SessionID:      raw.SessionID.value,
		TotalQuestions: raw.TotalQuestions,
		Shape: Shape{
			Mode:               raw.Mode,
			SingleQuestionMode: raw.SingleQuestionMode,
			HasCurrentStage:    raw.CurrentStage.set,
		},
	}, nil
}

// SubmitBaselineAndGetAdaptive sends the baseline ledger and returns the
// adaptive profile together with the first adaptive batch.
func (c *Client) SubmitBaselineAndGetAdaptive(ctx context.Context, sessionID string, baseline []*model.Response) (*AdaptiveHandoff, error) {
	body := struct {
		SessionID         string           `json:"sessionId"`
		BaselineResponses []model.Response `json:"baselineResponses"`
	}{
		SessionID:         sessionID,
		BaselineResponses: values(baseline),
	}

	var raw rawBaselineReply
	if err := c.post(ctx, OpBaseline, c.endpoints.Baseline, body, &raw); err != nil {
		return nil, err
	}
	if !raw.Success {
		msg := raw.Error
		if msg == "" {
			msg = "baseline submission was rejected"
		}
		return nil, &Error{Op: OpBaseline, Message: msg}
	}

	markSent(baseline)
	return &AdaptiveHandoff{Turn: raw.normalize(), Profile: raw.Profile}, nil
}

// SubmitAndGetNext sends answered questions and returns the next step.
// With single set and exactly one unsent response the request uses the
// {sessionId, response} shape; otherwise every unsent response is sent as
// {sessionId, responses}. Responses already marked Sent are skipped.
func (c *Client) SubmitAndGetNext(ctx context.Context, sessionID string, responses []*model.Response, single bool) (*Turn, error) {
	pending := unsent(responses)

	var body any
	if single && len(pending) == 1 {
		body = struct {
			SessionID string         `json:"sessionId"`
			Response  model.Response `json:"response"`
		}{SessionID: sessionID, Response: *pending[0]}
	} else {
		body = struct {
			SessionID string           `json:"sessionId"`
			Responses []model.Response `json:"responses"`
		}{SessionID: sessionID, Responses: values(pending)}
	}

	var raw rawTurn
	if err := c.post(ctx, OpNext, c.endpoints.Next, body, &raw); err != nil {
		return nil, err
	}

	markSent(pending)
	turn := raw.normalize()
	return &turn, nil
}

// ReportRequest asks the service to build the final report.
type ReportRequest struct {
	SessionID string `json:"sessionId"`
	model.Payload
}

// RequestReport returns the report object exactly as the service sent it.
func (c *Client) RequestReport(ctx context.Context, req ReportRequest) (json.RawMessage, error) {
	var raw rawReportReply
	if err := c.post(ctx, OpReport, c.endpoints.Report, req, &raw); err != nil {
		return nil, err
	}
	if len(raw.Report) == 0 || bytes.Equal(raw.Report, []byte("null")) {
		return nil, &Error{Op: OpReport, Message: "reply carried no report"}
	}
	return raw.Report, nil
}

// post performs one JSON round trip. All failures come back as *Error.
func (c *Client) post(ctx context.Context, op, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Message: "encode body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &Error{Op: op, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("POST %s: %w", path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &Error{Op: op, Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &Error{Op: op, Status: resp.StatusCode, Message: "decode response", Err: err}
		}
	}
	return nil
}

// errorMessage pulls a readable message out of an error body. It accepts
// {"error": "..."}, {"error": {"message": "..."}} and {"message": "..."},
// and falls back to the raw text.
func errorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var s string
			if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
				return s
			}
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
				return obj.Message
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(body))
}

func unsent(responses []*model.Response) []*model.Response {
	out := make([]*model.Response, 0, len(responses))
	for _, r := range responses {
		if !r.Sent {
			out = append(out, r)
		}
	}
	return out
}

func values(responses []*model.Response) []model.Response {
	out := make([]model.Response, 0, len(responses))
	for _, r := range responses {
		out = append(out, *r)
	}
	return out
}

func markSent(responses []*model.Response) {
	for _, r := range responses {
		r.Sent = true
	}
}
