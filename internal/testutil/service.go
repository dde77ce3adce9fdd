package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Service dialects the fake can speak.
const (
	DialectLegacy      = "legacy"
	DialectStaged      = "staged"
	DialectIntelligent = "intelligent"
)

// ServiceOptions configure a FakeService.
type ServiceOptions struct {
	Dialect   string // defaults to DialectStaged
	Total     int    // questions in the whole session, defaults to 6
	BatchSize int    // questions per batch, defaults to 3 (1 for intelligent)
}

// FakeService is an httptest server that speaks the scoring service's
// JSON protocol on the default endpoints.
type FakeService struct {
	*httptest.Server

	opts ServiceOptions

	mu       sync.Mutex
	served   int
	answered int
	calls    map[string]int
	bodies   map[string][]json.RawMessage
}

// NewFakeService starts a fake scoring service that is closed when the test ends.
func NewFakeService(t *testing.T, opts ServiceOptions) *FakeService {
	t.Helper()
	if opts.Dialect == "" {
		opts.Dialect = DialectStaged
	}
	if opts.Total <= 0 {
		opts.Total = 6
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 3
		if opts.Dialect == DialectIntelligent {
			opts.BatchSize = 1
		}
	}

	s := &FakeService{
		opts:   opts,
		calls:  make(map[string]int),
		bodies: make(map[string][]json.RawMessage),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/assessment/start", s.handle("start", s.start))
	mux.HandleFunc("/api/assessment/baseline", s.handle("baseline", s.baseline))
	mux.HandleFunc("/api/assessment/next", s.handle("next", s.next))
	mux.HandleFunc("/api/assessment/report", s.handle("report", s.report))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Calls returns how many times op was requested.
func (s *FakeService) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Bodies returns the raw request bodies received for op.
func (s *FakeService) Bodies(op string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.bodies[op]...)
}

func (s *FakeService) handle(op string, fn func(body map[string]json.RawMessage) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
			return
		}
		var body map[string]json.RawMessage
		_ = json.Unmarshal(raw, &body)

		s.mu.Lock()
		s.calls[op]++
		s.bodies[op] = append(s.bodies[op], raw)
		reply := fn(body)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}
}

func (s *FakeService) start(map[string]json.RawMessage) any {
	s.served, s.answered = 0, 0
	reply := map[string]any{
		"sessionId":      "fake-session",
		"totalQuestions": s.opts.Total,
		"confidence":     map[string]any{},
	}
	switch s.opts.Dialect {
	case DialectLegacy:
		reply["questions"] = s.batch()
	case DialectIntelligent:
		reply["mode"] = "intelligent"
		reply["singleQuestionMode"] = true
		reply["nextQuestions"] = s.batch()
	default:
		reply["currentStage"] = 1
		reply["currentBatch"] = s.batch()
	}
	return reply
}

func (s *FakeService) baseline(body map[string]json.RawMessage) any {
	var responses []json.RawMessage
	_ = json.Unmarshal(body["baselineResponses"], &responses)
	s.answered += len(responses)
	return map[string]any{
		"success":           true,
		"profile":           map[string]any{"archetype": "explorer"},
		"adaptiveQuestions": s.batch(),
		"progress":          map[string]int{"current": s.answered, "total": s.opts.Total},
		"confidence":        s.confidence(),
	}
}

func (s *FakeService) next(body map[string]json.RawMessage) any {
	if _, single := body["response"]; single {
		s.answered++
	} else {
		var responses []json.RawMessage
		_ = json.Unmarshal(body["responses"], &responses)
		s.answered += len(responses)
	}
	if s.served >= s.opts.Total {
		return map[string]any{"complete": true}
	}

	reply := map[string]any{
		"progress":   map[string]int{"current": s.answered, "total": s.opts.Total},
		"confidence": s.confidence(),
	}
	switch s.opts.Dialect {
	case DialectIntelligent:
		reply["nextQuestions"] = s.batch()
	case DialectLegacy:
		reply["questions"] = s.batch()
	default:
		reply["currentStage"] = 1 + s.served/s.opts.BatchSize
		reply["currentBatch"] = s.batch()
	}
	return reply
}

func (s *FakeService) report(body map[string]json.RawMessage) any {
	var responses []json.RawMessage
	_ = json.Unmarshal(body["responses"], &responses)
	return map[string]any{
		"report": map[string]any{
			"title":     "Fake Report",
			"responses": len(responses),
		},
	}
}

// batch serves the next questions, never more than the session total.
func (s *FakeService) batch() []map[string]any {
	n := s.opts.BatchSize
	if remaining := s.opts.Total - s.served; n > remaining {
		n = remaining
	}
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		s.served++
		out = append(out, question(fmt.Sprintf("q%d", s.served)))
	}
	return out
}

func (s *FakeService) confidence() map[string]any {
	pct := 100 * s.answered / s.opts.Total
	return map[string]any{
		"openness": map[string]any{
			"confidence":    pct,
			"interval":      map[string]int{"lower": pct / 2, "upper": pct},
			"level":         "moderate",
			"questionCount": s.answered,
		},
	}
}

func question(id string) map[string]any {
	labels := []string{"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree"}
	opts := make([]map[string]any, len(labels))
	for i, l := range labels {
		opts[i] = map[string]any{"label": l, "value": fmt.Sprint(i + 1)}
	}
	return map[string]any{
		"id":           id,
		"text":         "Statement " + id,
		"category":     "personality",
		"responseType": "likert",
		"options":      opts,
	}
}
