package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/qaforge/backend/internal/cache"
	"github.com/qaforge/backend/internal/storage/models"
)

type stubBackend struct {
	name     string
	response string
	err      error

	mu         sync.Mutex
	lastPrompt string
	calls      int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Complete(_ context.Context, _, userPrompt string) (string, error) {
	s.mu.Lock()
	s.lastPrompt = userPrompt
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func approvedJSON(category string, rating int) string {
	return fmt.Sprintf(`{"decision": "approved", "quality_rating": %d, "category": %q}`, rating, category)
}

const rejectedJSON = `{"decision": "rejected", "category": "General"}`

func newTestEnsemble(t *testing.T, backends ...Backend) *Ensemble {
	t.Helper()
	e, err := NewEnsemble(backends, cache.NewMemoryCache())
	if err != nil {
		t.Fatalf("NewEnsemble failed: %v", err)
	}
	return e
}

func TestMajorityVoteProperty(t *testing.T) {
	// Every 3-backend vote combination: approved iff strictly more than half
	// approve.
	for mask := 0; mask < 8; mask++ {
		backends := make([]Backend, 3)
		approvals := 0
		for i := 0; i < 3; i++ {
			response := rejectedJSON
			if mask&(1<<i) != 0 {
				response = approvedJSON("General", 5)
				approvals++
			}
			backends[i] = &stubBackend{name: fmt.Sprintf("backend-%d", i), response: response}
		}

		e := newTestEnsemble(t, backends...)
		question := fmt.Sprintf("What does vote combination %d mean for consensus?", mask)
		result, err := e.Classify(context.Background(), question, "An answer long enough to matter.")
		if err != nil {
			t.Fatalf("mask %d: classify failed: %v", mask, err)
		}

		want := models.DecisionRejected
		if approvals > 1 {
			want = models.DecisionApproved
		}
		if result.Decision != want {
			t.Errorf("mask %d (%d approvals): decision = %q, want %q", mask, approvals, result.Decision, want)
		}
		if len(result.Votes) != 3 {
			t.Errorf("mask %d: got %d votes, want 3", mask, len(result.Votes))
		}
	}
}

func TestMajorityGeneralizesToFiveBackends(t *testing.T) {
	backends := make([]Backend, 5)
	for i := 0; i < 5; i++ {
		response := rejectedJSON
		if i < 2 {
			response = approvedJSON("General", 5)
		}
		backends[i] = &stubBackend{name: fmt.Sprintf("backend-%d", i), response: response}
	}

	e := newTestEnsemble(t, backends...)
	result, err := e.Classify(context.Background(), "Is two out of five a majority?", "No, it is not a majority.")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.Decision != models.DecisionRejected {
		t.Fatalf("2/5 approvals must reject, got %q", result.Decision)
	}
}

func TestBackendFailureBecomesRejectedVote(t *testing.T) {
	failing := &stubBackend{name: "flaky", err: errors.New("connection reset")}
	backends := []Backend{
		&stubBackend{name: "a", response: approvedJSON("DeFi", 8)},
		&stubBackend{name: "b", response: approvedJSON("DeFi", 7)},
		failing,
	}

	e := newTestEnsemble(t, backends...)
	result, err := e.Classify(context.Background(), "How do AMM pools price swaps?", "Via constant product curves and fees.")
	if err != nil {
		t.Fatalf("a single failing backend must not fail the ensemble: %v", err)
	}

	if result.Decision != models.DecisionApproved {
		t.Fatalf("2/3 approvals should approve, got %q", result.Decision)
	}

	var failedVote *Vote
	for i := range result.Votes {
		if result.Votes[i].Backend == "flaky" {
			failedVote = &result.Votes[i]
		}
	}
	if failedVote == nil {
		t.Fatalf("missing vote for failed backend")
	}
	if failedVote.Decision != models.DecisionRejected {
		t.Errorf("failed backend vote = %q, want rejected", failedVote.Decision)
	}
	if failedVote.Category != models.DefaultCategory {
		t.Errorf("failed backend category = %q, want %q", failedVote.Category, models.DefaultCategory)
	}
	if !strings.HasPrefix(failedVote.RawResponse, "ERROR:") {
		t.Errorf("failed backend should keep an error marker, got %q", failedVote.RawResponse)
	}
}

func TestAllBackendsFailingStillDecides(t *testing.T) {
	backends := []Backend{
		&stubBackend{name: "a", err: errors.New("timeout")},
		&stubBackend{name: "b", err: errors.New("timeout")},
		&stubBackend{name: "c", err: errors.New("timeout")},
	}

	e := newTestEnsemble(t, backends...)
	result, err := e.Classify(context.Background(), "Does a dead ensemble still answer?", "It answers with a rejection.")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.Decision != models.DecisionRejected {
		t.Fatalf("all-failed ensemble must reject, got %q", result.Decision)
	}
	if result.Category != models.DefaultCategory {
		t.Fatalf("all-failed category = %q, want %q", result.Category, models.DefaultCategory)
	}
}

func TestCategoryPlurality(t *testing.T) {
	backends := []Backend{
		&stubBackend{name: "a", response: approvedJSON("DeFi", 8)},
		&stubBackend{name: "b", response: approvedJSON("NFT", 6)},
		&stubBackend{name: "c", response: approvedJSON("DeFi", 7)},
	}

	e := newTestEnsemble(t, backends...)
	result, err := e.Classify(context.Background(), "Where do lending rates come from?", "Utilization curves set borrow rates.")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.Category != "DeFi" {
		t.Fatalf("category = %q, want DeFi", result.Category)
	}
}

func TestCategoryTieBreaksOnFirstVote(t *testing.T) {
	backends := []Backend{
		&stubBackend{name: "a", response: approvedJSON("Privacy", 8)},
		&stubBackend{name: "b", response: approvedJSON("Consensus", 6)},
		&stubBackend{name: "c", response: approvedJSON("Wallets", 7)},
	}

	e := newTestEnsemble(t, backends...)
	result, err := e.Classify(context.Background(), "What does a three way category tie produce?", "The first backend's category wins.")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.Category != "Privacy" {
		t.Fatalf("tie-break category = %q, want Privacy (first vote)", result.Category)
	}
}

func TestRejectedStillGetsCategory(t *testing.T) {
	backends := []Backend{
		&stubBackend{name: "a", response: `{"decision": "rejected", "category": "Economics"}`},
		&stubBackend{name: "b", response: `{"decision": "rejected", "category": "Economics"}`},
		&stubBackend{name: "c", response: approvedJSON("DeFi", 9)},
	}

	e := newTestEnsemble(t, backends...)
	result, err := e.Classify(context.Background(), "Is staking yield just inflation?", "Mostly, minus fee revenue.")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.Decision != models.DecisionRejected {
		t.Fatalf("decision = %q, want rejected", result.Decision)
	}
	if result.Category != "Economics" {
		t.Fatalf("rejected record category = %q, want Economics", result.Category)
	}
}

func TestCacheHitSkipsBackends(t *testing.T) {
	a := &stubBackend{name: "a", response: approvedJSON("DeFi", 8)}
	b := &stubBackend{name: "b", response: approvedJSON("DeFi", 8)}
	c := &stubBackend{name: "c", response: approvedJSON("DeFi", 8)}

	e := newTestEnsemble(t, a, b, c)
	question := "How do flash loans stay atomic?"
	answer := "Borrow and repay inside one transaction."

	first, err := e.Classify(context.Background(), question, answer)
	if err != nil {
		t.Fatalf("first classify failed: %v", err)
	}
	if len(first.Votes) != 3 {
		t.Fatalf("first call should carry votes, got %d", len(first.Votes))
	}

	second, err := e.Classify(context.Background(), question, answer)
	if err != nil {
		t.Fatalf("second classify failed: %v", err)
	}
	if second.Decision != first.Decision || second.Category != first.Category {
		t.Fatalf("cached result diverged: %+v vs %+v", second, first)
	}
	if len(second.Votes) != 0 {
		t.Fatalf("cached result must carry no votes, got %d", len(second.Votes))
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Fatalf("cache hit must not call backends again: %d %d %d", a.calls, b.calls, c.calls)
	}
}

func TestPromptCarriesSanitizedContent(t *testing.T) {
	a := &stubBackend{name: "a", response: approvedJSON("Security", 8)}
	e := newTestEnsemble(t, a)

	_, err := e.Classify(context.Background(),
		"How <script>do</script> seed phrases work?",
		"They encode the wallet master key; never share them!")
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}

	if strings.Contains(a.lastPrompt, "<script>") {
		t.Errorf("prompt still contains unsanitized markup")
	}
	if !strings.Contains(a.lastPrompt, "seed phrases work") {
		t.Errorf("prompt lost the question text: %q", a.lastPrompt)
	}
	if !strings.Contains(a.lastPrompt, "wallet master key") {
		t.Errorf("prompt lost the answer text: %q", a.lastPrompt)
	}
}

func TestNewEnsembleRequiresBackends(t *testing.T) {
	if _, err := NewEnsemble(nil, cache.NewMemoryCache()); err == nil {
		t.Fatalf("expected error for empty backend list")
	}
}
