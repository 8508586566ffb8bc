package llm

import (
	"context"
	"sync"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// fakeProvider replays canned replies and records every request
type fakeProvider struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	reply    func(req CompletionRequest) (string, error)
	requests []CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func (f *fakeProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.requests)
	f.requests = append(f.requests, req)

	if f.reply != nil {
		text, err := f.reply(req)
		if err != nil {
			return nil, err
		}
		return &CompletionResponse{Text: text, Model: req.Model}, nil
	}
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	if len(f.replies) == 0 {
		return &CompletionResponse{Model: req.Model}, nil
	}
	text := f.replies[min(n, len(f.replies)-1)]
	return &CompletionResponse{Text: text, Model: req.Model}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeProvider) lastRequest() CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func fastRetry() Option {
	return WithRetry(RetryConfig{MaxAttempts: 3, BackoffBase: time.Millisecond, BackoffMultiplier: 2})
}

func testClaim() model.Claim {
	return model.Claim{ID: model.ClaimID(0), Text: "The Eiffel Tower is in Paris", ClaimType: model.ClaimTypeExplicit}
}
