package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
)

func critiqueVotes() []verify.Vote {
	return []verify.Vote{
		{Identity: "gpt-4o", Verdict: model.VerdictSupports, Confidence: 0.9, Explanation: "Clearly\nstated"},
		{Identity: "claude-sonnet-4-5", Verdict: model.VerdictRefutes, Confidence: 0.6, Explanation: "Outdated source"},
	}
}

func TestCritic_OneCritiquePerVote(t *testing.T) {
	p := &fakeProvider{reply: func(req CompletionRequest) (string, error) {
		switch {
		case strings.HasSuffix(req.Prompt, "Write the critique for gpt-4o."):
			return "  Consider the date.  ", nil
		case strings.HasSuffix(req.Prompt, "Write the critique for claude-sonnet-4-5."):
			return "The source is current.", nil
		}
		return "", errors.New("unexpected prompt")
	}}
	c := NewCritic(p, "gpt-4o-mini")

	got, err := c.Critique(context.Background(), verify.CritiqueRequest{
		Claim:    testClaim(),
		Evidence: []model.Evidence{model.NewEvidence("https://example.com", model.SourceWeb, "Paris landmark", 0.8)},
		Votes:    critiqueVotes(),
		Round:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"gpt-4o":            "Consider the date.",
		"claude-sonnet-4-5": "The source is current.",
	}, got)
	assert.Equal(t, 2, p.calls())
}

func TestCritic_PromptShowsOtherVotes(t *testing.T) {
	p := &fakeProvider{replies: []string{"ok"}}
	c := NewCritic(p, "gpt-4o-mini")

	_, err := c.Critique(context.Background(), verify.CritiqueRequest{
		Claim: testClaim(),
		Votes: critiqueVotes()[:1],
		Round: 2,
	})
	require.NoError(t, err)

	req := p.lastRequest()
	assert.Contains(t, req.Prompt, "Their verdict: SUPPORTS (confidence: 0.90)")
	assert.Contains(t, req.Prompt, "Their reasoning: Clearly stated")
	assert.Contains(t, req.Prompt, "OTHER MODEL VERDICTS:\n(none)")
	assert.Contains(t, req.Prompt, "No evidence provided.")
	assert.Equal(t, "gpt-4o-mini", req.Model)
}

func TestCritic_FailureFailsRound(t *testing.T) {
	p := &fakeProvider{reply: func(CompletionRequest) (string, error) {
		return "", NewFatalError(errors.New("invalid key"))
	}}
	c := NewCritic(p, "gpt-4o-mini")

	_, err := c.Critique(context.Background(), verify.CritiqueRequest{Claim: testClaim(), Votes: critiqueVotes(), Round: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestOtherVotes(t *testing.T) {
	got := otherVotes(critiqueVotes(), "gpt-4o")
	assert.Equal(t, "- claude-sonnet-4-5: REFUTES (confidence: 0.60) Outdated source", got)
}
