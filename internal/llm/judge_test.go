package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
)

func TestJudge_DecodesFencedReply(t *testing.T) {
	p := &fakeProvider{replies: []string{"Here is my answer:\n```json\n{\"verdict\": \"REFUTES\", \"confidence\": 0.85, \"reasoning\": \"Wrong year\", \"key_evidence\": \"1991\",}\n```"}}
	j := NewJudge(p, "gpt-4o")

	got, err := j.Judge(context.Background(), verify.JudgeRequest{ClaimText: "Go was released in 1991", EvidenceText: "Go was announced in 2009"})
	require.NoError(t, err)

	assert.Equal(t, "REFUTES", got.Verdict)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.Equal(t, "Wrong year", got.Reasoning)
	assert.Equal(t, "1991", got.KeyEvidence)

	req := p.lastRequest()
	assert.Equal(t, "gpt-4o", req.Model)
	assert.True(t, req.JSON)
	assert.Contains(t, req.Prompt, "Go was released in 1991")
	assert.Contains(t, req.Prompt, "Go was announced in 2009")
	assert.Equal(t, verificationSystem, req.System)
	assert.Equal(t, "gpt-4o", j.Model())
}

func TestJudge_NeverRetries(t *testing.T) {
	p := &fakeProvider{errs: []error{NewTransientError(errors.New("rate limited"))}, replies: []string{`{"verdict": "SUPPORTS"}`}}
	j := NewJudge(p, "gpt-4o")

	_, err := j.Judge(context.Background(), verify.JudgeRequest{ClaimText: "c", EvidenceText: "e"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 1, p.calls())
}

func TestJudge_UnreadableReply(t *testing.T) {
	p := &fakeProvider{replies: []string{"I am unable to decide."}}
	j := NewJudge(p, "gpt-4o")

	_, err := j.Judge(context.Background(), verify.JudgeRequest{ClaimText: "c", EvidenceText: "e"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestJudge_CachesJudgments(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"verdict": "SUPPORTS", "confidence": 0.9, "reasoning": "ok"}`}}
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	j := NewJudge(p, "gpt-4o", WithCache(mem, time.Hour))

	req := verify.JudgeRequest{ClaimText: "c", EvidenceText: "e"}
	first, err := j.Judge(context.Background(), req)
	require.NoError(t, err)
	second, err := j.Judge(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls())
	assert.Equal(t, 1, mem.Len())

	// A different model must not share the cached judgment
	other := NewJudge(p, "claude-sonnet-4-5", WithCache(mem, time.Hour))
	_, err = other.Judge(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls())
}

func TestJudge_DrivesSingleVerifier(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"verdict": "supports", "confidence": 1.4, "reasoning": "Documented"}`}}
	v := verify.NewSingleVerifier("gpt-4o", NewJudge(p, "gpt-4o"))

	result := v.Verify(context.Background(), testClaim(), nil)
	assert.Equal(t, "SUPPORTS", string(result.Verdict))
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
}
