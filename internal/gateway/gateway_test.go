package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykola/agora/internal/llm"
)

// scriptedClient implements llm.Client returning canned responses in order.
type scriptedClient struct {
	responses []string
	err       error
	calls     int
}

func (c *scriptedClient) Generate(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", errors.New("scripted client exhausted")
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}

func (c *scriptedClient) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (c *scriptedClient) Close() error { return nil }

type decision struct {
	WinningSubmissionID string `json:"winning_submission_id"`
	Justification       string `json:"justification"`
}

func TestFingerprint_Deterministic(t *testing.T) {
	assert.Equal(t, Fingerprint("judge this"), Fingerprint("judge this"))
	assert.NotEqual(t, Fingerprint("judge this"), Fingerprint("judge that"))
}

func TestInvokeObject_CacheHitSkipsBackend(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`Here is my decision: {"winning_submission_id": "sub-1", "justification": "best fit"}`,
	}}
	gw := New(client, NewMemoryCache())
	ctx := context.Background()

	var first, second decision
	require.NoError(t, gw.InvokeObject(ctx, "pick a winner", llm.TierDeliberate, &first))
	require.NoError(t, gw.InvokeObject(ctx, "pick a winner", llm.TierDeliberate, &second))

	assert.Equal(t, 1, client.calls, "second invoke must be served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, "sub-1", second.WinningSubmissionID)
}

func TestInvokeObject_DistinctPromptsAreDistinctEntries(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"winning_submission_id": "sub-1", "justification": "a"}`,
		`{"winning_submission_id": "sub-2", "justification": "b"}`,
	}}
	gw := New(client, NewMemoryCache())
	ctx := context.Background()

	var one, two decision
	require.NoError(t, gw.InvokeObject(ctx, "contract A", llm.TierDeliberate, &one))
	require.NoError(t, gw.InvokeObject(ctx, "contract B", llm.TierDeliberate, &two))

	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "sub-1", one.WinningSubmissionID)
	assert.Equal(t, "sub-2", two.WinningSubmissionID)
}

func TestInvokeObject_MalformedOutputNotCached(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"I am unable to produce a decision right now.",
		`{"winning_submission_id": "sub-9", "justification": "recovered"}`,
	}}
	gw := New(client, NewMemoryCache())
	ctx := context.Background()

	var out decision
	err := gw.InvokeObject(ctx, "pick", llm.TierDeliberate, &out)
	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)

	// The failure must not poison the cache: the retry reaches the backend.
	require.NoError(t, gw.InvokeObject(ctx, "pick", llm.TierDeliberate, &out))
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "sub-9", out.WinningSubmissionID)
}

func TestInvokeObject_TruncatedJSONIsMalformed(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"winning_submission_id": "sub`}}
	gw := New(client, NewMemoryCache())

	var out decision
	err := gw.InvokeObject(context.Background(), "pick", llm.TierDeliberate, &out)
	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)
}

func TestInvokeText_Cached(t *testing.T) {
	client := &scriptedClient{responses: []string{"A clearer, more inspiring brief."}}
	gw := New(client, NewMemoryCache())
	ctx := context.Background()

	first, err := gw.InvokeText(ctx, "improve this brief", llm.TierDeliberate)
	require.NoError(t, err)
	second, err := gw.InvokeText(ctx, "improve this brief", llm.TierDeliberate)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, first, second)
}

func TestInvokeText_BackendErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: errors.New("throttled")}
	gw := New(client, NewMemoryCache())

	_, err := gw.InvokeText(context.Background(), "improve", llm.TierDeliberate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache()
	current := time.Now()
	cache.now = func() time.Time { return current }

	require.NoError(t, cache.Set(context.Background(), "k", "v", time.Hour))

	_, ok, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)

	current = current.Add(2 * time.Hour)
	_, ok, err = cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries must not be served")
}
