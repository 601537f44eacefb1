package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/outreach-pipeline/internal/apperr"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

type stubLLMClient struct {
	fn       func(ctx context.Context, req LLMRequest) (LLMResponse, error)
	requests []LLMRequest
}

func (s *stubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.requests = append(s.requests, req)
	return s.fn(ctx, req)
}

func replying(text string) *stubLLMClient {
	return &stubLLMClient{fn: func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: text}, nil
	}}
}

func failing(err error) *stubLLMClient {
	return &stubLLMClient{fn: func(context.Context, LLMRequest) (LLMResponse, error) {
		return LLMResponse{}, err
	}}
}

func newTestGateway(client LLMClient) *Gateway {
	return NewGateway(client, GatewayConfig{Model: "test-model", EventName: "DevSummit"}, nil, logging.Discard())
}

var speaker = outreach.Prospect{ID: "p1", Kind: outreach.KindSpeaker, Name: "Ada Lovelace", Domain: "Computing pioneer"}

func TestGateway_Generate(t *testing.T) {
	stub := replying(`{"subject":"Speak at DevSummit","body_html":"<p>Hi Ada</p>","body_text":"Hi Ada"}`)
	d := newTestGateway(stub).Generate(context.Background(), speaker)

	assert.False(t, d.Fallback)
	assert.Equal(t, "Speak at DevSummit", d.Subject)
	assert.Equal(t, "Hi Ada", d.BodyText)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.InDelta(t, 0.2, req.Temperature, 0.0001)
	assert.Contains(t, req.System[0], "DevSummit")
	assert.Contains(t, req.Messages[0].Content, "Ada Lovelace")
	assert.Contains(t, req.Messages[0].Content, "Computing pioneer")
}

func TestGateway_GenerateFallsBackOnProviderError(t *testing.T) {
	d := newTestGateway(failing(errors.New("throttled"))).Generate(context.Background(), speaker)

	assert.True(t, d.Fallback)
	assert.Contains(t, d.Error, "throttled")
	assert.Equal(t, "Invitation to speak at DevSummit", d.Subject)
	assert.Contains(t, d.BodyText, "Dear Ada Lovelace")
}

func TestGateway_GenerateWithoutClient(t *testing.T) {
	sponsor := outreach.Prospect{ID: "s1", Kind: outreach.KindSponsor, Name: "Acme", SPOCName: "Wile"}
	d := newTestGateway(nil).Generate(context.Background(), sponsor)

	assert.True(t, d.Fallback)
	assert.Contains(t, d.Error, "not configured")
	assert.Equal(t, "Partnership Opportunity with DevSummit", d.Subject)
	assert.Contains(t, d.BodyText, "Dear Wile")
}

func TestGateway_GenerateTimesOut(t *testing.T) {
	blocking := &stubLLMClient{fn: func(ctx context.Context, _ LLMRequest) (LLMResponse, error) {
		<-ctx.Done()
		return LLMResponse{}, ctx.Err()
	}}
	g := NewGateway(blocking, GatewayConfig{EventName: "DevSummit", Timeout: 10 * time.Millisecond}, nil, logging.Discard())

	d := g.Generate(context.Background(), speaker)
	assert.True(t, d.Fallback)
	assert.Contains(t, d.Error, context.DeadlineExceeded.Error())
}

func TestGateway_Refine(t *testing.T) {
	current := Draft{Subject: "Old", BodyText: "Old body"}

	_, err := newTestGateway(replying("{}")).Refine(context.Background(), current, "  ")
	assert.ErrorIs(t, err, ErrEmptyInstruction)

	stub := replying(`{"body_text":"Shorter body"}`)
	d, err := newTestGateway(stub).Refine(context.Background(), current, "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, "Old", d.Subject)
	assert.Equal(t, "Shorter body", d.BodyText)
	assert.Contains(t, stub.requests[0].Messages[0].Content, "make it shorter")

	d, err = newTestGateway(failing(errors.New("down"))).Refine(context.Background(), current, "make it shorter")
	require.NoError(t, err)
	assert.True(t, d.Fallback)
	assert.Equal(t, "Old body", d.BodyText)
	assert.Contains(t, d.Error, "down")
}

func TestGateway_HuntSurfacesUpstreamErrors(t *testing.T) {
	_, err := newTestGateway(failing(errors.New("quota exceeded"))).Hunt(context.Background(), speaker)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Equal(t, 502, apperr.HTTPStatus(err))

	res, err := newTestGateway(replying(`{"email":"ada@example.org","source":"site"}`)).Hunt(context.Background(), speaker)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", res.Email)
}

func TestGateway_ExtractCandidates(t *testing.T) {
	_, err := newTestGateway(replying("[]")).ExtractCandidates(context.Background(), " ", outreach.KindSpeaker)
	assert.ErrorIs(t, err, ErrEmptyResearch)

	_, err = newTestGateway(replying("sorry")).ExtractCandidates(context.Background(), "notes", outreach.KindSpeaker)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	out, err := newTestGateway(replying(`[{"name":"Grace Hopper"}]`)).ExtractCandidates(context.Background(), "notes", outreach.KindSponsor)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Grace Hopper", out[0].Name)
}

func TestPreviewPrompt(t *testing.T) {
	assert.Equal(t,
		"Draft a professional invitation email for Ada Lovelace who is a Computing pioneer. Mention DevSummit...",
		newTestGateway(nil).PreviewPrompt(speaker))
}

func TestFallbackClient(t *testing.T) {
	primary := failing(errors.New("primary down"))
	secondary := replying("from fallback")

	resp, err := NewFallbackClient(primary, secondary, logging.Discard()).Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)

	_, err = NewFallbackClient(primary, nil, logging.Discard()).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "primary down")

	_, err = NewFallbackClient(primary, failing(errors.New("also down")), logging.Discard()).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "also down")
}

type fakeConverse struct {
	got *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.got = in
	return f.out, nil
}

func TestBedrockClient_Complete(t *testing.T) {
	fake := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: " drafted "}},
		}},
		StopReason: brtypes.StopReason("end_turn"),
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(12), OutputTokens: aws.Int32(3), TotalTokens: aws.Int32(15)},
	}}
	client := NewBedrockClient(fake, "anthropic.default")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{"sys"},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hello"}},
		MaxTokens:   100,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "drafted", resp.Text)
	assert.EqualValues(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "anthropic.default", aws.ToString(fake.got.ModelId))
	require.Len(t, fake.got.System, 1)
	require.Len(t, fake.got.Messages, 1)
	assert.EqualValues(t, 100, aws.ToInt32(fake.got.InferenceConfig.MaxTokens))

	_, err = client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	assert.ErrorContains(t, err, "unsupported role")
}
