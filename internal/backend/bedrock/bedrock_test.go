package bedrock_test

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
	"github.com/angeloszaimis/llm-gateway/internal/backend/bedrock"
)

type fakeConverser struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = in
	return f.out, f.err
}

var _ = Describe("Backend", func() {
	It("should be unconfigured without a region", func() {
		b, err := bedrock.New(context.Background(), bedrock.Config{})
		Expect(err).NotTo(HaveOccurred())

		_, err = b.Generate(context.Background(), backend.Request{Prompt: "hi"})
		Expect(err).To(MatchError(backend.ErrUnconfigured))
	})

	It("should map the Converse output", func() {
		fake := &fakeConverser{out: &bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{Value: types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "from bedrock"}},
			}},
			StopReason: types.StopReasonEndTurn,
			Usage: &types.TokenUsage{
				InputTokens:  aws.Int32(4),
				OutputTokens: aws.Int32(3),
				TotalTokens:  aws.Int32(7),
			},
		}}
		b := bedrock.NewWithClient(bedrock.Config{Region: "eu-central-1"}, fake)

		res, err := b.Generate(context.Background(), backend.Request{
			Prompt:       "hi",
			SystemPrompt: "sys",
			MaxTokens:    100,
			Temperature:  0.3,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Text).To(Equal("from bedrock"))
		Expect(res.Usage.TotalTokens).To(Equal(7))
		Expect(res.Raw).To(HaveKeyWithValue("stop_reason", "end_turn"))

		Expect(aws.ToInt32(fake.input.InferenceConfig.MaxTokens)).To(Equal(int32(100)))
		Expect(fake.input.System).To(HaveLen(1))
	})

	It("should wrap client errors", func() {
		fake := &fakeConverser{err: errors.New("throttled")}
		b := bedrock.NewWithClient(bedrock.Config{}, fake)

		_, err := b.Ping(context.Background())
		Expect(err).To(MatchError(backend.ErrUnavailable))
	})
})
