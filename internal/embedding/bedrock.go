package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock embeds text with an Amazon Titan text embedding model.
type Bedrock struct {
	client invoker
	model  string
	dims   int
}

func NewBedrock(ctx context.Context, region, model string, dims int) (*Bedrock, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return newBedrockWithClient(bedrockruntime.NewFromConfig(cfg), model, dims), nil
}

func newBedrockWithClient(client invoker, model string, dims int) *Bedrock {
	if model == "" {
		model = "amazon.titan-embed-text-v2:0"
	}
	return &Bedrock{client: client, model: model, dims: dims}
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

func (b *Bedrock) Embed(ctx context.Context, text string) ([]float32, error) {
	req := titanRequest{InputText: text}
	// only v2 accepts a dimensions field
	if strings.Contains(b.model, "-v2") {
		req.Dimensions = b.dims
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling titan request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", b.model, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decoding titan response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%s returned no embedding", b.model)
	}
	return resp.Embedding, nil
}
