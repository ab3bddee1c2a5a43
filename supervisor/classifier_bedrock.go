// Copyright 2025 TripFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockInvoker is the subset of the Bedrock runtime client the
// classifier needs. Narrowed for testability.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClassifier is a model-backed classification strategy using the
// AWS Bedrock runtime. The model proposes operation names, which are
// then filtered against the registry; anything unadvertised is dropped.
// On any model error it falls back to the deterministic keyword
// classifier, so classification never hard-fails because of the model.
type BedrockClassifier struct {
	client   bedrockInvoker
	model    string
	registry *Registry
	fallback Classifier
}

// DefaultBedrockModel is used when BEDROCK_MODEL is not set.
const DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

// NewBedrockClassifier creates a Bedrock-backed classifier with AWS
// Signature V4 authentication via IAM roles. Returns an error if AWS
// config loading fails - callers should handle this rather than
// silently falling back.
func NewBedrockClassifier(region, model string, registry *Registry) (*BedrockClassifier, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = DefaultBedrockModel
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", region, err)
	}

	log.Printf("[BedrockClassifier] Initialized (region: %s, model: %s)", region, model)
	return &BedrockClassifier{
		client:   bedrockruntime.NewFromConfig(awsCfg),
		model:    model,
		registry: registry,
		fallback: NewKeywordClassifier(registry),
	}, nil
}

// Classify asks the model for operation names and validates them
// against the registry.
func (c *BedrockClassifier) Classify(ctx context.Context, req Request) ([]string, error) {
	requestBody := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        256,
		"temperature":       0.0,
		"messages": []map[string]string{
			{"role": "user", "content": c.buildPrompt(req)},
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		log.Printf("[BedrockClassifier] API call failed, using keyword fallback: %v", err)
		return c.fallback.Classify(ctx, req)
	}

	operations, err := c.parseOperations(output.Body)
	if err != nil {
		log.Printf("[BedrockClassifier] Could not parse response, using keyword fallback: %v", err)
		return c.fallback.Classify(ctx, req)
	}

	// Drop anything the registry does not advertise.
	var valid []string
	for _, op := range operations {
		if len(c.registry.FindByOperation(op)) > 0 {
			valid = append(valid, op)
		}
	}

	return valid, nil
}

// buildPrompt lists the advertised operations and asks for a JSON array.
func (c *BedrockClassifier) buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You classify travel requests. Available operations:\n")
	for _, desc := range c.registry.List() {
		for _, op := range desc.Operations {
			fmt.Fprintf(&b, "- %s (%s)\n", op.Name, desc.Name)
		}
	}
	b.WriteString("\nRequest: ")
	b.WriteString(req.Text)
	b.WriteString("\n\nRespond with only a JSON array of the operation names needed, e.g. [\"search_flights\"]. Use [] if none apply.")
	return b.String()
}

// parseOperations extracts the JSON array from the Anthropic-format
// Bedrock response body.
func (c *BedrockClassifier) parseOperations(body []byte) ([]string, error) {
	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var operations []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &operations); err != nil {
		return nil, fmt.Errorf("invalid operation array: %w", err)
	}

	return operations, nil
}
