package inference

import (
	"context"
	"fmt"
)

// CaptionClient talks to the image captioning service.
type CaptionClient struct {
	httpClient
}

// NewCaptionClient creates a captioning service client.
func NewCaptionClient(baseURL string) *CaptionClient {
	return &CaptionClient{newHTTPClient(baseURL, DefaultCaptionURL)}
}

type generateCaptionRequest struct {
	ImagePath string `json:"image_path"`
	Onnx      bool   `json:"onnx"`
	Blip      bool   `json:"blip"`
}

type generateCaptionResponse struct {
	Caption string `json:"caption"`
}

// GenerateCaption produces a natural language caption for the image.
func (c *CaptionClient) GenerateCaption(ctx context.Context, imagePath string, onnx, blip bool) (string, error) {
	var resp generateCaptionResponse
	err := c.postJSON(ctx, "/generate-caption", generateCaptionRequest{
		ImagePath: imagePath,
		Onnx:      onnx,
		Blip:      blip,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("generate caption: %w", err)
	}
	return resp.Caption, nil
}

// UnloadModel frees the caption model memory on the service side.
func (c *CaptionClient) UnloadModel(ctx context.Context) error {
	if err := c.get(ctx, "/unload-model"); err != nil {
		return fmt.Errorf("unload caption model: %w", err)
	}
	return nil
}
