package inference

import (
	"context"
	"fmt"
)

// SceneTags is the places365 classification of one image.
type SceneTags struct {
	Attributes  []string `json:"attributes"`
	Categories  []string `json:"categories"`
	Environment string   `json:"environment"`
}

// TagsClient talks to the scene classification service.
type TagsClient struct {
	httpClient
}

// NewTagsClient creates a scene tagging service client.
func NewTagsClient(baseURL string) *TagsClient {
	return &TagsClient{newHTTPClient(baseURL, DefaultTagsURL)}
}

type generateTagsRequest struct {
	ImagePath  string  `json:"image_path"`
	Confidence float64 `json:"confidence"`
}

type generateTagsResponse struct {
	Tags *SceneTags `json:"tags"`
}

// GenerateTags classifies the scene of an image. A nil result means the
// service could not tag the image; callers skip rather than fail.
func (c *TagsClient) GenerateTags(ctx context.Context, imagePath string, confidence float64) (*SceneTags, error) {
	var resp generateTagsResponse
	err := c.postJSON(ctx, "/generate-tags", generateTagsRequest{
		ImagePath:  imagePath,
		Confidence: confidence,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("generate tags: %w", err)
	}
	return resp.Tags, nil
}
