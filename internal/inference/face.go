package inference

import (
	"context"
	"fmt"
)

// Face detection models accepted by the face service.
const (
	FaceModelHOG = "hog"
	FaceModelCNN = "cnn"
)

// FaceLocation is a detected face box in top/right/bottom/left pixel order.
type FaceLocation [4]int

func (l FaceLocation) Top() int    { return l[0] }
func (l FaceLocation) Right() int  { return l[1] }
func (l FaceLocation) Bottom() int { return l[2] }
func (l FaceLocation) Left() int   { return l[3] }

// FaceClient talks to the face location and encoding service.
type FaceClient struct {
	httpClient
}

// NewFaceClient creates a face service client.
func NewFaceClient(baseURL string) *FaceClient {
	return &FaceClient{newHTTPClient(baseURL, DefaultFaceURL)}
}

type faceLocationsRequest struct {
	Source string `json:"source"`
	Model  string `json:"model"`
}

type faceLocationsResponse struct {
	FaceLocations []FaceLocation `json:"face_locations"`
}

// Locations detects faces in the image at source using the given model.
func (c *FaceClient) Locations(ctx context.Context, source, model string) ([]FaceLocation, error) {
	var resp faceLocationsResponse
	err := c.postJSON(ctx, "/face-locations", faceLocationsRequest{Source: source, Model: model}, &resp)
	if err != nil {
		return nil, fmt.Errorf("face locations: %w", err)
	}
	return resp.FaceLocations, nil
}

type faceEncodingsRequest struct {
	Source        string         `json:"source"`
	FaceLocations []FaceLocation `json:"face_locations"`
}

type faceEncodingsResponse struct {
	Encodings [][]float64 `json:"encodings"`
}

// Encodings computes the 128-dim descriptor for each known face box.
func (c *FaceClient) Encodings(ctx context.Context, source string, locations []FaceLocation) ([][]float64, error) {
	var resp faceEncodingsResponse
	err := c.postJSON(ctx, "/face-encodings", faceEncodingsRequest{Source: source, FaceLocations: locations}, &resp)
	if err != nil {
		return nil, fmt.Errorf("face encodings: %w", err)
	}
	if len(resp.Encodings) != len(locations) {
		return nil, fmt.Errorf("face encodings: got %d encodings for %d locations", len(resp.Encodings), len(locations))
	}
	return resp.Encodings, nil
}
