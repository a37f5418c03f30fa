package api

import (
	"context"
	"net/http"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

const (
	pathDiseases = "/api/data/diseases"
	pathPredict  = "/api/data/predict/"
)

// ListDiseases fetches the disease reference list.
func (c *Client) ListDiseases(ctx context.Context) ([]core.Disease, error) {
	var out proto.DiseaseList
	if err := c.do(ctx, "list diseases", request{method: http.MethodGet, path: pathDiseases}, &out); err != nil {
		return nil, err
	}
	return proto.DiseasesFromList(out), nil
}

// Predict uploads a leaf image and returns the diagnosis.
func (c *Client) Predict(ctx context.Context, image Upload) (core.Prediction, error) {
	req, err := multipartRequest(pathPredict, nil, "image", &image)
	if err != nil {
		return core.Prediction{}, err
	}
	var out proto.PredictionPayload
	if err := c.do(ctx, "predict", req, &out); err != nil {
		return core.Prediction{}, err
	}
	return proto.PredictionFromPayload(out), nil
}
