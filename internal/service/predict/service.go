package predict

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/api"
	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/media"
)

const (
	defaultFilename = "leaf.jpg"
	defaultMIMEType = "image/jpeg"
)

// Predictor uploads an image for diagnosis.
type Predictor interface {
	Predict(ctx context.Context, image api.Upload) (core.Prediction, error)
}

// ImageSource reads local images after access was granted.
type ImageSource interface {
	Granted() bool
	Open(uri string) (media.Asset, []byte, error)
}

// Service runs leaf diagnoses and keeps the latest result.
type Service struct {
	predictor Predictor
	images    ImageSource
	log       *zerolog.Logger

	mu     sync.RWMutex
	result *core.Prediction
	err    error
}

// New creates a prediction service.
func New(predictor Predictor, images ImageSource, logger *zerolog.Logger) *Service {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Service{predictor: predictor, images: images, log: logger}
}

// Predict diagnoses the image at imageURI.
func (s *Service) Predict(ctx context.Context, imageURI string) (core.Prediction, error) {
	p, err := s.predict(ctx, imageURI)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	if err != nil {
		s.log.Warn().Err(err).Msg("prediction failed")
		return core.Prediction{}, err
	}
	s.result = &p
	s.log.Info().Str("disease", p.Disease).Float64("confidence", p.Confidence).Msg("prediction received")
	return p, nil
}

func (s *Service) predict(ctx context.Context, imageURI string) (core.Prediction, error) {
	if s.images == nil || !s.images.Granted() {
		return core.Prediction{}, core.ErrMediaDenied
	}
	asset, data, err := s.images.Open(imageURI)
	if err != nil {
		return core.Prediction{}, err
	}
	mimeType := asset.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	return s.predictor.Predict(ctx, api.Upload{
		Filename: defaultFilename,
		MIMEType: mimeType,
		Data:     data,
	})
}

// Result returns the latest successful prediction.
func (s *Service) Result() (core.Prediction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return core.Prediction{}, false
	}
	return *s.result, true
}

// Err returns the error of the latest Predict, if it failed.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
