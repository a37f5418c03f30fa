package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/proto"
	"github.com/sharanperla/Greenleaf-client/internal/store"
)

// otherPredictions is how many runner-up diagnoses the stub reports.
const otherPredictions = 2

// DataHandlers serves the disease catalog and the predict stub.
type DataHandlers struct {
	store store.DiseaseStore
	log   *zerolog.Logger
}

// NewDataHandlers creates a new data handlers instance.
func NewDataHandlers(st store.DiseaseStore, logger *zerolog.Logger) *DataHandlers {
	return &DataHandlers{store: st, log: logger}
}

// ListDiseases returns the catalog wrapped in a "diseases" key.
// GET /api/data/diseases
func (h *DataHandlers) ListDiseases(c *gin.Context) {
	diseases, err := h.store.ListDiseases(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list diseases")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]gin.H, 0, len(diseases))
	for _, d := range diseases {
		out = append(out, gin.H{
			"id":          strconv.FormatInt(d.ID, 10),
			"name":        d.Name,
			"description": d.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"diseases": out})
}

// Predict returns a deterministic diagnosis derived from the image bytes.
// POST /api/data/predict/
func (h *DataHandlers) Predict(c *gin.Context) {
	data, mt, ok := readImage(c, h.log)
	if !ok {
		return
	}

	diseases, err := h.store.ListDiseases(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list diseases")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}
	if len(diseases) == 0 {
		c.JSON(http.StatusServiceUnavailable, proto.ErrorResponse{Error: "disease catalog is empty"})
		return
	}

	result := predict(xxhash.Sum64(data), diseases)
	h.log.Info().
		Str("mime", mt.String()).
		Int("bytes", len(data)).
		Str("disease", result.Disease).
		Float64("confidence", result.Confidence).
		Msg("prediction served")
	c.JSON(http.StatusOK, result)
}

// predict picks the top diagnosis and runners-up from a hash of the image.
func predict(sum uint64, diseases []*store.Disease) proto.PredictionPayload {
	n := uint64(len(diseases))
	top := diseases[sum%n]
	confidence := 0.55 + float64((sum>>16)%40)/100

	result := proto.PredictionPayload{
		Disease:          top.Name,
		Confidence:       confidence,
		Remedies:         splitRemedies(top.Remedies),
		OtherPredictions: []proto.CandidatePayload{},
	}

	remaining := 1 - confidence
	for i := uint64(1); i <= otherPredictions && i < n; i++ {
		share := remaining / 2
		remaining -= share
		result.OtherPredictions = append(result.OtherPredictions, proto.CandidatePayload{
			Disease:    diseases[(sum+i)%n].Name,
			Confidence: share,
		})
	}
	return result
}

func splitRemedies(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
