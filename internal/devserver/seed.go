package devserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharanperla/Greenleaf-client/internal/store"
)

// DefaultRooms are created on first start.
var DefaultRooms = []store.Room{
	{Name: "general", Description: "Anything about growing"},
	{Name: "pests", Description: "Identify and deal with pests"},
}

// DefaultDiseases is the reference catalog served by the data endpoints.
var DefaultDiseases = []store.Disease{
	{
		Name:        "Early Blight",
		Description: "Fungal disease causing concentric brown rings on older leaves.",
		Remedies:    "Remove infected leaves; Apply copper-based fungicide; Rotate crops yearly",
	},
	{
		Name:        "Late Blight",
		Description: "Water mould that spreads quickly in cool wet weather.",
		Remedies:    "Destroy infected plants; Avoid overhead watering; Use resistant varieties",
	},
	{
		Name:        "Leaf Mold",
		Description: "Yellow patches on upper leaf surfaces with olive mould beneath.",
		Remedies:    "Improve air circulation; Reduce humidity; Apply fungicide",
	},
	{
		Name:        "Powdery Mildew",
		Description: "White powdery growth on leaves and stems.",
		Remedies:    "Prune crowded growth; Spray diluted milk or sulfur; Water at the base",
	},
	{
		Name:        "Healthy",
		Description: "No disease detected.",
		Remedies:    "",
	},
}

// Seed inserts the default rooms and catalog. Existing rows are kept.
func Seed(ctx context.Context, st store.Store) error {
	for _, r := range DefaultRooms {
		if _, err := st.CreateRoom(ctx, r.Name, r.Description, 0); err != nil && !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("seed room %q: %w", r.Name, err)
		}
	}
	for _, d := range DefaultDiseases {
		if err := st.UpsertDisease(ctx, &d); err != nil {
			return fmt.Errorf("seed disease %q: %w", d.Name, err)
		}
	}
	return nil
}
