package core

// User is the authenticated account as returned by the backend.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// TokenPair holds the bearer credentials issued at login.
type TokenPair struct {
	Access  string
	Refresh string
}

// Disease is an entry of the disease reference list.
type Disease struct {
	ID          string
	Name        string
	Description string
}

// Prediction is the diagnosis returned for a leaf image.
type Prediction struct {
	Disease          string
	Confidence       float64
	Remedies         []string
	OtherPredictions []Candidate
}

// Candidate is a lower-ranked diagnosis.
type Candidate struct {
	Disease    string
	Confidence float64
}
