// Package music defines the values passed between the record, identify and
// recommend stages along with the interfaces each stage implements. By
// depending on this package the orchestration code stays agnostic about the
// concrete fingerprinting and catalog providers.
package music

import (
	"context"
	"os"
)

// AudioCapture is a handle to a locally stored audio clip. It is owned by the
// recorder until handed to an Identifier.
type AudioCapture struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	MIME string `json:"mime,omitempty"`
}

// Remove deletes the underlying file. A capture without a path is a no-op.
func (c AudioCapture) Remove() error {
	if c.Path == "" {
		return nil
	}
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IdentifiedTrack is the song reported by the fingerprint service.
type IdentifiedTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Valid reports whether the identification produced a usable match.
func (t IdentifiedTrack) Valid() bool {
	return t.Title != ""
}

func (t IdentifiedTrack) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " by " + t.Artist
}

// RecommendedTrack is a single entry of the similarity list returned by the
// catalog. ID and URL are filled in when the catalog provides them.
type RecommendedTrack struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URL    string `json:"url,omitempty"`
}

// Result is the terminal output of one record → identify → recommend run.
type Result struct {
	Track           IdentifiedTrack    `json:"track"`
	Recommendations []RecommendedTrack `json:"recommendations"`
}

// Identifier turns a capture into the song playing in it.
type Identifier interface {
	// Identify uploads the capture to the fingerprint service. Implementations
	// return a sentinel error when the service reports no match.
	Identify(ctx context.Context, capture AudioCapture) (IdentifiedTrack, error)
}

// Recommender returns tracks similar to an identified one.
type Recommender interface {
	// Recommend resolves the track in the catalog and returns its similarity
	// list in the order reported by the catalog.
	Recommend(ctx context.Context, track IdentifiedTrack) ([]RecommendedTrack, error)
}
