// Package spotify wraps the Spotify client library to implement
// music.Recommender. Every call to Recommend performs a fresh client
// credentials exchange, resolves the identified song to a catalog track id
// and asks for a short similarity list seeded by that id.
//
// The wrapped library does not accept a context so cancellation is checked
// explicitly before each call.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"Song-Rec-Go/pkg/logging"
	"Song-Rec-Go/pkg/metrics"
	"Song-Rec-Go/pkg/music"
)

// DefaultLimit is the number of recommendations requested per seed.
const DefaultLimit = 5

// ErrTrackNotFound is returned when the catalog search yields no track for
// the identified title and artist.
var ErrTrackNotFound = errors.New("no tracks found")

var log = logging.For("spotify")

// Catalog defines the subset of the spotify.Client used by this package.
// It allows the concrete client to be replaced in tests.
type Catalog interface {
	SearchOpt(query string, t spotify.SearchType, opt *spotify.Options) (*spotify.SearchResult, error)
	GetRecommendations(seeds spotify.Seeds, attrs *spotify.TrackAttributes, opt *spotify.Options) (*spotify.Recommendations, error)
}

// SpotifyClient resolves identified songs against the Spotify catalog.
// TokenURL and HTTP may be changed before first use. HTTP carries the token
// exchange and, wrapped with the bearer token, the catalog calls. NewCatalog
// builds the API client for a token and defaults to the library client.
type SpotifyClient struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTP         *http.Client
	Limit        int
	NewCatalog   func(token *oauth2.Token) Catalog
	Metrics      *metrics.Metrics
}

// Compile-time interface check ensuring SpotifyClient satisfies the
// music.Recommender interface used by the orchestrator.
var _ music.Recommender = (*SpotifyClient)(nil)

// NewSpotifyClient returns a client for the given application credentials.
// No network call is made until a token is needed.
func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotify.TokenURL,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
		Limit:        DefaultLimit,
	}
}

// apiClient returns the bearer-authenticated client used for catalog calls.
// It shares Transport and Timeout with HTTP because the library methods take
// no context, so the timeout is the only bound on a hung request.
func (sc *SpotifyClient) apiClient(token *oauth2.Token) *http.Client {
	base := sc.HTTP
	if base == nil {
		base = http.DefaultClient
	}
	return &http.Client{
		Transport: &oauth2.Transport{Base: base.Transport, Source: oauth2.StaticTokenSource(token)},
		Timeout:   base.Timeout,
	}
}

func (sc *SpotifyClient) defaultCatalog(token *oauth2.Token) Catalog {
	c := spotify.NewClient(sc.apiClient(token))
	return &c
}

// GetToken performs one client credentials exchange. Tokens are deliberately
// not cached; each recommendation run asks for a new one.
func (sc *SpotifyClient) GetToken(ctx context.Context) (*oauth2.Token, error) {
	tokenURL := sc.TokenURL
	if tokenURL == "" {
		tokenURL = spotify.TokenURL
	}
	config := &clientcredentials.Config{
		ClientID:     sc.ClientID,
		ClientSecret: sc.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if sc.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, sc.HTTP)
	}
	start := time.Now()
	token, err := config.Token(ctx)
	sc.Metrics.Since("spotify_token", start)
	if err != nil {
		sc.Metrics.ObserveCatalog("token", metrics.OutcomeError)
		return nil, fmt.Errorf("spotify token: %w", err)
	}
	sc.Metrics.ObserveCatalog("token", metrics.OutcomeOK)
	return token, nil
}

func (sc *SpotifyClient) catalog(token *oauth2.Token) Catalog {
	if sc.NewCatalog != nil {
		return sc.NewCatalog(token)
	}
	return sc.defaultCatalog(token)
}

// FindTrackID searches the catalog for title and artist and returns the id of
// the first hit. ErrTrackNotFound is returned when the search is empty.
func (sc *SpotifyClient) FindTrackID(ctx context.Context, token *oauth2.Token, title, artist string) (spotify.ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	limit := 1
	query := fmt.Sprintf("track:%s artist:%s", title, artist)
	start := time.Now()
	results, err := sc.catalog(token).SearchOpt(query, spotify.SearchTypeTrack, &spotify.Options{Limit: &limit})
	sc.Metrics.Since("spotify_search", start)
	if err != nil {
		sc.Metrics.ObserveCatalog("search", metrics.OutcomeError)
		return "", fmt.Errorf("spotify search: %w", err)
	}
	if results == nil || results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		sc.Metrics.ObserveCatalog("search", metrics.OutcomeNotFound)
		return "", fmt.Errorf("%w for %q", ErrTrackNotFound, query)
	}
	sc.Metrics.ObserveCatalog("search", metrics.OutcomeOK)
	return results.Tracks.Tracks[0].ID, nil
}

// GetRecommendations returns at most Limit tracks seeded by id, in the order
// the catalog reports them. Only the first artist of each track is kept.
func (sc *SpotifyClient) GetRecommendations(ctx context.Context, token *oauth2.Token, id spotify.ID) ([]music.RecommendedTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := sc.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	seeds := spotify.Seeds{Tracks: []spotify.ID{id}}
	start := time.Now()
	recs, err := sc.catalog(token).GetRecommendations(seeds, nil, &spotify.Options{Limit: &limit})
	sc.Metrics.Since("spotify_recommendations", start)
	if err != nil {
		sc.Metrics.ObserveCatalog("recommendations", metrics.OutcomeError)
		return nil, fmt.Errorf("spotify recommendations: %w", err)
	}
	sc.Metrics.ObserveCatalog("recommendations", metrics.OutcomeOK)
	tracks := make([]music.RecommendedTrack, 0, limit)
	if recs == nil {
		return tracks, nil
	}
	for _, t := range recs.Tracks {
		if len(tracks) == limit {
			break
		}
		rt := music.RecommendedTrack{ID: string(t.ID), Name: t.Name, URL: t.ExternalURLs["spotify"]}
		if len(t.Artists) > 0 {
			rt.Artist = t.Artists[0].Name
		}
		tracks = append(tracks, rt)
	}
	return tracks, nil
}

// Recommend implements music.Recommender: token, search, then recommendations.
func (sc *SpotifyClient) Recommend(ctx context.Context, track music.IdentifiedTrack) ([]music.RecommendedTrack, error) {
	token, err := sc.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	id, err := sc.FindTrackID(ctx, token, track.Title, track.Artist)
	if err != nil {
		return nil, err
	}
	log.WithField("track_id", id).WithField("title", track.Title).Debug("catalog track resolved")
	return sc.GetRecommendations(ctx, token, id)
}
