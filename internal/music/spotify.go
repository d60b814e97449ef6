package music

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	spotifyoauth "golang.org/x/oauth2/spotify"

	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/store"
)

// Player answers "what is playing" for the owner of a device.
type Player interface {
	// CurrentTrackID returns the id of the playing track, or "" when playback is paused or idle.
	CurrentTrackID(ctx context.Context, userID int64) (string, error)
	// CoverURL returns the largest album image of the current track, or "" when there is none.
	CoverURL(ctx context.Context, userID int64) (string, error)
}

// SpotifyPlayer reads playback state with the user's stored tokens,
// refreshing and persisting the access token when it has expired.
type SpotifyPlayer struct {
	oauth   *oauth2.Config
	creds   store.CredentialStore
	options []spotify.ClientOption
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSpotifyPlayer creates a SpotifyPlayer. opts are passed to every spotify client it builds.
func NewSpotifyPlayer(clientID, clientSecret string, creds store.CredentialStore, logger zerolog.Logger, opts ...spotify.ClientOption) *SpotifyPlayer {
	return &SpotifyPlayer{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     spotifyoauth.Endpoint,
		},
		creds:   creds,
		options: opts,
		logger:  logger,
		now:     time.Now,
	}
}

// WithTokenURL overrides the token endpoint.
func (p *SpotifyPlayer) WithTokenURL(url string) *SpotifyPlayer {
	p.oauth.Endpoint.TokenURL = url
	return p
}

func (p *SpotifyPlayer) client(ctx context.Context, userID int64) (*spotify.Client, error) {
	c, err := p.creds.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.ExpiresAt != nil && c.ExpiresAt.After(p.now()) {
		token.Expiry = *c.ExpiresAt
	} else {
		if c.RefreshToken == "" {
			return nil, fmt.Errorf("%w: no refresh token for user %d", models.ErrUpstreamUnavailable, userID)
		}
		// Force a refresh: an expiry in the past makes the token source exchange the refresh token.
		token.Expiry = p.now().Add(-time.Minute)
		refreshed, err := p.oauth.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("%w: refresh spotify token: %v", models.ErrUpstreamUnavailable, err)
		}
		expiresAt := refreshed.Expiry
		if expiresAt.IsZero() {
			expiresAt = p.now().Add(time.Hour)
		}
		if err := p.creds.UpdateAccessToken(ctx, c.ID, refreshed.AccessToken, expiresAt); err != nil {
			p.logger.Warn().Err(err).Int64("user_id", userID).Msg("Failed to persist refreshed spotify token")
		}
		token = refreshed
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return spotify.New(httpClient, p.options...), nil
}

func (p *SpotifyPlayer) CurrentTrackID(ctx context.Context, userID int64) (string, error) {
	client, err := p.client(ctx, userID)
	if err != nil {
		return "", err
	}
	state, err := client.PlayerState(ctx)
	if err != nil {
		return "", upstream("player state", err)
	}
	if state == nil || !state.Playing || state.Item == nil {
		return "", nil
	}
	return string(state.Item.ID), nil
}

func (p *SpotifyPlayer) CoverURL(ctx context.Context, userID int64) (string, error) {
	client, err := p.client(ctx, userID)
	if err != nil {
		return "", err
	}
	current, err := client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return "", upstream("currently playing", err)
	}
	if current == nil || current.Item == nil || len(current.Item.Album.Images) == 0 {
		return "", nil
	}
	return current.Item.Album.Images[0].URL, nil
}

func upstream(op string, err error) error {
	var spErr spotify.Error
	if errors.As(err, &spErr) {
		return fmt.Errorf("%w: %s: %d %s", models.ErrUpstreamUnavailable, op, spErr.Status, spErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrUpstreamUnavailable, op, err)
}
