package models

// RegisterResponse is published on pixie/mac/{MAC}/response/register.
type RegisterResponse struct {
	PixieID int64  `json:"pixieId"`
	Code    string `json:"code"`
}

// SongResponse carries the currently playing track id. Empty means nothing is playing.
type SongResponse struct {
	ID string `json:"id"`
}

// PhotoRequest is the optional JSON body of a photo request.
type PhotoRequest struct {
	Index *int   `json:"index,omitempty"`
	ID    *int64 `json:"id,omitempty"`
}

// OTAResponse points the device at the latest firmware.
type OTAResponse struct {
	Version int    `json:"version"`
	URL     string `json:"url"`
}

// ConfigResponse is the device configuration snapshot.
type ConfigResponse struct {
	Brightness        int    `json:"brightness"`
	PicturesOnQueue   int    `json:"pictures_on_queue"`
	SpotifyEnabled    bool   `json:"spotify_enabled"`
	SecsBetweenPhotos int    `json:"secs_between_photos"`
	Code              string `json:"code"`
}
