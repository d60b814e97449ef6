package models

import "time"

// UnclaimedCode is the placeholder pairing code of a device that cannot be claimed.
const UnclaimedCode = "0000"

// Device is a physical frame as persisted in the datastore.
type Device struct {
	// ID is the surrogate numeric id assigned at first contact.
	ID int64 `json:"id"`

	// MAC is the stable hardware identity of the frame.
	MAC string `json:"mac"`

	// Name is the display name chosen by the owner.
	Name string `json:"name"`

	// OwnerID references the owning user. Nil until the device is paired.
	OwnerID *int64 `json:"created_by,omitempty"`

	// Code is the 4-character pairing code. Nil or UnclaimedCode once consumed.
	Code *string `json:"code,omitempty"`

	Brightness        *int  `json:"brightness,omitempty"`
	PicturesOnQueue   *int  `json:"pictures_on_queue,omitempty"`
	SecsBetweenPhotos *int  `json:"secs_between_photos,omitempty"`
	SpotifyEnabled    *bool `json:"spotify_enabled,omitempty"`
	AllowDraws        *bool `json:"allow_draws,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsPaired reports whether the device has an owner.
func (d *Device) IsPaired() bool {
	return d.OwnerID != nil
}

// CodeOrDefault returns the stored pairing code or the given default.
func (d *Device) CodeOrDefault(def string) string {
	if d.Code == nil {
		return def
	}
	return *d.Code
}

// ConfigPatch carries the user-editable configuration fields. Nil fields are left untouched.
type ConfigPatch struct {
	Name              *string `json:"name,omitempty"`
	Brightness        *int    `json:"brightness,omitempty"`
	PicturesOnQueue   *int    `json:"pictures_on_queue,omitempty"`
	SecsBetweenPhotos *int    `json:"secs_between_photos,omitempty"`
	SpotifyEnabled    *bool   `json:"spotify_enabled,omitempty"`
	AllowDraws        *bool   `json:"allow_draws,omitempty"`
}
