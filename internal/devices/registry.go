package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/store"
	"github.com/benmeehan/pixie-bridge/pkg/pairing"
)

// ErrNotOwner is returned when a user acts on a device they do not own.
var ErrNotOwner = errors.New("device is not owned by user")

// Registry manages the device lifecycle: unclaimed, paired, configured.
type Registry struct {
	devices store.DeviceStore
	photos  store.PhotoStore
	codes   *pairing.Generator
	pusher  DevicePusher
	logger  zerolog.Logger
}

func NewRegistry(devices store.DeviceStore, photos store.PhotoStore, codes *pairing.Generator, pusher DevicePusher, logger zerolog.Logger) *Registry {
	return &Registry{devices: devices, photos: photos, codes: codes, pusher: pusher, logger: logger}
}

// RegisterByMAC returns the device for mac, creating an unclaimable one on first contact.
func (r *Registry) RegisterByMAC(ctx context.Context, mac string) (*models.RegisterResponse, error) {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return nil, fmt.Errorf("%w: empty mac", models.ErrValidation)
	}

	d, err := r.devices.FindByMAC(ctx, mac)
	switch {
	case err == nil:
		r.logger.Debug().Str("mac", mac).Int64("device_id", d.ID).Msg("Known device registered")
	case errors.Is(err, models.ErrNotFound):
		code := models.UnclaimedCode
		queue := constants.DefaultPicturesOnQueue
		d, err = r.devices.Create(ctx, models.Device{
			MAC:             mac,
			Name:            constants.DefaultDeviceName,
			Code:            &code,
			PicturesOnQueue: &queue,
		})
		if err != nil {
			return nil, err
		}
		r.logger.Info().Str("mac", mac).Int64("device_id", d.ID).Msg("New device created")
	default:
		return nil, err
	}

	return &models.RegisterResponse{PixieID: d.ID, Code: d.CodeOrDefault(models.UnclaimedCode)}, nil
}

// AddDevice is the administrative add path: it creates the device for mac
// and stores a pairing code derived from its id. An existing unowned device
// without a real code, such as one that self-registered, gets its derived code
// stored so it becomes claimable. Other existing devices are returned unchanged.
func (r *Registry) AddDevice(ctx context.Context, mac string) (*models.Device, error) {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return nil, fmt.Errorf("%w: empty mac", models.ErrValidation)
	}

	d, err := r.devices.FindByMAC(ctx, mac)
	switch {
	case err == nil:
		if d.IsPaired() || d.CodeOrDefault(models.UnclaimedCode) != models.UnclaimedCode {
			return d, nil
		}
	case errors.Is(err, models.ErrNotFound):
		queue := constants.DefaultPicturesOnQueue
		d, err = r.devices.Create(ctx, models.Device{
			MAC:             mac,
			Name:            constants.DefaultDeviceName,
			PicturesOnQueue: &queue,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	code := r.codes.Code(d.ID)
	if err := r.devices.SetCode(ctx, d.ID, code); err != nil {
		return nil, err
	}
	d.Code = &code

	r.logger.Info().Str("mac", mac).Int64("device_id", d.ID).Msg("Device added with pairing code")
	return d, nil
}

// Claim pairs the device holding code with ownerID. The placeholder code is never claimable,
// and the stored code must still match the one derived from the device id.
func (r *Registry) Claim(ctx context.Context, code string, ownerID int64, name string) (*models.Device, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != pairing.CodeLength || code == models.UnclaimedCode {
		return nil, fmt.Errorf("%w: invalid pairing code", models.ErrValidation)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = constants.DefaultDeviceName
	}

	d, err := r.devices.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !r.codes.Verify(d.ID, code) {
		r.logger.Warn().Int64("device_id", d.ID).Msg("Stored pairing code does not match derived code")
		return nil, models.ErrNotFound
	}

	claimed, err := r.devices.Claim(ctx, d.ID, ownerID, name, code)
	if err != nil {
		return nil, err
	}
	r.logger.Info().Int64("device_id", claimed.ID).Int64("owner_id", ownerID).Msg("Device claimed")

	r.pushInfo(ctx, claimed)
	return claimed, nil
}

// ClaimByMAC pairs the device reporting mac with ownerID. This is how a device
// that self-registered with the placeholder code gets its owner. A device
// owned by someone else yields ErrNotOwner. An empty name keeps the current one.
func (r *Registry) ClaimByMAC(ctx context.Context, mac string, ownerID int64, name string) (*models.Device, error) {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return nil, fmt.Errorf("%w: empty mac", models.ErrValidation)
	}

	d, err := r.devices.FindByMAC(ctx, mac)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != nil && *d.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if name = strings.TrimSpace(name); name == "" {
		name = d.Name
	}
	if name == "" {
		name = constants.DefaultDeviceName
	}

	claimed, err := r.devices.Claim(ctx, d.ID, ownerID, name, "")
	if errors.Is(err, models.ErrNotFound) {
		// Someone else claimed it between the read and the update.
		return nil, ErrNotOwner
	}
	if err != nil {
		return nil, err
	}
	r.logger.Info().Str("mac", mac).Int64("device_id", claimed.ID).Int64("owner_id", ownerID).Msg("Device claimed by mac")

	r.pushInfo(ctx, claimed)
	return claimed, nil
}

// ConfigSnapshot builds the configuration a device displays.
// pictures_on_queue is the number of photos visible to the owner.
func (r *Registry) ConfigSnapshot(ctx context.Context, deviceID int64) (*models.ConfigResponse, error) {
	d, err := r.devices.FindByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return r.snapshot(ctx, d)
}

func (r *Registry) snapshot(ctx context.Context, d *models.Device) (*models.ConfigResponse, error) {
	cfg := &models.ConfigResponse{
		Brightness:        intOr(d.Brightness, constants.DefaultBrightness),
		SpotifyEnabled:    d.SpotifyEnabled != nil && *d.SpotifyEnabled,
		SecsBetweenPhotos: intOr(d.SecsBetweenPhotos, constants.DefaultSecsBetweenPhotos),
		Code:              d.CodeOrDefault(""),
	}
	if d.OwnerID != nil {
		n, err := r.photos.CountVisibleTo(ctx, *d.OwnerID)
		if err != nil {
			return nil, err
		}
		cfg.PicturesOnQueue = n
	}
	return cfg, nil
}

// UpdateConfig applies patch to a device owned by ownerID and pushes the new configuration.
func (r *Registry) UpdateConfig(ctx context.Context, deviceID, ownerID int64, patch models.ConfigPatch) (*models.Device, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if _, err := r.owned(ctx, deviceID, ownerID); err != nil {
		return nil, err
	}

	d, err := r.devices.UpdateConfig(ctx, deviceID, patch)
	if err != nil {
		return nil, err
	}
	r.pushInfo(ctx, d)
	return d, nil
}

// FactoryReset tells the device to wipe itself. The device keeps its owner,
// so it can be set up again without a new claim.
func (r *Registry) FactoryReset(ctx context.Context, deviceID, ownerID int64) error {
	if _, err := r.owned(ctx, deviceID, ownerID); err != nil {
		return err
	}
	r.logger.Info().Int64("device_id", deviceID).Int64("owner_id", ownerID).Msg("Pushing factory reset")
	return r.pusher.FactoryReset(deviceID)
}

// ShowPhoto asks the device to display photoID next. The photo must be visible to the owner.
func (r *Registry) ShowPhoto(ctx context.Context, deviceID, ownerID, photoID int64) error {
	if _, err := r.owned(ctx, deviceID, ownerID); err != nil {
		return err
	}
	if _, err := r.photos.FindByID(ctx, photoID); err != nil {
		return err
	}
	return r.pusher.UpdatePhoto(deviceID, photoID)
}

// CanDraw reports whether userID may open a drawing session on the device:
// the owner always can, anyone else only when the device allows draws.
func (r *Registry) CanDraw(ctx context.Context, deviceID, userID int64) (bool, error) {
	d, err := r.devices.FindByID(ctx, deviceID)
	if err != nil {
		return false, err
	}
	if d.OwnerID != nil && *d.OwnerID == userID {
		return true, nil
	}
	return d.IsPaired() && d.AllowDraws != nil && *d.AllowDraws, nil
}

func (r *Registry) owned(ctx context.Context, deviceID, ownerID int64) (*models.Device, error) {
	d, err := r.devices.FindByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID == nil || *d.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return d, nil
}

// pushInfo is best effort: the device also polls its config.
func (r *Registry) pushInfo(ctx context.Context, d *models.Device) {
	cfg, err := r.snapshot(ctx, d)
	if err == nil {
		err = r.pusher.UpdateInfo(d.ID, *cfg)
	}
	if err != nil {
		r.logger.Warn().Err(err).Int64("device_id", d.ID).Msg("Failed to push update_info")
	}
}

func validatePatch(p models.ConfigPatch) error {
	switch {
	case p.Brightness != nil && (*p.Brightness < 0 || *p.Brightness > 100):
		return fmt.Errorf("%w: brightness must be between 0 and 100", models.ErrValidation)
	case p.SecsBetweenPhotos != nil && *p.SecsBetweenPhotos < 1:
		return fmt.Errorf("%w: secs_between_photos must be positive", models.ErrValidation)
	case p.PicturesOnQueue != nil && *p.PicturesOnQueue < 1:
		return fmt.Errorf("%w: pictures_on_queue must be positive", models.ErrValidation)
	case p.Name != nil && strings.TrimSpace(*p.Name) == "":
		return fmt.Errorf("%w: name must not be empty", models.ErrValidation)
	}
	return nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
