package devices

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/mocks"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/pkg/pairing"
)

type registryFixture struct {
	devices *mocks.MockDeviceStore
	photos  *mocks.MockPhotoStore
	pusher  *mocks.MockPusher
	codes   *pairing.Generator
	reg     *Registry
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()
	codes, err := pairing.NewGenerator("test-secret")
	require.NoError(t, err)
	f := &registryFixture{
		devices: new(mocks.MockDeviceStore),
		photos:  new(mocks.MockPhotoStore),
		pusher:  new(mocks.MockPusher),
		codes:   codes,
	}
	f.reg = NewRegistry(f.devices, f.photos, codes, f.pusher, zerolog.Nop())
	return f
}

func strp(s string) *string { return &s }
func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }
func boolp(v bool) *bool    { return &v }

// TestRegistry_RegisterByMAC_New tests first contact creates an unclaimable device.
func TestRegistry_RegisterByMAC_New(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	mac := "AA:BB:CC:DD:EE:FF"

	f.devices.On("FindByMAC", ctx, mac).Return(nil, models.ErrNotFound)
	f.devices.On("Create", ctx, mock.MatchedBy(func(d models.Device) bool {
		return d.MAC == mac && d.Name == constants.DefaultDeviceName && *d.Code == "0000" && *d.PicturesOnQueue == 5 && d.OwnerID == nil
	})).Return(&models.Device{ID: 17, MAC: mac, Code: strp("0000")}, nil)

	resp, err := f.reg.RegisterByMAC(ctx, mac)
	require.NoError(t, err)
	assert.Equal(t, &models.RegisterResponse{PixieID: 17, Code: "0000"}, resp)
	f.devices.AssertExpectations(t)
}

// TestRegistry_RegisterByMAC_Existing tests an existing device is returned with its code.
func TestRegistry_RegisterByMAC_Existing(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	f.devices.On("FindByMAC", ctx, "m1").Return(&models.Device{ID: 3, MAC: "m1"}, nil)

	resp, err := f.reg.RegisterByMAC(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, &models.RegisterResponse{PixieID: 3, Code: "0000"}, resp)
	f.devices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	_, err = f.reg.RegisterByMAC(ctx, " ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

// TestRegistry_AddDevice tests the administrative add path stores the derived code.
func TestRegistry_AddDevice(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	f.devices.On("FindByMAC", ctx, "m2").Return(nil, models.ErrNotFound)
	f.devices.On("Create", ctx, mock.AnythingOfType("models.Device")).Return(&models.Device{ID: 42, MAC: "m2"}, nil)
	f.devices.On("SetCode", ctx, int64(42), f.codes.Code(42)).Return(nil)

	d, err := f.reg.AddDevice(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, f.codes.Code(42), *d.Code)
	f.devices.AssertExpectations(t)
}

// TestRegistry_AddDevice_SelfRegistered tests that adding a device that registered
// itself with the placeholder code stores its derived code and makes it claimable.
func TestRegistry_AddDevice_SelfRegistered(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	code := f.codes.Code(17)

	f.devices.On("FindByMAC", ctx, "m3").Return(&models.Device{ID: 17, MAC: "m3", Code: strp("0000")}, nil)
	f.devices.On("SetCode", ctx, int64(17), code).Return(nil)

	d, err := f.reg.AddDevice(ctx, "m3")
	require.NoError(t, err)
	assert.Equal(t, code, *d.Code)
	f.devices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	f.devices.On("FindByCode", ctx, code).Return(d, nil)
	f.devices.On("Claim", ctx, int64(17), int64(9), "Pixie", code).Return(&models.Device{ID: 17, OwnerID: int64p(9)}, nil)
	f.photos.On("CountVisibleTo", ctx, int64(9)).Return(0, nil)
	f.pusher.On("UpdateInfo", int64(17), mock.Anything).Return(nil)

	claimed, err := f.reg.Claim(ctx, code, 9, "")
	require.NoError(t, err)
	assert.Equal(t, int64p(9), claimed.OwnerID)
}

// TestRegistry_AddDevice_Owned tests that owned devices and devices with a real code are left alone.
func TestRegistry_AddDevice_Owned(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	owned := &models.Device{ID: 5, MAC: "m4", OwnerID: int64p(3), Code: strp("0000")}
	f.devices.On("FindByMAC", ctx, "m4").Return(owned, nil)
	coded := &models.Device{ID: 6, MAC: "m5", Code: strp(f.codes.Code(6))}
	f.devices.On("FindByMAC", ctx, "m5").Return(coded, nil)

	d, err := f.reg.AddDevice(ctx, "m4")
	require.NoError(t, err)
	assert.Same(t, owned, d)
	d, err = f.reg.AddDevice(ctx, "m5")
	require.NoError(t, err)
	assert.Same(t, coded, d)
	f.devices.AssertNotCalled(t, "SetCode", mock.Anything, mock.Anything, mock.Anything)
}

// TestRegistry_Claim tests pairing a device with its derived code.
func TestRegistry_Claim(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	code := f.codes.Code(42)

	f.devices.On("FindByCode", ctx, code).Return(&models.Device{ID: 42, Code: strp(code)}, nil)
	claimed := &models.Device{ID: 42, Name: "Kitchen", OwnerID: int64p(9), Code: strp("0000")}
	f.devices.On("Claim", ctx, int64(42), int64(9), "Kitchen", code).Return(claimed, nil)
	f.photos.On("CountVisibleTo", ctx, int64(9)).Return(3, nil)
	f.pusher.On("UpdateInfo", int64(42), models.ConfigResponse{
		Brightness: 50, PicturesOnQueue: 3, SpotifyEnabled: false, SecsBetweenPhotos: 30, Code: "0000",
	}).Return(nil)

	d, err := f.reg.Claim(ctx, code, 9, "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, claimed, d)
	f.pusher.AssertExpectations(t)
}

// TestRegistry_Claim_Rejects tests the placeholder code, malformed codes and mismatched codes.
func TestRegistry_Claim_Rejects(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	_, err := f.reg.Claim(ctx, "0000", 9, "x")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = f.reg.Claim(ctx, "ABCDE", 9, "x")
	assert.ErrorIs(t, err, models.ErrValidation)

	// A code stored on a device it was not derived for is refused.
	wrong := f.codes.Code(1)
	if wrong == f.codes.Code(2) {
		t.Skip("codes for ids 1 and 2 collide")
	}
	f.devices.On("FindByCode", ctx, wrong).Return(&models.Device{ID: 2, Code: strp(wrong)}, nil)
	_, err = f.reg.Claim(ctx, wrong, 9, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
	f.devices.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestRegistry_Claim_LostRace tests that a device claimed between lookup and update is not found.
func TestRegistry_Claim_LostRace(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	code := f.codes.Code(42)

	f.devices.On("FindByCode", ctx, code).Return(&models.Device{ID: 42, Code: strp(code)}, nil)
	f.devices.On("Claim", ctx, int64(42), int64(10), "Pixie", code).Return(nil, models.ErrNotFound)

	_, err := f.reg.Claim(ctx, code, 10, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
	f.pusher.AssertNotCalled(t, "UpdateInfo", mock.Anything, mock.Anything)
}

// TestRegistry_ClaimByMAC tests that a self-registered device can be paired by its mac.
func TestRegistry_ClaimByMAC(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	mac := "AA:BB:CC:DD:EE:FF"

	f.devices.On("FindByMAC", ctx, mac).Return(&models.Device{ID: 17, MAC: mac, Name: "Pixie", Code: strp("0000")}, nil)
	claimed := &models.Device{ID: 17, MAC: mac, Name: "Pixie", OwnerID: int64p(9), Code: strp("0000")}
	f.devices.On("Claim", ctx, int64(17), int64(9), "Pixie", "").Return(claimed, nil)
	f.photos.On("CountVisibleTo", ctx, int64(9)).Return(2, nil)
	f.pusher.On("UpdateInfo", int64(17), mock.MatchedBy(func(c models.ConfigResponse) bool { return c.PicturesOnQueue == 2 })).Return(nil)

	d, err := f.reg.ClaimByMAC(ctx, " "+mac+" ", 9, "  ")
	require.NoError(t, err)
	assert.Equal(t, claimed, d)
	f.devices.AssertExpectations(t)
	f.pusher.AssertExpectations(t)
}

// TestRegistry_ClaimByMAC_Rejects tests empty macs, unknown devices, foreign owners and lost races.
func TestRegistry_ClaimByMAC_Rejects(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	_, err := f.reg.ClaimByMAC(ctx, " ", 9, "x")
	assert.ErrorIs(t, err, models.ErrValidation)

	f.devices.On("FindByMAC", ctx, "gone").Return(nil, models.ErrNotFound)
	_, err = f.reg.ClaimByMAC(ctx, "gone", 9, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)

	f.devices.On("FindByMAC", ctx, "theirs").Return(&models.Device{ID: 5, OwnerID: int64p(3)}, nil)
	_, err = f.reg.ClaimByMAC(ctx, "theirs", 9, "x")
	assert.ErrorIs(t, err, ErrNotOwner)

	f.devices.On("FindByMAC", ctx, "racy").Return(&models.Device{ID: 6}, nil)
	f.devices.On("Claim", ctx, int64(6), int64(9), "x", "").Return(nil, models.ErrNotFound)
	_, err = f.reg.ClaimByMAC(ctx, "racy", 9, "x")
	assert.ErrorIs(t, err, ErrNotOwner)
	f.pusher.AssertNotCalled(t, "UpdateInfo", mock.Anything, mock.Anything)
}

// TestRegistry_ConfigSnapshot tests defaults and the visible photo count.
func TestRegistry_ConfigSnapshot(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	f.devices.On("FindByID", ctx, int64(1)).Return(&models.Device{ID: 1}, nil)
	cfg, err := f.reg.ConfigSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &models.ConfigResponse{Brightness: 50, SecsBetweenPhotos: 30}, cfg)

	f.devices.On("FindByID", ctx, int64(2)).Return(&models.Device{
		ID: 2, OwnerID: int64p(5), Brightness: intp(80), SecsBetweenPhotos: intp(10),
		SpotifyEnabled: boolp(true), Code: strp("0000"),
	}, nil)
	f.photos.On("CountVisibleTo", ctx, int64(5)).Return(12, nil)
	cfg, err = f.reg.ConfigSnapshot(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, &models.ConfigResponse{Brightness: 80, PicturesOnQueue: 12, SpotifyEnabled: true, SecsBetweenPhotos: 10, Code: "0000"}, cfg)
}

// TestRegistry_UpdateConfig tests ownership, validation and the update_info push.
func TestRegistry_UpdateConfig(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	owned := &models.Device{ID: 4, OwnerID: int64p(9)}
	f.devices.On("FindByID", ctx, int64(4)).Return(owned, nil)

	_, err := f.reg.UpdateConfig(ctx, 4, 9, models.ConfigPatch{Brightness: intp(101)})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.reg.UpdateConfig(ctx, 4, 10, models.ConfigPatch{Brightness: intp(10)})
	assert.ErrorIs(t, err, ErrNotOwner)

	patch := models.ConfigPatch{Brightness: intp(10)}
	updated := &models.Device{ID: 4, OwnerID: int64p(9), Brightness: intp(10)}
	f.devices.On("UpdateConfig", ctx, int64(4), patch).Return(updated, nil)
	f.photos.On("CountVisibleTo", ctx, int64(9)).Return(0, nil)
	f.pusher.On("UpdateInfo", int64(4), mock.MatchedBy(func(c models.ConfigResponse) bool { return c.Brightness == 10 })).
		Return(errors.New("offline"))

	d, err := f.reg.UpdateConfig(ctx, 4, 9, patch)
	require.NoError(t, err)
	assert.Equal(t, updated, d)
	f.pusher.AssertExpectations(t)
}

// TestRegistry_FactoryReset tests that the reset is pushed and the owner is kept.
func TestRegistry_FactoryReset(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.devices.On("FindByID", ctx, int64(4)).Return(&models.Device{ID: 4, OwnerID: int64p(9)}, nil)
	f.pusher.On("FactoryReset", int64(4)).Return(nil)

	require.NoError(t, f.reg.FactoryReset(ctx, 4, 9))
	assert.ErrorIs(t, f.reg.FactoryReset(ctx, 4, 10), ErrNotOwner)
	f.pusher.AssertNumberOfCalls(t, "FactoryReset", 1)
	f.devices.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.devices.AssertNotCalled(t, "SetCode", mock.Anything, mock.Anything, mock.Anything)

	// The owner can still act on the device after the reset.
	f.devices.On("UpdateConfig", ctx, int64(4), models.ConfigPatch{Brightness: intp(20)}).
		Return(&models.Device{ID: 4, OwnerID: int64p(9), Brightness: intp(20)}, nil)
	f.photos.On("CountVisibleTo", ctx, int64(9)).Return(0, nil)
	f.pusher.On("UpdateInfo", int64(4), mock.Anything).Return(nil)
	_, err := f.reg.UpdateConfig(ctx, 4, 9, models.ConfigPatch{Brightness: intp(20)})
	require.NoError(t, err)
}

// TestRegistry_ShowPhoto tests the update_photo push.
func TestRegistry_ShowPhoto(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.devices.On("FindByID", ctx, int64(4)).Return(&models.Device{ID: 4, OwnerID: int64p(9)}, nil)
	f.photos.On("FindByID", ctx, int64(77)).Return(&models.Photo{ID: 77}, nil)
	f.photos.On("FindByID", ctx, int64(78)).Return(nil, models.ErrNotFound)
	f.pusher.On("UpdatePhoto", int64(4), int64(77)).Return(nil)

	require.NoError(t, f.reg.ShowPhoto(ctx, 4, 9, 77))
	assert.ErrorIs(t, f.reg.ShowPhoto(ctx, 4, 9, 78), models.ErrNotFound)
	f.pusher.AssertNumberOfCalls(t, "UpdatePhoto", 1)
}

// TestRegistry_CanDraw tests owner and allow_draws rules.
func TestRegistry_CanDraw(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.devices.On("FindByID", ctx, int64(1)).Return(&models.Device{ID: 1, OwnerID: int64p(9)}, nil)
	f.devices.On("FindByID", ctx, int64(2)).Return(&models.Device{ID: 2, OwnerID: int64p(9), AllowDraws: boolp(true)}, nil)

	ok, err := f.reg.CanDraw(ctx, 1, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = f.reg.CanDraw(ctx, 1, 10)
	assert.False(t, ok)

	ok, _ = f.reg.CanDraw(ctx, 2, 10)
	assert.True(t, ok)
}
