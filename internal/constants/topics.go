package constants

// Topic grammar shared with the firmware.
const (
	TopicRoot     = "pixie"
	TopicMAC      = "mac"
	TopicRequest  = "request"
	TopicResponse = "response"

	// RegisterKind is the only request kind addressed by MAC.
	RegisterKind = "register"

	// Subscription filters used by the router.
	TypedRequestFilter    = "pixie/+/request/+"
	RegisterRequestFilter = "pixie/mac/+/request/register"

	// ServerStatusTopic carries the retained bridge status.
	ServerStatusTopic = "pixie/server/status"
)

// RequestKind identifies a typed device request.
type RequestKind string

const (
	KindSong     RequestKind = "song"
	KindCover    RequestKind = "cover"
	KindPhoto    RequestKind = "photo"
	KindOTA      RequestKind = "ota"
	KindConfig   RequestKind = "config"
	KindRegister RequestKind = RegisterKind
)

// TypedKinds lists the kinds accepted on pixie/{id}/request/{kind}.
var TypedKinds = []RequestKind{KindSong, KindCover, KindPhoto, KindOTA, KindConfig}

// Device push actions published on pixie/{id}.
const (
	ActionUpdateInfo    = "update_info"
	ActionUpdatePhoto   = "update_photo"
	ActionFactoryReset  = "factory_reset"
	ActionEnterDrawMode = "enter_draw_mode"
	ActionExitDrawMode  = "exit_draw_mode"
	ActionDrawPixel     = "draw_pixel"
	ActionDrawStroke    = "draw_stroke"
	ActionClearCanvas   = "clear_canvas"
)
