package models

// Point is a canvas coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// UpdateInfoPush sends the configuration fields at the message root, as the firmware expects.
type UpdateInfoPush struct {
	Action string `json:"action"`
	ConfigResponse
}

// UpdatePhotoPush asks the device to show a specific photo.
type UpdatePhotoPush struct {
	Action string `json:"action"`
	ID     int64  `json:"id"`
}

// ActionPush is a push without arguments (factory_reset, enter/exit draw mode).
type ActionPush struct {
	Action string `json:"action"`
}

// DrawPixelPush mirrors an accepted pixel edit to the device.
type DrawPixelPush struct {
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Tool   string `json:"tool"`
	Size   int    `json:"size"`
	UserID string `json:"userId"`
}

// DrawStrokePush mirrors an accepted stroke to the device.
type DrawStrokePush struct {
	Action string  `json:"action"`
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Tool   string  `json:"tool"`
	UserID string  `json:"userId"`
}

// ClearCanvasPush mirrors a canvas clear to the device.
type ClearCanvasPush struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
}
