// Package topics parses and builds the broker topic grammar shared with the firmware.
package topics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// Request is a parsed device request topic.
type Request struct {
	Kind constants.RequestKind

	// DeviceID is set for typed requests.
	DeviceID int64

	// MAC is set for registration requests.
	MAC string

	// Topic is the original topic string.
	Topic string
}

var typedKinds = func() map[constants.RequestKind]struct{} {
	set := make(map[constants.RequestKind]struct{}, len(constants.TypedKinds))
	for _, k := range constants.TypedKinds {
		set[k] = struct{}{}
	}
	return set
}()

// Parse classifies a request topic. Anything that is neither
// pixie/mac/{MAC}/request/register nor pixie/{id}/request/{kind} with a
// known kind and a positive numeric id is a validation error.
func Parse(topic string) (Request, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[0] != constants.TopicRoot {
		return Request{}, fmt.Errorf("%w: unrecognized topic %q", models.ErrValidation, topic)
	}

	if parts[1] == constants.TopicMAC {
		if len(parts) != 5 || parts[3] != constants.TopicRequest || parts[4] != constants.RegisterKind || parts[2] == "" {
			return Request{}, fmt.Errorf("%w: malformed registration topic %q", models.ErrValidation, topic)
		}
		return Request{Kind: constants.KindRegister, MAC: parts[2], Topic: topic}, nil
	}

	if len(parts) != 4 || parts[2] != constants.TopicRequest {
		return Request{}, fmt.Errorf("%w: unrecognized topic %q", models.ErrValidation, topic)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return Request{}, fmt.Errorf("%w: non-numeric device id in %q", models.ErrValidation, topic)
	}
	kind := constants.RequestKind(parts[3])
	if _, ok := typedKinds[kind]; !ok {
		return Request{}, fmt.Errorf("%w: unknown request kind %q", models.ErrValidation, parts[3])
	}
	return Request{Kind: kind, DeviceID: id, Topic: topic}, nil
}

// ResponseTopic returns the topic the response to r is published on.
func (r Request) ResponseTopic() string {
	if r.Kind == constants.KindRegister {
		return strings.Join([]string{constants.TopicRoot, constants.TopicMAC, r.MAC, constants.TopicResponse, constants.RegisterKind}, "/")
	}
	return strings.Join([]string{constants.TopicRoot, strconv.FormatInt(r.DeviceID, 10), constants.TopicResponse, string(r.Kind)}, "/")
}
