package link

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sdkerrors "github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

// Envelope is the reply format of every robot RPC. Code uses the remote
// service's error-code space; 0 means success and Data holds the result.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Call performs a request/response command exchange: it marshals req (nil
// means an empty payload), sends it with the given timeout, decodes the
// reply envelope, and unmarshals the envelope data into out when out is
// non-nil. Transport and service failures come back as a non-OK Status;
// Call never returns a raw transport error.
func Call(l Link, subject string, req any, out any, timeout time.Duration) types.Status {
	if l == nil {
		return types.Status{Code: types.CodeServiceNotReady, Message: "not connected"}
	}

	var payload []byte
	if req != nil {
		var err error
		payload, err = json.Marshal(req)
		if err != nil {
			return types.InternalErrorf("encode request for %s: %v", subject, err)
		}
	}

	reply, err := l.Request(subject, payload, timeout)
	if err != nil {
		return StatusFromTransport(subject, err)
	}

	var env Envelope
	if err := json.Unmarshal(reply, &env); err != nil {
		return types.InternalErrorf("decode reply from %s: %v", subject, err)
	}
	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("service returned code %d", env.Code)
		}
		return types.Status{Code: types.CodeServiceError, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return types.InternalErrorf("decode reply data from %s: %v", subject, err)
		}
	}
	return types.OK()
}

// StatusFromTransport maps a transport error onto the public status model.
// Timeouts stay TIMEOUT so callers can treat the outcome as ambiguous;
// everything that means "nobody is listening" maps to SERVICE_NOT_READY.
func StatusFromTransport(subject string, err error) types.Status {
	switch {
	case errors.Is(err, sdkerrors.ErrRequestTimeout):
		return types.Status{
			Code:    types.CodeTimeout,
			Message: fmt.Sprintf("request to %s timed out", subject),
		}
	case errors.Is(err, sdkerrors.ErrServiceUnavailable),
		errors.Is(err, sdkerrors.ErrNotConnected),
		errors.Is(err, sdkerrors.ErrConnectionLost):
		return types.Status{
			Code:    types.CodeServiceNotReady,
			Message: fmt.Sprintf("no service available on %s: %v", subject, err),
		}
	default:
		return types.InternalErrorf("request to %s failed: %v", subject, err)
	}
}
