package link

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/MagiclabRobotics/magicbot-z1-sdk/errors"
	"github.com/MagiclabRobotics/magicbot-z1-sdk/types"
)

type fakeLink struct {
	lastSubject string
	lastPayload []byte
	reply       []byte
	err         error
}

func (f *fakeLink) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	f.lastSubject = subject
	f.lastPayload = data
	return f.reply, f.err
}

func (f *fakeLink) Publish(subject string, data []byte) error { return nil }

func (f *fakeLink) Subscribe(subject string, handler func([]byte)) (Subscription, error) {
	return nil, nil
}

func (f *fakeLink) IsConnected() bool { return true }

func mustEnvelope(t *testing.T, code int, message string, data any) []byte {
	t.Helper()
	env := Envelope{Code: code, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		env.Data = raw
	}
	out, err := json.Marshal(env)
	require.NoError(t, err)
	return out
}

func TestCall_Success(t *testing.T) {
	type volumeReply struct {
		Volume int `json:"volume"`
	}
	fl := &fakeLink{reply: mustEnvelope(t, 0, "", volumeReply{Volume: 42})}

	var out volumeReply
	st := Call(fl, SubjectAudioGetVolume, map[string]int{"ping": 1}, &out, time.Second)

	assert.True(t, st.IsOK())
	assert.Equal(t, 42, out.Volume)
	assert.Equal(t, SubjectAudioGetVolume, fl.lastSubject)
	assert.JSONEq(t, `{"ping":1}`, string(fl.lastPayload))
}

func TestCall_NilRequestSendsEmptyPayload(t *testing.T) {
	fl := &fakeLink{reply: mustEnvelope(t, 0, "", nil)}

	st := Call(fl, SubjectAudioStop, nil, nil, time.Second)

	assert.True(t, st.IsOK())
	assert.Empty(t, fl.lastPayload)
}

func TestCall_ServiceError(t *testing.T) {
	fl := &fakeLink{reply: mustEnvelope(t, 17, "tts engine busy", nil)}

	st := Call(fl, SubjectAudioPlay, nil, nil, time.Second)

	assert.Equal(t, types.CodeServiceError, st.Code)
	assert.Equal(t, "tts engine busy", st.Message)
}

func TestCall_ServiceErrorWithoutMessage(t *testing.T) {
	fl := &fakeLink{reply: mustEnvelope(t, 9, "", nil)}

	st := Call(fl, SubjectAudioPlay, nil, nil, time.Second)

	assert.Equal(t, types.CodeServiceError, st.Code)
	assert.Contains(t, st.Message, "code 9")
}

func TestCall_Timeout(t *testing.T) {
	fl := &fakeLink{err: sdkerrors.ErrRequestTimeout}

	st := Call(fl, SubjectGaitSet, nil, nil, 10*time.Millisecond)

	assert.Equal(t, types.CodeTimeout, st.Code)
}

func TestCall_NotReady(t *testing.T) {
	for _, err := range []error{
		sdkerrors.ErrServiceUnavailable,
		sdkerrors.ErrNotConnected,
		sdkerrors.ErrConnectionLost,
	} {
		fl := &fakeLink{err: err}
		st := Call(fl, SubjectRobotState, nil, nil, time.Second)
		assert.Equal(t, types.CodeServiceNotReady, st.Code, "error %v", err)
	}
}

func TestCall_NilLink(t *testing.T) {
	st := Call(nil, SubjectRobotState, nil, nil, time.Second)
	assert.Equal(t, types.CodeServiceNotReady, st.Code)
}

func TestCall_MalformedReply(t *testing.T) {
	fl := &fakeLink{reply: []byte("not json")}

	st := Call(fl, SubjectMapGetAll, nil, nil, time.Second)

	assert.Equal(t, types.CodeInternalError, st.Code)
}
