package types

// TtsPriority controls interruption across differently-prioritized TTS items:
// a higher priority request interrupts the playback of a lower priority one.
type TtsPriority int8

// TTS priorities, highest first.
const (
	TtsPriorityHigh   TtsPriority = 0 // emergency reminders, low battery warnings
	TtsPriorityMiddle TtsPriority = 1 // system prompts, status broadcast
	TtsPriorityLow    TtsPriority = 2 // daily dialogue, background broadcast
)

// TtsMode refines scheduling among TTS items of the same priority.
type TtsMode int8

// Scheduling modes within one priority level.
const (
	// TtsModeClearTop clears the priority's whole queue, interrupts current
	// playback, and plays this request immediately.
	TtsModeClearTop TtsMode = 0
	// TtsModeAdd appends to the end of the priority's queue without
	// interrupting current playback.
	TtsModeAdd TtsMode = 1
	// TtsModeClearBuffer clears queued-but-unplayed items, lets the current
	// playback finish, then plays this request.
	TtsModeClearBuffer TtsMode = 2
)

// TtsCommand is one text-to-speech playback request. The ID tracks the task
// in later status callbacks; the SDK fills in a unique ID when left empty.
// The client only encodes the request; scheduling happens on the robot.
type TtsCommand struct {
	ID       string      `json:"id"`
	Content  string      `json:"content"` // UTF-8 text to play
	Priority TtsPriority `json:"priority"`
	Mode     TtsMode     `json:"mode"`
}

// AudioStream is one chunk of raw audio data from a microphone stream.
type AudioStream struct {
	DataLength int32  `json:"data_length"`
	RawData    []byte `json:"raw_data"`
}

// WakeupStatus reports a voice wake-up event.
type WakeupStatus struct {
	Timestamp int64   `json:"timestamp"` // ns
	IsWakeup  bool    `json:"is_wakeup"`
	DoaAngle  float32 `json:"doa_angle"` // direction of arrival, rad
}
