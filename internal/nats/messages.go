package nats

import (
	"encoding/json"

	"github.com/smazurov/feedbackd/internal/types"
)

// Subjects of the feedback protocol.
const (
	SubjectPrefix         = "feedbackd"
	SubjectTrigger        = SubjectPrefix + ".trigger"
	SubjectEnd            = SubjectPrefix + ".end"
	SubjectEnded          = SubjectPrefix + ".ended"
	SubjectProfileGet     = SubjectPrefix + ".profile.get"
	SubjectProfileSet     = SubjectPrefix + ".profile.set"
	SubjectProfileChanged = SubjectPrefix + ".profile.changed"
	SubjectClientAlive    = SubjectPrefix + ".client.alive"
	SubjectClientGone     = SubjectPrefix + ".client.gone"
)

// Hints are optional trigger overrides.
type Hints struct {
	Profile   string `json:"profile,omitempty"`
	Important bool   `json:"important,omitempty"`
	SoundFile string `json:"sound_file,omitempty"`
}

// TriggerRequest asks the daemon to run the feedbacks for an event.
type TriggerRequest struct {
	AppID   string `json:"app_id"`
	Event   string `json:"event"`
	Hints   Hints  `json:"hints"`
	Timeout int32  `json:"timeout"`
	Sender  string `json:"sender,omitempty"`
}

// Marshal serializes the message to JSON.
func (m TriggerRequest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Status carries a daemon error in replies.
type Status struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Err returns the reply error, or nil.
func (s Status) Err() error {
	if s.Error == "" {
		return nil
	}
	return &RemoteError{Code: s.Code, Message: s.Error}
}

// TriggerReply carries the id of a triggered event.
type TriggerReply struct {
	ID uint32 `json:"id"`
	Status
}

// Marshal serializes the message to JSON.
func (m TriggerReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// EndRequest asks the daemon to end an event early.
type EndRequest struct {
	ID uint32 `json:"id"`
}

// Marshal serializes the message to JSON.
func (m EndRequest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// EndReply acknowledges an EndRequest.
type EndReply struct {
	Status
}

// Marshal serializes the message to JSON.
func (m EndReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// FeedbackEnded is broadcast once per event id.
type FeedbackEnded struct {
	ID     uint32          `json:"id"`
	Reason types.EndReason `json:"reason"`
}

// Marshal serializes the message to JSON.
func (m FeedbackEnded) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ProfileRequest sets the profile; the field is ignored for gets.
type ProfileRequest struct {
	Profile string `json:"profile,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ProfileRequest) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ProfileReply carries the current global profile.
type ProfileReply struct {
	Profile string `json:"profile"`
	Status
}

// Marshal serializes the message to JSON.
func (m ProfileReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ProfileChanged is broadcast when the global profile changes.
type ProfileChanged struct {
	Profile string `json:"profile"`
}

// Marshal serializes the message to JSON.
func (m ProfileChanged) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ClientHeartbeat announces a sender on SubjectClientAlive and
// withdraws it on SubjectClientGone.
type ClientHeartbeat struct {
	Sender string `json:"sender"`
}

// Marshal serializes the message to JSON.
func (m ClientHeartbeat) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalTriggerRequest deserializes a TriggerRequest from JSON.
func UnmarshalTriggerRequest(data []byte) (TriggerRequest, error) {
	var m TriggerRequest
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalTriggerReply deserializes a TriggerReply from JSON.
func UnmarshalTriggerReply(data []byte) (TriggerReply, error) {
	var m TriggerReply
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalEndRequest deserializes an EndRequest from JSON.
func UnmarshalEndRequest(data []byte) (EndRequest, error) {
	var m EndRequest
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalEndReply deserializes an EndReply from JSON.
func UnmarshalEndReply(data []byte) (EndReply, error) {
	var m EndReply
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalFeedbackEnded deserializes a FeedbackEnded from JSON.
func UnmarshalFeedbackEnded(data []byte) (FeedbackEnded, error) {
	var m FeedbackEnded
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalProfileRequest deserializes a ProfileRequest from JSON.
func UnmarshalProfileRequest(data []byte) (ProfileRequest, error) {
	var m ProfileRequest
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalProfileReply deserializes a ProfileReply from JSON.
func UnmarshalProfileReply(data []byte) (ProfileReply, error) {
	var m ProfileReply
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalProfileChanged deserializes a ProfileChanged from JSON.
func UnmarshalProfileChanged(data []byte) (ProfileChanged, error) {
	var m ProfileChanged
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalClientHeartbeat deserializes a ClientHeartbeat from JSON.
func UnmarshalClientHeartbeat(data []byte) (ClientHeartbeat, error) {
	var m ClientHeartbeat
	err := json.Unmarshal(data, &m)
	return m, err
}
