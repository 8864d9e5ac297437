// Package wire implements the length-prefixed JSON transport shared by
// every tracker/peer connection: one request, one response, per connection.
package wire

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of message carried in an Envelope's payload.
type Type string

const (
	TypeRegister          Type = "REGISTER"
	TypeUnregister        Type = "UNREGISTER"
	TypeUpdateLoad        Type = "UPDATE_LOAD"
	TypeRequestBestPeer    Type = "REQUEST_BEST_PEER"
	TypeRegisterFile       Type = "REGISTER_FILE"
	TypeUnregisterFile     Type = "UNREGISTER_FILE"
	TypeFindFile           Type = "FIND_FILE"
	TypeRegisterOwnedFile  Type = "REGISTER_OWNED_FILE"
	TypeFindOwnedFile      Type = "FIND_OWNED_FILE"
	TypeDeleteOwnedFile    Type = "DELETE_OWNED_FILE"
	// TypeConfirmOwnedDelete is not in the original wire table: the spec's
	// prose requires the tracker to remove an OwnedFileEntry only "after
	// confirmation from all storage peers", which needs a storage-peer to
	// tracker acknowledgement the table never names. A storage peer sends
	// this after it has deleted its own copy.
	TypeConfirmOwnedDelete Type = "CONFIRM_OWNED_DELETE"

	TypeCPUTask    Type = "CPU_TASK"
	TypeCPUResult  Type = "CPU_RESULT"
	TypeBatchTask  Type = "BATCH_TASK"
	TypeCancelTask Type = "CANCEL_TASK"

	TypeSetMem  Type = "SET_MEM"
	TypeGetMem  Type = "GET_MEM"
	TypeDelMem  Type = "DEL_MEM"
	TypeListMem Type = "LIST_MEM"

	TypePutFile    Type = "PUT_FILE"
	TypeGetFile    Type = "GET_FILE"
	TypeListFile   Type = "LIST_FILE"
	TypeDeleteFile Type = "DELETE_FILE"

	TypeUploadToPeer      Type = "UPLOAD_TO_PEER"
	TypeGetOwnedFile       Type = "GET_OWNED_FILE"
	TypeDeleteOwnedStorage Type = "DELETE_OWNED_FILE_STORAGE"

	TypeCreateProcess    Type = "CREATE_PROCESS"
	TypeTerminateProcess Type = "TERMINATE_PROCESS"
	TypeProcessTree      Type = "PROCESS_TREE"

	TypeRequestResource Type = "REQUEST_RESOURCE"
	TypeReleaseResource Type = "RELEASE_RESOURCE"
	TypeCheckDeadlock   Type = "CHECK_DEADLOCK"

	TypeAllocMem Type = "ALLOC_MEM"
	TypeFreeMem  Type = "FREE_MEM"
	TypeFragInfo Type = "FRAG_INFO"

	TypeSendMsg     Type = "SEND_MSG"
	TypeRecvMsg     Type = "RECV_MSG"
	TypeCreateQueue Type = "CREATE_QUEUE"
	TypeCreateSem   Type = "CREATE_SEM"
	TypeWaitSem     Type = "WAIT_SEM"
	TypeSignalSem   Type = "SIGNAL_SEM"

	TypeStatus Type = "STATUS"
	TypeError  Type = "ERROR"
	TypeOK     Type = "OK"
)

// ErrorPayload is the body of an Envelope carrying a failed response.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the single message shape exchanged over every connection.
// Exactly one Envelope is read per connection and exactly one is written
// back before the connection closes.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Version   string          `json:"version,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
}

// NewRequest builds a request Envelope with a fresh id and the given payload.
func NewRequest(typ Type, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.New().String(),
		Type:      typ,
		Version:   ProtocolVersion,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// NewResponse builds a success response carrying payload, correlated to req.
func NewResponse(req *Envelope, typ Type, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        req.ID,
		Type:      typ,
		Version:   ProtocolVersion,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// NewErrorResponse builds an error response correlated to req.
func NewErrorResponse(req *Envelope, code, message string) *Envelope {
	return &Envelope{
		ID:        req.ID,
		Type:      TypeError,
		Version:   ProtocolVersion,
		Timestamp: time.Now(),
		Error:     &ErrorPayload{Code: code, Message: message},
	}
}

// Decode unmarshals the Envelope's payload into v.
func (e *Envelope) Decode(v interface{}) error {
	if e.Payload == nil {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// IsError reports whether e carries an error payload.
func (e *Envelope) IsError() bool { return e.Error != nil }
