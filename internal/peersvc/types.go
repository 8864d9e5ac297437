package peersvc

import (
	"github.com/Snider/Fabric/internal/fabcache"
	"github.com/Snider/Fabric/internal/quota"
	"github.com/Snider/Fabric/internal/scheduler"
)

// Wire payload shapes for peer-bound (client→peer or owner→storage)
// messages not already defined by internal/trackersvc.

type SetMemRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}
type GetMemRequest struct {
	Key string `json:"key"`
}
type GetMemResponse struct {
	Value []byte `json:"value"`
}
type DelMemRequest struct {
	Key string `json:"key"`
}
type ListMemResponse struct {
	Keys []string `json:"keys"`
}

type PutFileRequest struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}
// GetFileRequest's Offset/Length are both zero for "the whole file"; a
// nonzero Length requests a byte range, used internally by the
// multi-peer chunked fetch path (§4.11) when a file is not held locally.
type GetFileRequest struct {
	Filename string `json:"filename"`
	Offset   int64  `json:"offset,omitempty"`
	Length   int64  `json:"length,omitempty"`
}
type GetFileResponse struct {
	Data []byte `json:"data"`
	Size int64  `json:"size"`
}
type DeleteFileRequest struct {
	Filename string `json:"filename"`
}
type ListFileResponse struct {
	Files []string `json:"files"`
}

type UploadToPeerRequest struct {
	Filename     string `json:"filename"`
	Ciphertext   []byte `json:"ciphertext"`
	OwnerID      string `json:"owner_id"`
	OwnerAddress string `json:"owner_address"`
}
type GetOwnedFileRequest struct {
	Filename string `json:"filename"`
	OwnerID  string `json:"owner_id"`
}
type GetOwnedFileResponse struct {
	Ciphertext []byte `json:"ciphertext"`
}

type CreateProcessRequest struct {
	Parent   uint64 `json:"parent"`
	HasGroup bool   `json:"has_group"`
	Group    uint64 `json:"group"`
	TaskRef  string `json:"task_ref"`
}
type CreateProcessResponse struct {
	PID uint64 `json:"pid"`
}
type TerminateProcessRequest struct {
	PID uint64 `json:"pid"`
}
type ProcessTreeResponse struct {
	Tree []ProcessNode `json:"tree"`
}
type ProcessNode struct {
	PID      uint64        `json:"pid"`
	State    string        `json:"state"`
	Children []ProcessNode `json:"children,omitempty"`
}

type RequestResourceRequest struct {
	PID      uint64 `json:"pid"`
	Resource string `json:"resource"`
	Units    int64  `json:"units"`
}
type ReleaseResourceRequest struct {
	PID      uint64 `json:"pid"`
	Resource string `json:"resource"`
	Units    int64  `json:"units"`
}
type CheckDeadlockResponse struct {
	Cycle []uint64 `json:"cycle,omitempty"`
}

type AllocMemRequest struct {
	PID  uint64 `json:"pid"`
	Size int64  `json:"size"`
}
type AllocMemResponse struct {
	Offset int64 `json:"offset"`
}
type FreeMemRequest struct {
	PID uint64 `json:"pid"`
}
type FragInfoResponse struct {
	FreeBytes        int64   `json:"free_bytes"`
	LargestFreeBlock int64   `json:"largest_free_block"`
	FragmentedPercent float64 `json:"fragmented_percent"`
}

type SendMsgRequest struct {
	Queue string `json:"queue"`
	To    string `json:"to"`
	Body  []byte `json:"body"`
}
type RecvMsgRequest struct {
	Queue      string `json:"queue"`
	PID        string `json:"pid"`
	TimeoutMS  int64  `json:"timeout_ms"`
}
type RecvMsgResponse struct {
	Body []byte `json:"body"`
}
type CreateQueueRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}
type CreateSemRequest struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
}
type SemRequest struct {
	Name string `json:"name"`
}

type CPUTaskRequest struct {
	TaskID           string `json:"task_id"`
	Program          []byte `json:"program"`
	Function         string `json:"function"`
	Args             interface{} `json:"args"`
	Confidential     bool   `json:"confidential"`
	Priority         int    `json:"priority"`
	MaxRetries       int    `json:"max_retries"`
	TimeoutMS        int64  `json:"timeout_ms"`
	EstimatedRuntimeMS int64 `json:"estimated_runtime_ms"`
	Dispatch         bool   `json:"dispatch"` // true requests remote dispatch via the tracker
}
type CPUResultResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Result   []byte `json:"result"`
	Error    string `json:"error,omitempty"`
	CacheHit bool   `json:"cache_hit"`
}

type BatchTaskRequest struct {
	Tasks []CPUTaskRequest `json:"tasks"`
}
type BatchTaskResponse struct {
	Results []CPUResultResponse `json:"results"`
}

type CancelTaskRequest struct {
	TaskID string `json:"task_id"`
}
type CancelTaskResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the composite status endpoint's payload: each
// subsystem contributes a pure, lock-guarded snapshot with no
// cross-subsystem lock held simultaneously (§8).
type StatusResponse struct {
	Scheduler scheduler.Stats        `json:"scheduler"`
	Cache     fabcache.Stats         `json:"cache"`
	History   fabcache.HistoryStats  `json:"history"`
	Quota     quota.Snapshot         `json:"quota"`
	Processes int                    `json:"process_count"`
	IPCQueues []string               `json:"ipc_queues"`
	IPCSems   []string               `json:"ipc_semaphores"`
}
