package ws

import (
	"github.com/google/uuid"

	"github.com/gosuda/planboard/internal/batch"
	"github.com/gosuda/planboard/internal/board"
	"github.com/gosuda/planboard/internal/domain"
)

// Client message types.
const (
	MsgBeginDrag       = "begin_drag"
	MsgHover           = "hover"
	MsgDrop            = "drop"
	MsgCancelDrag      = "cancel_drag"
	MsgSelect          = "select"
	MsgDeselect        = "deselect"
	MsgSelectAll       = "select_all"
	MsgDeselectAll     = "deselect_all"
	MsgArchiveSelected = "archive_selected"
	MsgRefresh         = "refresh"
)

// Server message types.
const (
	MsgBoard        = "board"
	MsgSelection    = "selection"
	MsgNotification = "notification"
	MsgBatchReport  = "batch_report"
	MsgError        = "error"
)

// ClientMessage is a command sent by the dashboard. Fields are used per type:
// begin_drag takes task_id, status and index; hover takes status; drop takes
// status and index; select and deselect take task_ids.
type ClientMessage struct {
	Type    string            `json:"type"`
	TaskID  uuid.UUID         `json:"task_id,omitempty"`
	Status  domain.TaskStatus `json:"status,omitempty"`
	Index   int               `json:"index"`
	TaskIDs []uuid.UUID       `json:"task_ids,omitempty"`
}

// ServerMessage is an update pushed to the dashboard.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// BoardState is the payload of a board message.
type BoardState struct {
	ProjectID uuid.UUID          `json:"project_id"`
	Revision  uint64             `json:"revision"`
	Columns   []board.Column     `json:"columns"`
	Drag      *board.PendingMove `json:"drag,omitempty"`
	Highlight domain.TaskStatus  `json:"highlight,omitempty"`
	ReadOnly  bool               `json:"read_only"`
}

// SelectionState is the payload of a selection message.
type SelectionState struct {
	TaskIDs []uuid.UUID `json:"task_ids"`
	Count   int         `json:"count"`
}

// BatchReportState is the payload of a batch_report message.
type BatchReportState struct {
	RunID   *uuid.UUID    `json:"run_id,omitempty"`
	Outcome batch.Outcome `json:"outcome"`
	Summary string        `json:"summary"`
	Report  *batch.Report `json:"report"`
}

type errorState struct {
	Message string `json:"message"`
}
