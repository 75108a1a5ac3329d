package model

import (
	"fmt"
	"time"
)

// TimeLayout is the format locally written node timestamps use.
const TimeLayout = "2006-01-02T15:04:05.000Z"

type Node struct {
	ID         string     `json:"id" yaml:"id"`
	ParentID   *string    `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	UserID     string     `json:"userId" yaml:"userId"`
	Content    string     `json:"content" yaml:"content"`
	CreatedAt  time.Time  `json:"createdAt" yaml:"createdAt"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty" yaml:"archivedAt,omitempty"`

	// HasChildren is derived by the query layer; it is not a stored column.
	HasChildren bool `json:"hasChildren" yaml:"hasChildren"`
}

func (n Node) Archived() bool { return n.ArchivedAt != nil }

func (n Node) IsRoot() bool { return n.ParentID == nil || *n.ParentID == "" }

type CrudOp string

const (
	CrudPut    CrudOp = "PUT"
	CrudPatch  CrudOp = "PATCH"
	CrudDelete CrudOp = "DELETE"
)

// CrudEntry is one pending local write awaiting upload by the sync agent.
type CrudEntry struct {
	Seq       int64          `json:"seq" yaml:"seq"`
	TxID      int64          `json:"txId" yaml:"txId"`
	Op        CrudOp         `json:"op" yaml:"op"`
	Table     string         `json:"table" yaml:"table"`
	RowID     string         `json:"rowId" yaml:"rowId"`
	Data      map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt" yaml:"createdAt"`
}

type DownloadProgress struct {
	DownloadedOperations int64   `json:"downloadedOperations" yaml:"downloadedOperations"`
	TotalOperations      int64   `json:"totalOperations" yaml:"totalOperations"`
	DownloadedFraction   float64 `json:"downloadedFraction" yaml:"downloadedFraction"`
}

// String renders "downloaded/total (pct%)" with the percentage to two decimals.
func (p DownloadProgress) String() string {
	return fmt.Sprintf("%d/%d (%.2f%%)", p.DownloadedOperations, p.TotalOperations, p.DownloadedFraction*100)
}

type DataFlowStatus struct {
	Uploading   bool `json:"uploading" yaml:"uploading"`
	Downloading bool `json:"downloading" yaml:"downloading"`
}

// SyncStatus is reported by the external sync agent into the local database.
type SyncStatus struct {
	Connected        bool              `json:"connected" yaml:"connected"`
	HasSynced        bool              `json:"hasSynced" yaml:"hasSynced"`
	LastSyncedAt     *time.Time        `json:"lastSyncedAt,omitempty" yaml:"lastSyncedAt,omitempty"`
	DataFlow         DataFlowStatus    `json:"dataFlowStatus" yaml:"dataFlowStatus"`
	DownloadProgress *DownloadProgress `json:"downloadProgress,omitempty" yaml:"downloadProgress,omitempty"`
}

type Session struct {
	UserID    string    `json:"userId" yaml:"userId"`
	LocalID   string    `json:"localId,omitempty" yaml:"localId,omitempty"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// EffectiveLocalID returns LocalID, falling back to UserID.
func (s Session) EffectiveLocalID() string {
	if s.LocalID != "" {
		return s.LocalID
	}
	return s.UserID
}
