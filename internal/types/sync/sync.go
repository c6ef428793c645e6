package sync

import (
	"fastTrackAPI/internal/types/fast"
	"fastTrackAPI/internal/types/weight"
)

// PushRequest is the offline-first upload: everything the client changed
// locally since its last sync. Rows carry their own updated_at so the server
// can merge last-write-wins by id.
type PushRequest struct {
	Fasts        []fast.Fast    `json:"fasts"`
	Weights      []weight.Entry `json:"weights"`
	LastSyncedAt int64          `json:"lastSyncedAt"` // epoch millis, 0 on first sync
}

// Outcome says what happened to one uploaded row.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeKeptLocal Outcome = "kept_server"  // server row was newer
	OutcomeTombstone Outcome = "tombstoned"   // row was deleted server-side
)

type PushResponse struct {
	Results        map[string]Outcome `json:"results"`
	ServerFasts    []fast.Fast        `json:"server_fasts"`   // changed since lastSyncedAt
	ServerWeights  []weight.Entry     `json:"server_weights"`
	SyncedAt       int64              `json:"syncedAt"`
}

type Snapshot struct {
	Fasts    []fast.Fast    `json:"fasts"`
	Weights  []weight.Entry `json:"weights"`
	SyncedAt int64          `json:"syncedAt"`
}
