package domain

import "time"

// IndexMeta describes the last successful index build, persisted alongside
// the snapshot so a restarted process can report what it restored.
type IndexMeta struct {
	Documents int       `json:"documents"`
	Judgments int       `json:"judgments"`
	BuiltAt   time.Time `json:"built_at"`
}
