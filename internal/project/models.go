// Package project persists timeline snapshots and export job records in
// the agent database.
package project

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("project not found")

// Project is a saved timeline. ClipCount and Duration are derived from the
// stored clips when the project is read.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ClipCount int       `json:"clip_count"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Config keys stored in the config table.
const (
	ConfigKeyAuthToken     = "auth_token"
	ConfigKeyLastProjectID = "last_project_id"
)

func NewID() string {
	return uuid.NewString()
}
