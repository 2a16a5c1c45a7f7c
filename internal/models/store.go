package models

import (
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
)

// ErrValidation marks input rejected before any remote call.
var ErrValidation = errors.New("validation error")

// StoreConfig binds one storefront to its tracker board and storage account.
type StoreConfig struct {
	ID              string `yaml:"-"`
	TrackerInstance int    `yaml:"tracker_instance"`
	StorageInstance int    `yaml:"storage_instance"`
	BoardID         string `yaml:"board_id"`
	ReporterID      string `yaml:"reporter_id"`
	EditingTeam     string `yaml:"editing_team"`
	TimeZone        string `yaml:"time_zone"`
}

// Location resolves the store's time zone, falling back to UTC.
func (s StoreConfig) Location() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
