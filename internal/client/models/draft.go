package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DisasterType classifies the event a record asks relief for.
type DisasterType string

const (
	DisasterEarthquake DisasterType = "earthquake"
	DisasterFlood      DisasterType = "flood"
	DisasterHurricane  DisasterType = "hurricane"
	DisasterFire       DisasterType = "fire"
)

var DisasterTypes = []DisasterType{DisasterEarthquake, DisasterFlood, DisasterHurricane, DisasterFire}

var ErrInvalidDraft = errors.New("invalid draft")

// Draft is the user's input for a new record, before encryption.
type Draft struct {
	OrganizationName string
	Location         string
	DisasterType     DisasterType
	Victims          int64
	Supplies         int64
}

func ParseDisasterType(s string) (DisasterType, error) {
	d := DisasterType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(DisasterTypes, d) {
		return "", fmt.Errorf("%w: unknown disaster type %q", ErrInvalidDraft, s)
	}
	return d, nil
}

func (d *Draft) Validate() error {
	if strings.TrimSpace(d.OrganizationName) == "" {
		return fmt.Errorf("%w: organization name is required", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidDraft)
	}
	if !slices.Contains(DisasterTypes, d.DisasterType) {
		return fmt.Errorf("%w: unknown disaster type %q", ErrInvalidDraft, d.DisasterType)
	}
	if d.Victims < 0 {
		return fmt.Errorf("%w: victim count must not be negative", ErrInvalidDraft)
	}
	if d.Supplies < 0 {
		return fmt.Errorf("%w: supply count must not be negative", ErrInvalidDraft)
	}
	return nil
}

// LocationDescriptor folds the location and the disaster type into the
// public descriptor stored on the ledger.
func (d *Draft) LocationDescriptor() string {
	return fmt.Sprintf("Location: %s, Disaster: %s", strings.TrimSpace(d.Location), d.DisasterType)
}
