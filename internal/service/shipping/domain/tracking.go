package domain

import "github.com/google/uuid"

// TrackingIDGenerator 生成运单追踪号
type TrackingIDGenerator func() string

// NewTrackingID returns a random (version 4) UUID in its canonical form.
func NewTrackingID() string {
	return uuid.NewString()
}
