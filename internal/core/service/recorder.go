package service

import (
	"time"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// NopRecorder discards all observations.
type NopRecorder struct{}

var _ domain.Recorder = NopRecorder{}

func (NopRecorder) PageFetched(string)                           {}
func (NopRecorder) PriceResolved(string, string)                 {}
func (NopRecorder) EventExcluded(string)                         {}
func (NopRecorder) ReportCompleted(string, time.Duration, error) {}
