package analysis

import (
	"errors"

	"github.com/uroflux/intake-api/internal/model"
)

// ErrUnreadableAudio is returned when the payload cannot be analyzed.
var ErrUnreadableAudio = errors.New("audio payload is empty or unreadable")

// Analyzer turns raw audio bytes into a metrics record. Implementations must
// be deterministic for identical input and free of side effects.
type Analyzer interface {
	Analyze(audio []byte) (model.Metrics, error)
}

// StubAnalyzer is the MVP placeholder; the real signal pipeline plugs in
// behind the same interface.
type StubAnalyzer struct{}

func NewStubAnalyzer() *StubAnalyzer {
	return &StubAnalyzer{}
}

func (a *StubAnalyzer) Analyze(audio []byte) (model.Metrics, error) {
	if len(audio) == 0 {
		return model.Metrics{}, ErrUnreadableAudio
	}

	return model.Metrics{
		DurationSeconds: 18.3,
		MaxFlowMLPerSec: 14.2,
		AvgFlowMLPerSec: 6.1,
		TotalVolumeML:   265.0,
		TimeToPeakSec:   4.7,
		DominantClass:   "water",
	}, nil
}
