package application

import (
	"context"

	"github.com/waveportal/waved/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	DetectAndLoad(ctx context.Context)
	Connect(ctx context.Context) (string, error)
	SubmitWave(ctx context.Context, message string) (*domain.Submission, error)
	ListSubmissions(ctx context.Context) (*SubmissionsInfo, error)
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	GetTotalWaves(ctx context.Context) (uint64, error)
	GetSession(ctx context.Context) SessionInfo
	ListWaves(ctx context.Context) []domain.Wave
	GetWaveEventsChannel(ctx context.Context) <-chan domain.Wave
}

type SessionInfo struct {
	WalletPresent bool
	Connected     bool
	Address       string
	Subscribed    bool
}

type SubmissionsInfo struct {
	State       domain.SubmitState
	InFlight    int
	Submissions []domain.Submission
}
