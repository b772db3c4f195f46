package httpservice

import (
	"time"

	"github.com/waveportal/waved/internal/core/application"
	"github.com/waveportal/waved/internal/core/domain"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type WaveResponse struct {
	Id        string `json:"id"`
	Address   string `json:"address"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type ListWavesResponse struct {
	Waves []WaveResponse `json:"waves"`
}

type SessionResponse struct {
	WalletPresent bool   `json:"walletPresent"`
	Connected     bool   `json:"connected"`
	Address       string `json:"address,omitempty"`
	Subscribed    bool   `json:"subscribed"`
}

type ConnectResponse struct {
	Address string `json:"address"`
}

type SubmitWaveRequest struct {
	Message string `json:"message"`
}

type SubmissionResponse struct {
	Id          string `json:"id"`
	Message     string `json:"message"`
	TxHash      string `json:"txHash,omitempty"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type SubmitWaveResponse struct {
	Submission SubmissionResponse `json:"submission"`
}

type GetSubmissionResponse struct {
	Submission SubmissionResponse `json:"submission"`
}

type ListSubmissionsResponse struct {
	State       string               `json:"state"`
	InFlight    int                  `json:"inFlight"`
	Submissions []SubmissionResponse `json:"submissions"`
}

type TotalWavesResponse struct {
	Total uint64 `json:"total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type wave domain.Wave

func (w wave) toResponse() WaveResponse {
	return WaveResponse{
		Id:        domain.Wave(w).Key(),
		Address:   w.Address,
		Message:   w.Message,
		Timestamp: formatTime(w.Timestamp),
	}
}

type waveList []domain.Wave

func (l waveList) toResponse() []WaveResponse {
	list := make([]WaveResponse, 0, len(l))
	for _, w := range l {
		list = append(list, wave(w).toResponse())
	}
	return list
}

type submission domain.Submission

func (s submission) toResponse() SubmissionResponse {
	return SubmissionResponse{
		Id:          s.Id,
		Message:     s.Message,
		TxHash:      s.TxHash,
		Status:      s.Status.String(),
		BlockNumber: s.BlockNumber,
		Error:       s.Err,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
}

type submissionsInfo application.SubmissionsInfo

func (i submissionsInfo) toResponse() ListSubmissionsResponse {
	list := make([]SubmissionResponse, 0, len(i.Submissions))
	for _, s := range i.Submissions {
		list = append(list, submission(s).toResponse())
	}
	return ListSubmissionsResponse{
		State:       i.State.String(),
		InFlight:    i.InFlight,
		Submissions: list,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
