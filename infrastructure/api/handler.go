package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nervoshalving/countdown-service/entities"
	"go.uber.org/zap"
)

type Handler struct {
	dp      DisplayProvider
	timeout time.Duration
	logger  *zap.SugaredLogger
}

type BreakdownResponse struct {
	Years   int64 `json:"years"`
	Months  int64 `json:"months"`
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

type CountdownResponse struct {
	State              string            `json:"state"`
	Countdown          string            `json:"countdown"`
	TargetSentence     string            `json:"targetSentence"`
	RemainingMillis    int64             `json:"remainingMillis"`
	Breakdown          BreakdownResponse `json:"breakdown"`
	CurrentBlock       *uint64           `json:"currentBlock,omitempty"`
	CurrentBlockText   string            `json:"currentBlockText,omitempty"`
	CurrentEpoch       *uint64           `json:"currentEpoch,omitempty"`
	CurrentEpochIndex  *uint64           `json:"currentEpochIndex,omitempty"`
	CurrentEpochLength *uint64           `json:"currentEpochLength,omitempty"`
	TargetEpoch        *uint64           `json:"targetEpoch,omitempty"`
	TargetTime         *time.Time        `json:"targetTime,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewHandler(dp DisplayProvider, timeout time.Duration, logger *zap.SugaredLogger) *Handler {
	return &Handler{dp: dp, timeout: timeout, logger: logger}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/countdown", h.GetCountdown)
	mux.HandleFunc("GET /health", h.GetHealth)
}

func (h *Handler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	display, err := h.dp.Display(ctx)
	if err != nil {
		h.logger.Errorw("Error getting countdown display", "error", err)
		http.Error(w, "Error getting countdown", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, toCountdownResponse(display))
}

func (h *Handler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, HealthResponse{Status: "UP"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Errorw("Error encoding response", "error", err)
	}
}

func toCountdownResponse(display entities.Display) CountdownResponse {
	b := display.View.Breakdown
	response := CountdownResponse{
		State:           string(display.State),
		Countdown:       display.Countdown,
		TargetSentence:  display.TargetSentence,
		RemainingMillis: max(display.View.RemainingMillis, 0),
		Breakdown: BreakdownResponse{
			Years:   b.Years,
			Months:  b.Months,
			Days:    b.Days,
			Hours:   b.Hours,
			Minutes: b.Minutes,
			Seconds: b.Seconds,
		},
	}

	if s := display.Snapshot; s != nil {
		block, number, index, length := s.BlockNumber, s.Epoch.Number, s.Epoch.Index, s.Epoch.Length
		response.CurrentBlock = &block
		response.CurrentBlockText = humanize.Comma(int64(block))
		response.CurrentEpoch = &number
		response.CurrentEpochIndex = &index
		response.CurrentEpochLength = &length
	}
	if t := display.Target; t != nil {
		epoch, targetTime := t.TargetEpoch, t.TargetTime.UTC()
		response.TargetEpoch = &epoch
		response.TargetTime = &targetTime
	}
	return response
}
