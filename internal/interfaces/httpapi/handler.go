package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// SyncRunner runs reconciliation passes on demand.
type SyncRunner interface {
	RunSync(ctx context.Context) (usecase.SyncRunResult, error)
	RecalculateCompetition(ctx context.Context, competitionID string) (usecase.LeaderboardResult, error)
}

// DuplicateReporter lists probable duplicate matches of a competition.
type DuplicateReporter interface {
	Report(ctx context.Context, competitionID string) (usecase.DuplicateReport, error)
}

type Handler struct {
	syncRunner SyncRunner
	duplicates DuplicateReporter
	logger     *logging.Logger
	validator  *validator.Validate
}

func NewHandler(syncRunner SyncRunner, duplicates DuplicateReporter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		syncRunner: syncRunner,
		duplicates: duplicates,
		logger:     logger,
		validator:  validator.New(),
	}
}

type runSyncRequest struct {
	Async bool `json:"async"`
}

type competitionPathParams struct {
	CompetitionID string `validate:"required,max=128"`
}

type asyncAcceptedDTO struct {
	Status string `json:"status"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) RunSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncJob")
	defer span.End()

	if h.syncRunner == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync runner is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req runSyncRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if req.Async {
		detached := context.WithoutCancel(ctx)
		go func() {
			result, err := h.syncRunner.RunSync(detached)
			if err != nil {
				h.logger.WarnContext(detached, "async sync run failed", "error", err)
				return
			}
			h.logger.InfoContext(detached, "async sync run finished",
				"run_id", result.RunID,
				"success", result.SuccessCount,
				"failed", result.FailedCount,
			)
		}()
		writeSuccess(ctx, w, http.StatusAccepted, asyncAcceptedDTO{Status: "accepted"})
		return
	}

	result, err := h.syncRunner.RunSync(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run sync job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RecalculateCompetitionJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecalculateCompetitionJob")
	defer span.End()

	if h.syncRunner == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync runner is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	params := competitionPathParams{CompetitionID: strings.TrimSpace(r.PathValue("competitionID"))}
	if err := h.validateRequest(ctx, params); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.syncRunner.RecalculateCompetition(ctx, params.CompetitionID)
	if err != nil {
		h.logger.WarnContext(ctx, "recalculate competition failed", "competition_id", params.CompetitionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetDuplicateReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDuplicateReport")
	defer span.End()

	if h.duplicates == nil {
		writeError(ctx, w, fmt.Errorf("%w: duplicate reporter is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	params := competitionPathParams{CompetitionID: strings.TrimSpace(r.PathValue("competitionID"))}
	if err := h.validateRequest(ctx, params); err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.duplicates.Report(ctx, params.CompetitionID)
	if err != nil {
		h.logger.WarnContext(ctx, "duplicate report failed", "competition_id", params.CompetitionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeOptionalJSON treats an empty body as the zero request.
func decodeOptionalJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}

	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
