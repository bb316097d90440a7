package planner

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/roamplan/go-trip-planner/internal/api"
	"github.com/roamplan/go-trip-planner/internal/types"
)

// HandlerImpl is the HTTP boundary for the planning pipeline. Whatever
// happens inside, the client always gets a well-formed JSON body; internal
// error details never leak past this layer.
type HandlerImpl struct {
	plannerService Service
	logger         *slog.Logger
}

func NewHandlerImpl(plannerService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{plannerService: plannerService, logger: logger}
}

// GeneratePlan handles POST /plans/generate.
func (h *HandlerImpl) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "query must not be empty")
		return
	}

	resp, err := h.plannerService.GeneratePlan(r.Context(), req)
	if err != nil {
		h.writePipelineFailure(w, r, err)
		return
	}
	h.writePlanResponse(w, r, resp)
}

// EnhancePlan handles POST /plans/enhance.
func (h *HandlerImpl) EnhancePlan(w http.ResponseWriter, r *http.Request) {
	var req EnhanceRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.EnhanceQuery) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "query and user_enhance must not be empty")
		return
	}

	resp, err := h.plannerService.EnhancePlan(r.Context(), req)
	if err != nil {
		h.writePipelineFailure(w, r, err)
		return
	}
	h.writePlanResponse(w, r, resp)
}

// GetPlanRun handles GET /plans/{runID}.
func (h *HandlerImpl) GetPlanRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid run id")
		return
	}

	artifact, err := h.plannerService.GetPlanRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "plan run not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to load plan run", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to load plan run")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, artifact)
}

func (h *HandlerImpl) writePlanResponse(w http.ResponseWriter, r *http.Request, resp *PlanResponse) {
	body := map[string]interface{}{
		"success":       true,
		"response_type": "plans",
		"run_id":        resp.RunID,
		"destination":   resp.Destination,
		"plans":         resp.Plans,
		"budget_used":   resp.BudgetUsed,
		"stage_timings": resp.StageTimings,
	}
	if resp.NeedsDateClarification {
		body["needs_date_clarification"] = true
		body["message"] = "The requested start date is in the past. Did you mean a future date?"
	}
	api.WriteJSONResponse(w, r, http.StatusOK, body)
}

// writePipelineFailure maps pipeline errors onto client-safe bodies. A run
// with no usable spots is a normal outcome for obscure destinations and gets
// its own structured answer; everything else collapses into the generic
// failure envelope with fallback suggestions.
func (h *HandlerImpl) writePipelineFailure(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	switch {
	case errors.Is(err, types.ErrNoSpotsFound):
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
			"success":             false,
			"error":               types.ErrNoSpotsFound.Error(),
			"message":             "No suitable spots were found for that destination. Try a nearby city or different interests.",
			"follow_up_questions": api.DefaultFollowUps,
			"request_id":          reqID,
		})
	case errors.Is(err, types.ErrExtractionFailed):
		api.WriteJSONResponse(w, r, http.StatusUnprocessableEntity, api.FailureResponse{
			Success:           false,
			Message:           "Could not understand the trip request. Try rephrasing it.",
			FollowUpQuestions: api.DefaultFollowUps,
			RequestID:         reqID,
		})
	default:
		h.logger.ErrorContext(r.Context(), "Planning pipeline failed", slog.Any("error", err))
		api.WriteJSONResponse(w, r, http.StatusInternalServerError, api.FailureResponse{
			Success:           false,
			Message:           "Something went wrong while planning the trip. Please try again.",
			FollowUpQuestions: api.DefaultFollowUps,
			RequestID:         reqID,
		})
	}
}
