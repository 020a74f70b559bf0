package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/planrelay/internal/crm"
	"github.com/navid-fn/planrelay/internal/model"
	"github.com/navid-fn/planrelay/internal/requestid"
	"github.com/navid-fn/planrelay/internal/service"
)

// PlanSubmitter is implemented by *service.PlanService.
type PlanSubmitter interface {
	Submit(ctx context.Context, sub model.PlanSubmission) (*service.Delivery, error)
}

type PlanHandler struct {
	planService PlanSubmitter
	logger      *logrus.Logger
}

func NewPlanHandler(planService PlanSubmitter, logger *logrus.Logger) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		logger:      logger,
	}
}

type planResponse struct {
	OK bool `json:"ok"`
	*service.Delivery
}

type errorResponse struct {
	OK             bool         `json:"ok"`
	Error          string       `json:"error"`
	Code           service.Code `json:"code"`
	Step           service.Step `json:"step,omitempty"`
	ContactID      string       `json:"contact_id,omitempty"`
	UpstreamStatus int          `json:"upstream_status,omitempty"`
	Upstream       any          `json:"upstream,omitempty"`
}

// EmailPlan handles POST /email-plan.
func (h *PlanHandler) EmailPlan(c *gin.Context) {
	var sub model.PlanSubmission
	// an empty body is an empty submission and fails identity validation
	if err := c.ShouldBindJSON(&sub); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestid.From(c.Request.Context()),
		}).WithError(err).Warn("rejecting malformed plan payload")
		code := service.CodeInvalidPayload
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = service.CodePayloadTooLarge
		}
		respondError(c, nil, service.NewStepError(service.StepValidate, code, err))
		return
	}

	delivery, err := h.planService.Submit(c.Request.Context(), sub)
	if err != nil {
		respondError(c, delivery, err)
		return
	}

	c.JSON(http.StatusOK, planResponse{OK: true, Delivery: delivery})
}

func respondError(c *gin.Context, delivery *service.Delivery, err error) {
	resp := errorResponse{
		OK:    false,
		Error: err.Error(),
		Code:  service.CodeUnhandled,
	}

	if stepErr, ok := service.AsStepError(err); ok {
		resp.Code = stepErr.Code
		resp.Step = stepErr.Step
		if stepErr.Err != nil {
			resp.Error = stepErr.Err.Error()
		}
	}
	if apiErr, ok := crm.AsAPIError(err); ok {
		resp.UpstreamStatus = apiErr.StatusCode
		resp.Upstream = apiErr.Payload()
	}
	if delivery != nil {
		resp.ContactID = delivery.ContactID
	}

	c.AbortWithStatusJSON(statusFor(resp.Code), resp)
}

func statusFor(code service.Code) int {
	switch code {
	case service.CodeInvalidPayload, service.CodeMissingIdentity:
		return http.StatusBadRequest
	case service.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case service.CodeLookupFailed,
		service.CodeFieldSchemaFailed,
		service.CodeCreateFailed,
		service.CodeUpdateFailed,
		service.CodeContactUnresolved,
		service.CodeTagAddFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
