package handler

import (
	"context"
	"errors"

	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/domain/entity/outcome"
)

// Process exit codes
const (
	ExitOK              = 0
	ExitInvalidArgs     = 1
	ExitConsentDeclined = 2
	// 128 + SIGINT, the inputs left over were never attempted
	ExitInterrupted     = 130
)

// Response is what a finished run reports back to the process
type Response struct {
	ExitCode int
	Stats    outcome.Statistics
	Error    string
}

func successResponse(stats outcome.Statistics) Response {
	return Response{
		ExitCode: ExitOK,
		Stats:    stats,
	}
}

func errorResponse(code int, stats outcome.Statistics, message string) Response {
	return Response{
		ExitCode: code,
		Stats:    stats,
		Error:    message,
	}
}

func (h *RetrieveHandler) handleSuccess(stats outcome.Statistics) Response {
	h.diagnostics.Report(stats)
	h.logger.Info("Retrieval successfully completed!")
	h.metrics.IncrementCounter("handler.runs", map[string]string{"result": "success"})
	return successResponse(stats)
}

func (h *RetrieveHandler) handleError(stats outcome.Statistics, err error) Response {
	h.diagnostics.Report(stats)

	switch {
	case errors.Is(err, artifact.ErrConsentDeclined):
		h.logger.Error("Retrieval stopped, license declined", "error", err.Error())
		h.metrics.IncrementCounter("handler.runs", map[string]string{"result": "consent_declined"})
		return errorResponse(ExitConsentDeclined, stats, err.Error())

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Error("Retrieval interrupted", "error", err.Error())
		h.metrics.IncrementCounter("handler.runs", map[string]string{"result": "interrupted"})
		return errorResponse(ExitInterrupted, stats, err.Error())

	default:
		h.logger.Error("Retrieval failed", "error", err.Error())
		h.metrics.IncrementCounter("handler.runs", map[string]string{"result": "invalid_request"})
		return errorResponse(ExitInvalidArgs, stats, err.Error())
	}
}
