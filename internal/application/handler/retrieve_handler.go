package handler

import (
	"context"

	"massdownloader/internal/application/dto"
	"massdownloader/internal/application/ports"
	"massdownloader/internal/application/usecase"
	"massdownloader/internal/domain/entity/outcome"
)

// Retriever is the use case the handler drives
type Retriever interface {
	ProcessAll(ctx context.Context, req *dto.RetrieveRequest) (outcome.Statistics, error)
}

var _ Retriever = (*usecase.RetrieveArtifacts)(nil)

type RetrieveHandler struct {
	usecase     Retriever
	diagnostics ports.Diagnostics
	logger      ports.Logger
	metrics     ports.Metrics
}

func NewRetrieveHandler(retriever Retriever, diagnostics ports.Diagnostics, obs ports.Observability) (*RetrieveHandler, error) {
	logger, metrics, err := obs.ComponentsScoped("handler.retrieve")
	if err != nil {
		return nil, err
	}
	return &RetrieveHandler{
		usecase:     retriever,
		diagnostics: diagnostics,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Handle runs one batch and always ends with the statistics report, even
// when the request never got past validation.
func (h *RetrieveHandler) Handle(ctx context.Context, req *dto.RetrieveRequest) Response {
	if req == nil {
		return h.handleError(outcome.Statistics{}, ErrHandlerNilRequest)
	}

	stats, err := h.usecase.ProcessAll(ctx, req)
	if err != nil {
		return h.handleError(stats, err)
	}
	return h.handleSuccess(stats)
}
