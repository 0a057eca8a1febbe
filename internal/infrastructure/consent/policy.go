package consent

import (
	"context"

	"massdownloader/internal/application/ports"
)

// Policy answers every request the same way, for unattended runs
type Policy struct {
	accept bool
	logger ports.Logger
}

func NewPolicy(accept bool, obs ports.Observability) (*Policy, error) {
	logger, err := obs.LoggerScoped("consent.policy")
	if err != nil {
		return nil, err
	}
	return &Policy{accept: accept, logger: logger}, nil
}

func (p *Policy) RequestConsent(ctx context.Context, req ports.ConsentRequest) (bool, error) {
	p.logger.Info("License answered by policy", "accepted", p.accept, "license_bytes", len(req.LicenseText))
	return p.accept, nil
}
