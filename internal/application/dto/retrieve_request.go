package dto

import (
	"errors"
	"strings"
)

var (
	ErrNoInputs          = errors.New("at least one input file is required")
	ErrOutputRequired    = errors.New("output directory is required")
	ErrInvalidWorkers    = errors.New("workers must be zero or positive")
	ErrInputPathRequired = errors.New("input path cannot be empty")
)

// RetrieveRequest is one batch run as requested from the command line
type RetrieveRequest struct {
	// Inputs are the binaries to process, in order
	Inputs []string `json:"inputs"`

	// OutputRoot receives the PDBs and the source tree
	OutputRoot string `json:"output_root"`

	// SymbolCache lays the output out as a symbol server cache
	SymbolCache bool `json:"symbol_cache"`

	// Force re-downloads PDBs that are already cached
	Force bool `json:"force"`

	// Verbose prints one line per downloaded source file
	Verbose bool `json:"verbose"`

	// Workers is the number of inputs processed at once; 0 and 1 are sequential
	Workers int `json:"workers"`
}

func (r *RetrieveRequest) Validate() error {
	if len(r.Inputs) == 0 {
		return ErrNoInputs
	}
	for _, input := range r.Inputs {
		if strings.TrimSpace(input) == "" {
			return ErrInputPathRequired
		}
	}
	if strings.TrimSpace(r.OutputRoot) == "" {
		return ErrOutputRequired
	}
	if r.Workers < 0 {
		return ErrInvalidWorkers
	}
	return nil
}

// Concurrency returns the effective number of workers
func (r *RetrieveRequest) Concurrency() int {
	if r.Workers <= 1 {
		return 1
	}
	if r.Workers > len(r.Inputs) {
		return len(r.Inputs)
	}
	return r.Workers
}
