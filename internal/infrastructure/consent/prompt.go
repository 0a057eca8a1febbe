// Package consent holds the gates that decide whether a run may download
// source files covered by the server's license.
package consent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"massdownloader/internal/application/ports"
)

// Prompt shows the license on out and reads the answer from in
type Prompt struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// RequestConsent blocks until the operator answers. Only one prompt is shown
// at a time; end of input counts as a refusal.
func (p *Prompt) RequestConsent(ctx context.Context, req ports.ConsentRequest) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	if text := strings.TrimSpace(req.LicenseText); text != "" {
		fmt.Fprintf(p.out, "%s\n\n", text)
	}

	for {
		fmt.Fprint(p.out, "Do you accept the license agreement? [y/N]: ")

		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}

		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}
