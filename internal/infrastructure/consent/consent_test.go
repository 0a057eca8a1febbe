package consent

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"massdownloader/internal/application/ports"
	"massdownloader/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt_RequestConsent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes word", "YES\n", true},
		{"no", "n\n", false},
		{"empty line", "\n", false},
		{"eof", "", false},
		{"answer without newline", "y", true},
		{"retry after garbage", "maybe\ny\n", true},
		{"garbage then eof", "maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			prompt := NewPrompt(strings.NewReader(tt.input), &out)

			got, err := prompt.RequestConsent(context.Background(), ports.ConsentRequest{LicenseText: "Reference Source License"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Reference Source License")
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestPrompt_ReusesInput(t *testing.T) {
	prompt := NewPrompt(strings.NewReader("n\ny\n"), &bytes.Buffer{})

	first, err := prompt.RequestConsent(context.Background(), ports.ConsentRequest{})
	require.NoError(t, err)
	second, err := prompt.RequestConsent(context.Background(), ports.ConsentRequest{})
	require.NoError(t, err)

	assert.False(t, first)
	assert.True(t, second)
}

func TestPrompt_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPrompt(strings.NewReader("y\n"), &bytes.Buffer{}).RequestConsent(ctx, ports.ConsentRequest{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy(t *testing.T) {
	accept, err := NewPolicy(true, mocks.NewQuietObservability())
	require.NoError(t, err)
	reject, err := NewPolicy(false, mocks.NewQuietObservability())
	require.NoError(t, err)

	ok, err := accept.RequestConsent(context.Background(), ports.ConsentRequest{LicenseText: "terms"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reject.RequestConsent(context.Background(), ports.ConsentRequest{LicenseText: "terms"})
	require.NoError(t, err)
	assert.False(t, ok)
}
