package artifact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		pdbPath  string
		version  string
		wantName string
		wantErr  bool
	}{
		{name: "windows path", pdbPath: `c:\build\obj\mscorlib.pdb`, version: "abc1", wantName: "mscorlib.pdb"},
		{name: "posix path", pdbPath: "/out/System.Xml.pdb", version: "ABC1", wantName: "System.Xml.pdb"},
		{name: "bare name", pdbPath: "foo.pdb", version: "1", wantName: "foo.pdb"},
		{name: "trailing separator", pdbPath: `c:\build\`, version: "1", wantName: "build"},
		{name: "dot dot", pdbPath: `c:\..`, version: "1", wantErr: true},
		{name: "empty", pdbPath: "", version: "1", wantErr: true},
		{name: "empty version", pdbPath: "foo.pdb", version: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := NewDescriptor(tt.pdbPath, tt.version)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, desc.Name)
		})
	}
}

func TestDescriptor_Key(t *testing.T) {
	desc, err := NewDescriptor("foo.pdb", "0a1b2c1")
	require.NoError(t, err)

	assert.Equal(t, "foo.pdb/0A1B2C1", desc.Key())
}

func TestWrappedErrorsKeepSentinel(t *testing.T) {
	cause := errors.New("boom")

	assert.ErrorIs(t, ErrTransportWith(cause), ErrTransport)
	assert.ErrorIs(t, ErrTransportWith(cause), cause)
	assert.ErrorIs(t, ErrNotExecutableWith(cause), ErrNotExecutable)
	assert.ErrorIs(t, ErrUnreadablePDBWith(cause), ErrUnreadablePDB)
}
