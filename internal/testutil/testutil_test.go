package testutil

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProviderRecordsOpens(t *testing.T) {
	log := &OpenLog{}
	p := NewStub("a", "a.json", "{}", log)

	rc, err := p.Open(context.Background())
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "{}", string(data))
	assert.Equal(t, []string{"a"}, log.Opened())
	assert.True(t, log.Has("a"))
}

func TestSequenceIDs(t *testing.T) {
	g := NewSequenceIDs("")
	assert.Equal(t, "run-0001", g.Generate())
	assert.Equal(t, "run-0002", g.Generate())
}
