package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

func TestNewBackend(t *testing.T) {
	archive := NewBackend()
	require.NoError(t, archive.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer archive.Detach()

	id, err := archive.Put(&types.PackRecord{DocID: "doc1", Payload: `{"version":1}`})
	require.NoError(t, err)

	rec, err := archive.GetByDocID("doc1")
	require.NoError(t, err)
	assert.Equal(t, id, rec.PackID)
	assert.Equal(t, types.PayloadChecksum(`{"version":1}`), rec.Checksum)
}
