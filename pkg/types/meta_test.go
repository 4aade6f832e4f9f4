package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseMetaSetGet(t *testing.T) {
	var m BaseMeta
	for _, key := range []string{MetaDocID, MetaProcessState, MetaCacheState} {
		require.NoError(t, m.Set(key, key+"-value"))
		got, err := m.Get(key)
		require.NoError(t, err)
		assert.Equal(t, key+"-value", got)
	}

	assert.ErrorIs(t, m.Set("language", "en"), ErrAttributeNotFound)
	_, err := m.Get("language")
	assert.ErrorIs(t, err, ErrAttributeNotFound)
}
