package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"itam-api/internal/models"
)

func TestLegacyHistory(t *testing.T) {
	assert.Equal(t, []string{}, legacyHistory(""))
	assert.Equal(t, []string{"Created.", "Moved."}, legacyHistory(`["Created.","Moved."]`))
	assert.Equal(t, []string{"free text"}, legacyHistory(" free text "))
}

func TestLegacyIDs(t *testing.T) {
	var absent legacyIDs
	id, ok := absent.user(7)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	ids := legacyIDs{
		users: map[int64]int64{5: 1},
		items: map[models.ItemKind]map[int64]int64{
			models.KindAsset:    {3: 1},
			models.KindComputer: {3: 4},
		},
	}
	_, ok = ids.user(9)
	assert.False(t, ok)

	id, _ = ids.item(models.KindAsset, 3)
	assert.Equal(t, int64(1), id)
	id, _ = ids.item(models.KindComputer, 3)
	assert.Equal(t, int64(4), id)
	_, ok = ids.item(models.KindAsset, 9)
	assert.False(t, ok)
}

func TestLegacyComponentVocabulary(t *testing.T) {
	assert.True(t, legacyComponentKind("ram"))
	assert.False(t, legacyComponentKind("Fan"))
	assert.True(t, legacyComponentStatus("Released"))
	assert.False(t, legacyComponentStatus("Lost"))
}
