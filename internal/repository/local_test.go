package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/models"
)

func TestLocalStore_SaveAndLoadState(t *testing.T) {
	kv := newFakeKVStore()
	local := NewLocalStore(kv, zap.NewNop())
	ctx := context.Background()

	state := models.DefaultState()
	state.Medications = []models.Medication{
		{ID: "1", Name: "Losartana", Dosage: "50mg", Time: "08:00"},
	}

	require.NoError(t, local.SaveState(ctx, *state))

	loaded, err := local.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Medications, 1)
	assert.Equal(t, "Losartana", loaded.Medications[0].Name)
}

func TestLocalStore_LoadState_Absent(t *testing.T) {
	local := NewLocalStore(newFakeKVStore(), zap.NewNop())

	loaded, err := local.LoadState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLocalStore_LoadState_CorruptTreatedAsAbsent(t *testing.T) {
	kv := newFakeKVStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, StateKey, "{broken", 0))

	local := NewLocalStore(kv, zap.NewNop())

	loaded, err := local.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLocalStore_LoadState_OlderDocumentGetsDefaults(t *testing.T) {
	kv := newFakeKVStore()
	ctx := context.Background()
	// 旧版本客户端写入的文档没有 reimbursements / shoppingList 等字段
	require.NoError(t, kv.Set(ctx, StateKey, `{"profile":{"name":"Antônio"}}`, 0))

	local := NewLocalStore(kv, zap.NewNop())

	loaded, err := local.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Antônio", loaded.Profile.Name)
	assert.NotNil(t, loaded.ShoppingList)
	assert.NotNil(t, loaded.Reimbursements)
}

func TestLocalStore_SyncID(t *testing.T) {
	local := NewLocalStore(newFakeKVStore(), zap.NewNop())
	ctx := context.Background()

	// 未设置时返回空串
	id, err := local.LoadSyncID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", id)

	require.NoError(t, local.SaveSyncID(ctx, "CUIDA-12345678900"))

	id, err = local.LoadSyncID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CUIDA-12345678900", id)
}
