package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeState_FillsDefaultsForOlderDocuments(t *testing.T) {
	// 旧版本存档：只有部分顶层字段
	raw := []byte(`{
		"profile": {"name": "Antônio Pereira", "age": 79},
		"medications": [{"id": "100", "name": "Losartana", "dosage": "50mg", "time": "08:00", "takenToday": false}]
	}`)

	state, err := DecodeState(raw)
	require.NoError(t, err)

	assert.Equal(t, "Antônio Pereira", state.Profile.Name)
	assert.Equal(t, 79, state.Profile.Age)
	require.Len(t, state.Medications, 1)
	assert.Equal(t, "Losartana", state.Medications[0].Name)

	// 缺失的字段由默认骨架补齐，不会导致加载失败
	assert.NotNil(t, state.Appointments)
	assert.NotNil(t, state.ShoppingList)
	assert.NotNil(t, state.Reimbursements)
	assert.Len(t, state.Caregivers, 2)
	assert.Nil(t, state.CurrentUser)
	assert.False(t, state.IsAuthenticated)
}

func TestDecodeState_InvalidJSON(t *testing.T) {
	_, err := DecodeState([]byte(`{not json`))
	assert.Error(t, err)
}

func TestClone_Independence(t *testing.T) {
	state := DefaultState()
	state.Medications = []Medication{
		{ID: "1", Name: "Losartana", Dosage: "50mg", Time: "08:00"},
	}
	state.CurrentUser = &Caregiver{ID: "c1", Name: "Maria"}

	clone := state.Clone()
	clone.Medications[0].Name = "changed"
	clone.CurrentUser.Name = "changed"
	clone.Caregivers = append(clone.Caregivers, Caregiver{ID: "9"})

	assert.Equal(t, "Losartana", state.Medications[0].Name)
	assert.Equal(t, "Maria", state.CurrentUser.Name)
	assert.Len(t, state.Caregivers, 2)
}

func TestFingerprint_StableAcrossClones(t *testing.T) {
	state := DefaultState()
	state.Medications = []Medication{{ID: "1", Name: "Losartana", Time: "08:00"}}

	assert.Equal(t, state.Fingerprint(), state.Clone().Fingerprint())

	other := state.Clone()
	other.Medications[0].TakenToday = true
	assert.NotEqual(t, state.Fingerprint(), other.Fingerprint())
}

func TestPatch_ReplacesTopLevelKeysWholesale(t *testing.T) {
	state := DefaultState()
	state.Medications = []Medication{
		{ID: "1", Name: "Losartana"},
		{ID: "2", Name: "Metformina"},
	}
	state.Tasks = []GeneralTask{{ID: "t1", Text: "Comprar fraldas"}}

	newMeds := []Medication{{ID: "3", Name: "AAS"}}
	Patch{Medications: &newMeds}.Apply(state)

	// 集合整键替换，不做深度合并
	require.Len(t, state.Medications, 1)
	assert.Equal(t, "AAS", state.Medications[0].Name)

	// 补丁未携带的键保持不变
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, "Comprar fraldas", state.Tasks[0].Text)
}

func TestPatch_EmptySliceReplaces(t *testing.T) {
	state := DefaultState()
	state.Chat = []ChatMessage{{ID: "m1", Text: "oi"}}

	empty := []ChatMessage{}
	Patch{Chat: &empty}.Apply(state)

	assert.Len(t, state.Chat, 0)
	assert.NotNil(t, state.Chat)
}

func TestClone_NormalizesNilCollections(t *testing.T) {
	state := DefaultState()
	state.Medications = nil
	state.Exams = nil
	state.Profile.HouseRules = nil

	clone := state.Clone()
	assert.NotNil(t, clone.Medications)
	assert.NotNil(t, clone.Exams)
	assert.NotNil(t, clone.Profile.HouseRules)

	// 空集合序列化为 []：推送的文档拉回后解码，指纹必须一致，
	// 否则回声抑制失效，调和循环会做一次多余的合并
	pushed := clone.Fingerprint()
	fetched, err := DecodeState([]byte(pushed))
	require.NoError(t, err)
	assert.Equal(t, pushed, fetched.Fingerprint())
}

func TestPatch_NilSliceClearsWithoutResurrectingDefaults(t *testing.T) {
	state := DefaultState()

	var none []Caregiver
	Patch{Caregivers: &none}.Apply(state)
	require.NotNil(t, state.Caregivers)
	assert.Len(t, state.Caregivers, 0)

	// 清空后的文档往返一遍：默认骨架的两名种子照护人员不得复活
	fetched, err := DecodeState([]byte(state.Fingerprint()))
	require.NoError(t, err)
	assert.Len(t, fetched.Caregivers, 0)
	assert.Equal(t, state.Fingerprint(), fetched.Fingerprint())
}

func TestNewEntityID(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123", NewEntityID(at))
}
