package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_listing_bot/internal/form"
	"account_listing_bot/internal/model"
)

func TestStore_GetOrCreate_Idempotent(t *testing.T) {
	s := NewStore()

	first := s.GetOrCreate(1)
	second := s.GetOrCreate(1)
	assert.Same(t, first, second)
	assert.NotNil(t, first.Form)
	assert.Empty(t, first.Form)

	assert.Nil(t, s.Get(2))
}

func TestStore_WriteAndDeleteField(t *testing.T) {
	s := NewStore()

	s.WriteField(1, model.FieldPrice, "100")
	s.WriteField(1, model.FieldPrice, "200")
	assert.Equal(t, "200", s.Get(1).Form.String(model.FieldPrice))

	s.DeleteField(1, model.FieldPrice)
	assert.False(t, s.Get(1).Form.Has(model.FieldPrice))

	s.DeleteField(99, model.FieldPrice)
	assert.Nil(t, s.Get(99))
}

func TestStore_Exclusivity(t *testing.T) {
	s := NewStore()

	s.Activate(1, &form.NumberState{Field: model.FieldPrice, MaxDigits: 8})
	s.Activate(1, &form.DivisionState{Field: model.FieldDivisionRivals})

	sess := s.Get(1)
	require.NotNil(t, sess.Active)
	assert.Equal(t, form.KindDivision, sess.Active.Kind())

	s.Await(1, model.FieldEmailType)
	assert.Nil(t, sess.Active)
	assert.Equal(t, model.FieldEmailType, sess.AwaitingField)

	s.Activate(1, &form.PlatformState{Step: form.StepChooseMain})
	assert.Empty(t, sess.AwaitingField)
	assert.Equal(t, form.KindPlatform, sess.Active.Kind())

	s.Deactivate(1)
	assert.True(t, sess.Idle())
}

func TestStore_ClearRemovesSubState(t *testing.T) {
	s := NewStore()
	s.WriteField(1, model.FieldPrice, "100")
	s.Activate(1, &form.PhotoUploadState{Field: model.FieldTeamPhotos, MaxPhotos: 3})

	s.Clear(1)
	assert.Nil(t, s.Get(1))

	fresh := s.GetOrCreate(1)
	assert.Nil(t, fresh.Active)
	assert.Empty(t, fresh.Form)
}

func TestStore_Start(t *testing.T) {
	s := NewStore()
	s.Activate(1, &form.DivisionState{Field: model.FieldDivisionRivals})

	id := int64(42)
	sess := s.Start(1, model.Form{model.FieldPrice: "1"}, &id)
	assert.Nil(t, sess.Active)
	assert.Equal(t, int64(42), *sess.PendingListingID)
	assert.Equal(t, "1", s.Get(1).Form.String(model.FieldPrice))
}
