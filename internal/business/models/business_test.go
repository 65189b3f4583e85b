package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

func TestNewBusiness(t *testing.T) {
	now := time.Now()

	b, err := NewBusiness(id.BusinessID(uuid.New()), "BUS-000001", " Accra Bakery ", "Ama Mensah", "Bakery", "0244000001", "Accra Metropolitan", "", now)
	require.NoError(t, err)
	assert.Equal(t, "Accra Bakery", b.Name)
	assert.Equal(t, BusinessStatusActive, b.Status)
	assert.Equal(t, now, b.RegistrationDate)

	_, err = NewBusiness(id.BusinessID(uuid.New()), "BUS-000002", "X", "", "Bakery", "024", "Accra Metropolitan", "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewBusiness(id.BusinessID(uuid.New()), "BUS-000003", "X", "Y", "Bakery", "024", "Accra Metropolitan", "closed", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestApplyUpdate(t *testing.T) {
	b := &Business{Name: "Old", Phone: "1", Status: BusinessStatusPending}
	name := " New "
	status := BusinessStatusActive
	owner := id.UserID(uuid.New())

	u := BusinessUpdate{Name: &name, Status: &status, OwnerUserID: &owner}
	require.NoError(t, u.Validate())
	b.ApplyUpdate(u, time.Now())

	assert.Equal(t, "New", b.Name)
	assert.Equal(t, "1", b.Phone)
	assert.Equal(t, BusinessStatusActive, b.Status)
	assert.True(t, b.OwnedBy(owner))

	blank := " "
	assert.Error(t, BusinessUpdate{Phone: &blank}.Validate())
	assert.True(t, BusinessUpdate{}.IsEmpty())
}

func TestRecordPaymentOnlyMovesForward(t *testing.T) {
	b := &Business{}
	first := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	b.RecordPayment(first)
	b.RecordPayment(first.AddDate(0, 0, -1))
	require.NotNil(t, b.LastPaymentAt)
	assert.Equal(t, first, *b.LastPaymentAt)
}
