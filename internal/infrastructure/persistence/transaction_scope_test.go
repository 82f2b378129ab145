package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"gorm.io/gorm"
)

type recordingSaver struct {
	saved []shared.DomainEvent
	tx    any
}

func (s *recordingSaver) SaveEvents(_ context.Context, tx any, events ...shared.DomainEvent) error {
	s.tx = tx
	s.saved = append(s.saved, events...)
	return nil
}

func TestGormTransactionScope_Commit(t *testing.T) {
	db := setupTestDB(t)
	saver := &recordingSaver{}
	scope := NewGormTransactionScope(db, saver)
	artist := createTestUser(t, db, "artist", identity.RoleArtist)
	artwork := newTestArtwork(t, artist.ID, "Committed", "10")

	err := scope.Execute(context.Background(), func(repos appshared.TransactionalRepositories) error {
		if err := repos.Artworks().Create(context.Background(), artwork); err != nil {
			return err
		}
		return repos.Events().Record(context.Background(), artwork.GetDomainEvents()...)
	})
	require.NoError(t, err)

	_, err = NewGormArtworkRepository(db).FindByID(context.Background(), artwork.ID)
	assert.NoError(t, err)
	require.Len(t, saver.saved, 1)
	_, isTx := saver.tx.(*gorm.DB)
	assert.True(t, isTx)
}

func TestGormTransactionScope_Rollback(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db, nil)
	artist := createTestUser(t, db, "artist", identity.RoleArtist)
	artwork := newTestArtwork(t, artist.ID, "Rolled Back", "10")
	boom := errors.New("boom")

	err := scope.Execute(context.Background(), func(repos appshared.TransactionalRepositories) error {
		require.NoError(t, repos.Artworks().Create(context.Background(), artwork))
		// a nil saver records nothing
		require.NoError(t, repos.Events().Record(context.Background(), artwork.GetDomainEvents()...))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewGormArtworkRepository(db).FindByID(context.Background(), artwork.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
