package columnstore

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"feedline/internal/adapters/memory"
	userEntity "feedline/internal/core/user"
	"feedline/internal/ports/store"
	userPort "feedline/internal/ports/user"
)

func testUser(username string) *userEntity.User {
	return &userEntity.User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     "Test",
		Family:   "User",
		Username: username,
		Mobile:   "09120000000",
		Password: "hash",
	}
}

func TestUserCreateFind(t *testing.T) {
	repo := NewUserRepository(memory.NewStore(Schema(0)))
	ctx := context.Background()

	u := testUser("ada")
	require.NoError(t, repo.Create(ctx, u))

	found, err := repo.FindByUsername(ctx, "ada")
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
	require.Equal(t, u.Name, found.Name)
	require.Equal(t, u.Mobile, found.Mobile)
	require.Equal(t, u.Password, found.Password)

	_, err = repo.FindByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserCreateDuplicate(t *testing.T) {
	repo := NewUserRepository(memory.NewStore(Schema(0)))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("ada")))
	err := repo.Create(ctx, testUser("ada"))
	require.ErrorIs(t, err, userPort.ErrAlreadyExists)
}

// racingStore lands a rival id claim with a later version the moment the
// first id cell is written, standing in for a concurrent registration that
// slipped past the existence check.
type racingStore struct {
	store.ColumnStore
	rivalID uuid.UUID
	raced   bool
}

func (s *racingStore) PutRow(ctx context.Context, table, rowKey, family, column string, version int64, value []byte) error {
	if table == TableUser && column == columnID && !s.raced {
		s.raced = true
		if err := s.ColumnStore.PutRow(ctx, table, rowKey, family, column, version+1, []byte(s.rivalID.String())); err != nil {
			return err
		}
	}
	return s.ColumnStore.PutRow(ctx, table, rowKey, family, column, version, value)
}

func TestUserCreateLosesClaimRace(t *testing.T) {
	base := memory.NewStore(Schema(0))
	rival := uuid.Must(uuid.NewV4())
	repo := NewUserRepository(&racingStore{ColumnStore: base, rivalID: rival})
	ctx := context.Background()

	err := repo.Create(ctx, testUser("ada"))
	require.ErrorIs(t, err, userPort.ErrAlreadyExists)

	// The surviving id is the rival's, and the loser wrote no other
	// columns into the row.
	cells, err := base.GetRow(ctx, TableUser, "ada", FamilyInfo, 1)
	require.NoError(t, err)
	for _, cell := range cells {
		require.Equal(t, columnID, cell.Column)
		require.Equal(t, rival.String(), string(cell.Value))
	}
}
