package columnstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"

	userEntity "feedline/internal/core/user"
	"feedline/internal/ports/store"
	userPort "feedline/internal/ports/user"
)

const (
	columnID       = "id"
	columnName     = "name"
	columnFamilyN  = "family"
	columnMobile   = "mobile"
	columnPassword = "password"
	columnCreated  = "created_at"
)

// UserRepository keeps accounts in the user table, one row per username.
type UserRepository struct {
	store store.ColumnStore
	clock func() int64
}

func NewUserRepository(cs store.ColumnStore) *UserRepository {
	return &UserRepository{
		store: cs,
		clock: func() int64 { return time.Now().UnixMilli() },
	}
}

func (repo *UserRepository) Create(ctx context.Context, u *userEntity.User) error {
	existing, err := repo.store.GetRow(ctx, TableUser, u.Username, FamilyInfo, 1)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if len(existing) > 0 {
		return userPort.ErrAlreadyExists
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = repo.clock()
	}

	// The existence check above is not atomic with the writes, so the id
	// cell doubles as a claim on the username: write it first, read it
	// back, and only the id that survived writes the remaining columns.
	// A lost race never mixes two users' fields into one row.
	if err := repo.store.PutRow(ctx, TableUser, u.Username, FamilyInfo, columnID, u.CreatedAt, []byte(u.ID.String())); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	claim, err := repo.store.GetRow(ctx, TableUser, u.Username, FamilyInfo, 1)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	for _, cell := range claim {
		if cell.Column == columnID && string(cell.Value) != u.ID.String() {
			return userPort.ErrAlreadyExists
		}
	}

	cols := map[string]string{
		columnName:     u.Name,
		columnFamilyN:  u.Family,
		columnMobile:   u.Mobile,
		columnPassword: u.Password,
		columnCreated:  strconv.FormatInt(u.CreatedAt, 10),
	}
	for col, val := range cols {
		if err := repo.store.PutRow(ctx, TableUser, u.Username, FamilyInfo, col, u.CreatedAt, []byte(val)); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
	}
	return nil
}

func (repo *UserRepository) FindByUsername(ctx context.Context, username string) (*userEntity.User, error) {
	cells, err := repo.store.GetRow(ctx, TableUser, username, FamilyInfo, 1)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(cells) == 0 {
		return nil, store.ErrNotFound
	}
	u := &userEntity.User{Username: username}
	for _, cell := range cells {
		val := string(cell.Value)
		switch cell.Column {
		case columnID:
			u.ID, _ = uuid.FromString(val)
		case columnName:
			u.Name = val
		case columnFamilyN:
			u.Family = val
		case columnMobile:
			u.Mobile = val
		case columnPassword:
			u.Password = val
		case columnCreated:
			u.CreatedAt, _ = strconv.ParseInt(val, 10, 64)
		}
	}
	return u, nil
}
