package family

import "context"

type Repo interface {
	Create(ctx context.Context, f *Family) error
	GetByUID(ctx context.Context, uid string) (*Family, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *User) error
	GetByUID(ctx context.Context, uid string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByName(ctx context.Context, familyUID, name string) (*User, error)
	// ListByFamily returns every member of a family. The read observes any
	// transaction carried by ctx, so a mutation earlier in the same
	// transaction is already visible.
	ListByFamily(ctx context.Context, familyUID string) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, uid string) error
}

// PasswordRepo stores bcrypt hashes keyed by user uid.
type PasswordRepo interface {
	Set(ctx context.Context, userUID, hash string) error
	Hash(ctx context.Context, userUID string) (string, error)
}
