package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user.table))
	for _, u := range repo.db.user.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}

	var emailTaken bool
	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			emailTaken = true
		}
	}
	if emailTaken {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.query() {
		if filter == nil || matchUser(u, filter) {
			users = append(users, u)
		}
	}
	sortUsers(users, ordering)
	return users, nil
}

func matchUser(u user.User, filter *user.QueryFilter) bool {
	// users with search keyword matching any Name, Username or Email ?
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(u.Username), search) ||
			strings.Contains(strings.ToLower(u.Email), search) ||
			strings.Contains(strings.ToLower(u.Name), search)) {
			return false
		}
	}
	// users with any of the specified roles
	if len(filter.Roles) > 0 {
		var found bool
		for _, r := range filter.Roles {
			if u.RoleStartsWith(r) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	if filter.IDs != nil && !contains(filter.IDs, u.ID) {
		return false
	}
	return true
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(users[i].Name, users[j].Name)
			case "username":
				cmp = strings.Compare(users[i].Username, users[j].Username)
			case "email":
				cmp = strings.Compare(users[i].Email, users[j].Email)
			case "created_at":
				cmp = compareTimes(users[i].CreatedAt, users[j].CreatedAt)
			case "last_login":
				cmp = compareTimes(users[i].LastLogin, users[j].LastLogin)
			}
			if cmp != 0 {
				if ord.Ascending {
					return cmp < 0
				}
				return cmp > 0
			}
		}
		return false
	})
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	var match func(u *user.User) bool
	switch {
	case filter.ID != "":
		if usr, ok := repo.db.user.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	case filter.Username != "":
		match = func(u *user.User) bool { return u.Username == filter.Username }
	case filter.Email != "":
		match = func(u *user.User) bool { return u.Email == filter.Email }
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
			if uname == "" {
				uname = email
			}
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		match = func(u *user.User) bool {
			return (u.Username != "" && u.Username == uname) || (u.Email != "" && u.Email == email)
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	for _, usr := range repo.db.user.table {
		if match(usr) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if _, ok := repo.db.user.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	_, exists := repo.db.user.table[usr.ID]
	repo.db.user.RUnlock()

	if exists {
		return repo.UpdateUser(ctx, usr, exec...)
	}
	return repo.CreateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.user.table[id]; ok {
			delete(repo.db.user.table, id)
			deleted++
		}
	}
	return deleted, nil
}
