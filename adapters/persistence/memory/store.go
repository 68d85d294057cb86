// Package memory keeps users and profiles in process memory. It backs the
// "memory" store driver and the use-case and HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/internal/domain/user"
)

type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]user.User
	profiles map[uuid.UUID]profile.Profile
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]user.User),
		profiles: make(map[uuid.UUID]profile.Profile),
	}
}

func (s *Store) Users() user.Repository {
	return &userRepo{s: s}
}

func (s *Store) Profiles() profile.Repository {
	return &profileRepo{s: s}
}

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) UpdateAvatar(_ context.Context, id uuid.UUID, avatarURL string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Avatar = avatarURL
	r.s.users[id] = u
	return nil
}

func (r *userRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

type profileRepo struct {
	s *Store
}

// load must be called with the store lock held.
func (r *profileRepo) load(userID uuid.UUID) (*profile.Profile, bool) {
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, false
	}
	out := clone(p)
	if u, ok := r.s.users[userID]; ok {
		out.Owner = u.Owner()
	}
	return out, true
}

func (r *profileRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*profile.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.load(userID)
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func (r *profileRepo) List(_ context.Context) ([]*profile.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*profile.Profile, 0, len(r.s.profiles))
	for userID := range r.s.profiles {
		p, _ := r.load(userID)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *profileRepo) Create(_ context.Context, p *profile.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := clone(*p)
	stored.Owner = nil
	r.s.profiles[p.UserID] = *stored
	return nil
}

func (r *profileRepo) Merge(_ context.Context, userID uuid.UUID, f profile.Fields, updatedAt time.Time) (*profile.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	f.Apply(&p)
	p.UpdatedAt = updatedAt
	r.s.profiles[userID] = p

	out, _ := r.load(userID)
	return out, nil
}

func (r *profileRepo) SaveEntries(_ context.Context, p *profile.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.profiles[p.UserID]
	if !ok {
		return profile.ErrProfileNotFound
	}
	cp := clone(*p)
	stored.Experience = cp.Experience
	stored.Education = cp.Education
	stored.UpdatedAt = p.UpdatedAt
	r.s.profiles[p.UserID] = stored
	return nil
}

func (r *profileRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.profiles, userID)
	return nil
}

func clone(p profile.Profile) *profile.Profile {
	p.Skills = append([]string(nil), p.Skills...)
	p.Experience = append([]profile.Experience{}, p.Experience...)
	p.Education = append([]profile.Education{}, p.Education...)
	return &p
}
