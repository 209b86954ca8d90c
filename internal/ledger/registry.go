// Package ledger implements the group registry and expense ledger.
//
// All validation happens before the store is touched: a rejected operation
// never writes anything. Rejections are *Error values carrying an ErrorKind.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/mmynk/roomiesplit/internal/models"
	"github.com/mmynk/roomiesplit/internal/storage"
	"github.com/mmynk/roomiesplit/pkg/keys"
)

// DefaultMaxMembers is the member bound used when none is configured.
const DefaultMaxMembers = 5

// MaxMembersLimit is the largest bound a registry accepts. A 20-member
// group is always rejected.
const MaxMembersLimit = 19

// Registry creates and resolves groups.
type Registry struct {
	store      storage.Store
	maxMembers int
}

// NewRegistry creates a Registry. maxMembers outside 1..MaxMembersLimit
// falls back to DefaultMaxMembers.
func NewRegistry(store storage.Store, maxMembers int) *Registry {
	if maxMembers < 1 || maxMembers > MaxMembersLimit {
		maxMembers = DefaultMaxMembers
	}
	return &Registry{store: store, maxMembers: maxMembers}
}

// MaxMembers returns the largest member list CreateGroup accepts.
func (r *Registry) MaxMembers() int {
	return r.maxMembers
}

// CreateGroup creates the group owned by creator with the given members.
// Members are stored exactly as given; the creator is not added implicitly.
func (r *Registry) CreateGroup(ctx context.Context, creator keys.Identity, members []keys.Identity) (*models.Group, error) {
	if len(members) > r.maxMembers {
		return nil, newError(TooManyMembers, "%d members, at most %d allowed", len(members), r.maxMembers)
	}
	if dups := lo.FindDuplicates(members); len(dups) > 0 {
		return nil, newError(DuplicateMember, "%s listed more than once", dups[0])
	}

	group := &models.Group{
		Key:     keys.GroupKey(creator),
		Owner:   creator,
		Members: append([]keys.Identity{}, members...),
	}

	if err := r.store.CreateGroup(ctx, group); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, newError(AlreadyExists, "group %s already exists", group.Key)
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	slog.Debug("Group stored", "group_key", group.Key, "owner", creator, "members_count", len(members))
	return group, nil
}

// GetGroup resolves a group by key.
func (r *Registry) GetGroup(ctx context.Context, key keys.Key) (*models.Group, error) {
	group, err := r.store.GetGroup(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(GroupNotFound, "group %s", key)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroups returns every group, oldest first.
func (r *Registry) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := r.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}
