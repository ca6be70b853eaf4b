package contract

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"blockconnect/pkg/apperr"
)

// MemoryRegistry mimics the contract's rules in process. It backs
// CONTRACT_MODE=memory and the service tests.
type MemoryRegistry struct {
	mu sync.RWMutex

	usernames  map[string]string // address -> username
	addresses  map[string]string // username -> address
	registered []string

	posts       map[string]*Post
	postsByUser map[string][]string
	likes       map[string]map[string]bool

	pending   map[string]map[string]bool // to -> from
	followers map[string]map[string]bool // user -> follower
	following map[string]map[string]bool // user -> followee

	messagesHash map[string]string
	profiles     map[string]Profile

	now func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		usernames:    make(map[string]string),
		addresses:    make(map[string]string),
		posts:        make(map[string]*Post),
		postsByUser:  make(map[string][]string),
		likes:        make(map[string]map[string]bool),
		pending:      make(map[string]map[string]bool),
		followers:    make(map[string]map[string]bool),
		following:    make(map[string]map[string]bool),
		messagesHash: make(map[string]string),
		profiles:     make(map[string]Profile),
		now:          time.Now,
	}
}

func (r *MemoryRegistry) requireUser(address string) (string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	if _, ok := r.usernames[normalized]; !ok {
		return "", fmt.Errorf("address %s is not registered: %w", address, apperr.ErrConflict)
	}
	return normalized, nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *MemoryRegistry) Register(_ context.Context, address, username string) error {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	if username == "" {
		return fmt.Errorf("username: %w", apperr.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usernames[normalized]; ok {
		return fmt.Errorf("address %s already registered: %w", normalized, apperr.ErrConflict)
	}
	if _, ok := r.addresses[username]; ok {
		return fmt.Errorf("username %s already taken: %w", username, apperr.ErrConflict)
	}

	r.usernames[normalized] = username
	r.addresses[username] = normalized
	r.registered = append(r.registered, username)
	r.profiles[normalized] = Profile{Username: username}
	return nil
}

func (r *MemoryRegistry) Login(_ context.Context, address string) (bool, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.usernames[normalized]
	return ok, nil
}

func (r *MemoryRegistry) GetUsernames(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.registered...), nil
}

func (r *MemoryRegistry) GetAddressByUsername(_ context.Context, username string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	address, ok := r.addresses[username]
	if !ok {
		return "", fmt.Errorf("username %s: %w", username, apperr.ErrNotFound)
	}
	return address, nil
}

func (r *MemoryRegistry) GetUsername(_ context.Context, address string) (string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.usernames[normalized]
	if !ok {
		return "", fmt.Errorf("address %s: %w", address, apperr.ErrNotFound)
	}
	return username, nil
}

func (r *MemoryRegistry) CreatePost(_ context.Context, author, postID, contentHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized, err := r.requireUser(author)
	if err != nil {
		return err
	}
	if postID == "" || contentHash == "" {
		return fmt.Errorf("post id and content hash: %w", apperr.ErrInvalidInput)
	}
	if _, ok := r.posts[postID]; ok {
		return fmt.Errorf("post %s exists: %w", postID, apperr.ErrConflict)
	}

	r.posts[postID] = &Post{
		ID:          postID,
		Author:      normalized,
		ContentHash: contentHash,
		CreatedAt:   r.now().UTC().Truncate(time.Second),
	}
	r.postsByUser[normalized] = append(r.postsByUser[normalized], postID)
	return nil
}

func (r *MemoryRegistry) GetPostsByUser(_ context.Context, address string) ([]string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.postsByUser[normalized]...), nil
}

func (r *MemoryRegistry) GetPost(_ context.Context, postID string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	post, ok := r.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
	}
	out := *post
	out.Likes = int64(len(r.likes[postID]))
	return &out, nil
}

// LikePost toggles the like of address on postID.
func (r *MemoryRegistry) LikePost(_ context.Context, address, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized, err := r.requireUser(address)
	if err != nil {
		return err
	}
	if _, ok := r.posts[postID]; !ok {
		return fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
	}

	likes := r.likes[postID]
	if likes == nil {
		likes = make(map[string]bool)
		r.likes[postID] = likes
	}
	if likes[normalized] {
		delete(likes, normalized)
	} else {
		likes[normalized] = true
	}
	return nil
}

func (r *MemoryRegistry) GetPostLikes(_ context.Context, postID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.posts[postID]; !ok {
		return nil, fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
	}
	return keys(r.likes[postID]), nil
}

func (r *MemoryRegistry) SendFollowRequest(_ context.Context, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fromAddr, err := r.requireUser(from)
	if err != nil {
		return err
	}
	toAddr, err := r.requireUser(to)
	if err != nil {
		return err
	}
	if fromAddr == toAddr {
		return fmt.Errorf("cannot follow yourself: %w", apperr.ErrInvalidInput)
	}
	if r.followers[toAddr][fromAddr] {
		return fmt.Errorf("already following: %w", apperr.ErrConflict)
	}
	if r.pending[toAddr][fromAddr] {
		return fmt.Errorf("request already pending: %w", apperr.ErrConflict)
	}

	if r.pending[toAddr] == nil {
		r.pending[toAddr] = make(map[string]bool)
	}
	r.pending[toAddr][fromAddr] = true
	return nil
}

func (r *MemoryRegistry) AcceptFollowRequest(_ context.Context, user, from string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userAddr, err := r.requireUser(user)
	if err != nil {
		return err
	}
	fromAddr, err := NormalizeAddress(from)
	if err != nil {
		return err
	}
	if !r.pending[userAddr][fromAddr] {
		return fmt.Errorf("no pending request from %s: %w", fromAddr, apperr.ErrNotFound)
	}

	delete(r.pending[userAddr], fromAddr)
	if r.followers[userAddr] == nil {
		r.followers[userAddr] = make(map[string]bool)
	}
	if r.following[fromAddr] == nil {
		r.following[fromAddr] = make(map[string]bool)
	}
	r.followers[userAddr][fromAddr] = true
	r.following[fromAddr][userAddr] = true
	return nil
}

func (r *MemoryRegistry) set(m map[string]map[string]bool, address string) ([]string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(m[normalized]), nil
}

func (r *MemoryRegistry) GetPendingRequests(_ context.Context, address string) ([]string, error) {
	return r.set(r.pending, address)
}

func (r *MemoryRegistry) GetFollowers(_ context.Context, address string) ([]string, error) {
	return r.set(r.followers, address)
}

func (r *MemoryRegistry) GetFollowing(_ context.Context, address string) ([]string, error) {
	return r.set(r.following, address)
}

func (r *MemoryRegistry) UpdateMessagesHash(_ context.Context, address, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized, err := r.requireUser(address)
	if err != nil {
		return err
	}
	r.messagesHash[normalized] = hash
	return nil
}

func (r *MemoryRegistry) GetMessagesHash(_ context.Context, address string) (string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.messagesHash[normalized], nil
}

func (r *MemoryRegistry) UpdateProfile(_ context.Context, address string, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized, err := r.requireUser(address)
	if err != nil {
		return err
	}
	profile.Username = r.usernames[normalized]
	r.profiles[normalized] = profile
	return nil
}

func (r *MemoryRegistry) GetProfile(_ context.Context, address string) (*Profile, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[normalized]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", address, apperr.ErrNotFound)
	}
	return &profile, nil
}
