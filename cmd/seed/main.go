package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/config"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/logger"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// postBody matches the blob written by the post service.
type postBody struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type seedUser struct {
	username string
	address  string
}

func main() {
	var postsPerUser int
	flag.IntVar(&postsPerUser, "posts", 3, "posts created for each test user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if cfg.ContractMode == "memory" {
		panic("Seeding needs CONTRACT_MODE=eth, the in-memory contract does not outlive this process")
	}

	log := logger.New()
	ctx := context.Background()

	registry, err := contract.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to contract: %v", err)
		panic(err)
	}

	store, err := content.New(cfg, log)
	if err != nil {
		log.Error("Failed to set up content store: %v", err)
		panic(err)
	}

	if err := seed(ctx, registry, store, postsPerUser, log); err != nil {
		log.Error("Failed to seed: %v", err)
		panic(err)
	}

	log.Info("Contract seeded successfully!")
}

// testAddress derives a stable wallet address from name, so reruns address
// the same accounts.
func testAddress(name string) (string, error) {
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte("blockconnect-seed:" + name)))
	if err != nil {
		return "", err
	}
	return contract.NormalizeAddress(crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func seed(ctx context.Context, registry contract.Registry, store content.Store, postsPerUser int, log *logger.Logger) error {
	names := []string{"alice", "bob", "charlie", "diana", "eve"}
	users := make([]seedUser, 0, len(names))

	for _, name := range names {
		address, err := testAddress(name)
		if err != nil {
			return fmt.Errorf("failed to derive address of %s: %w", name, err)
		}

		err = registry.Register(ctx, address, name)
		switch {
		case errors.Is(err, apperr.ErrConflict):
			log.Info("User %s already exists, skipping", name)
			users = append(users, seedUser{name, address})
			continue
		case err != nil:
			log.Error("Failed to register %s: %v", name, err)
			continue
		}
		log.Info("Registered user: %s (%s)", name, address)
		users = append(users, seedUser{name, address})

		for i := 0; i < postsPerUser; i++ {
			body := postBody{
				Author:    name,
				Content:   fmt.Sprintf("Post #%d from %s", i+1, name),
				CreatedAt: time.Now().UTC(),
			}
			ref, err := content.PutJSON(ctx, store, body)
			if err != nil {
				log.Error("Failed to store post %d of %s: %v", i+1, name, err)
				continue
			}
			if err := registry.CreatePost(ctx, address, uuid.New().String(), ref); err != nil {
				log.Error("Failed to create post %d of %s: %v", i+1, name, err)
			}
		}
	}

	// Everyone follows everyone after them in the list.
	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			follower, followed := users[i], users[j]
			if err := registry.SendFollowRequest(ctx, follower.address, followed.address); err != nil {
				log.Info("Follow %s -> %s skipped: %v", follower.username, followed.username, err)
				continue
			}
			if err := registry.AcceptFollowRequest(ctx, followed.address, follower.address); err != nil {
				log.Error("Failed to accept %s -> %s: %v", follower.username, followed.username, err)
			}
		}
	}

	log.Info("Seeded %d users", len(users))
	return nil
}
