// Package localstore keeps the per-user working copies of notifications,
// messages and relationship caches in Redis. All keys share the "bc:" prefix.
package localstore

import "fmt"

const prefix = "bc:"

func namespaced(kind, id string) string {
	return fmt.Sprintf("%s%s:%s", prefix, kind, id)
}

func NotificationsKey(user string) string    { return namespaced("notifications", user) }
func MessagesKey(conversation string) string { return namespaced("messages", conversation) }
func InboxKey(user string) string            { return namespaced("inbox", user) }
func LikedKey(user string) string            { return namespaced("liked", user) }
func MutedKey(user string) string            { return namespaced("muted", user) }
func FollowersKey(user string) string        { return namespaced("followers", user) }
func FollowingKey(user string) string        { return namespaced("following", user) }
func PendingKey(user string) string          { return namespaced("pending", user) }
func NonceKey(address string) string         { return namespaced("nonce", address) }
func ContentKey(ref string) string           { return namespaced("content", ref) }
func FeedKey(user string) string             { return namespaced("feed", user) }
func LeaseKey(name string) string            { return namespaced("lease", name) }

func VersionKey(kind, user string) string {
	return fmt.Sprintf("%sversion:%s:%s", prefix, kind, user)
}

// NotifyChannel is the pub/sub channel carrying new notifications for user.
func NotifyChannel(user string) string { return namespaced("notify", user) }
