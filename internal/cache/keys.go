package cache

import "strconv"

// Key prefixes. Each logical domain owns one prefix so keys never collide.
const (
	userKeyPrefix        = "user:"
	userContentKeyPrefix = "content:user:"
	contentItemKeyPrefix = "content:item:"
)

// UserKey identifies a cached user profile.
func UserKey(userID string) string {
	return userKeyPrefix + userID
}

// UserContentListKey identifies the cached content list of one owner.
func UserContentListKey(userID string) string {
	return userContentKeyPrefix + userID
}

// ContentItemKey identifies a single cached content item.
func ContentItemKey(id int64) string {
	return contentItemKeyPrefix + strconv.FormatInt(id, 10)
}
