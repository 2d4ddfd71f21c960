package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:user_2abc", UserKey("user_2abc"))
	assert.Equal(t, "content:user:user_2abc", UserContentListKey("user_2abc"))
	assert.Equal(t, "content:item:42", ContentItemKey(42))
}

func TestKeys_Deterministic(t *testing.T) {
	assert.Equal(t, UserKey("u1"), UserKey("u1"))
	assert.Equal(t, ContentItemKey(7), ContentItemKey(7))
}

func TestKeys_DomainsNeverCollide(t *testing.T) {
	ids := []string{"1", "42", "user:1", "content:item:1", "item:1", ""}
	seen := make(map[string]string)
	record := func(domain, key string) {
		if prev, ok := seen[key]; ok {
			assert.Equal(t, prev, domain, "key %q produced by two domains", key)
		}
		seen[key] = domain
	}

	for _, id := range ids {
		record("user:"+id, UserKey(id))
		record("list:"+id, UserContentListKey(id))
	}
	for _, id := range []int64{0, 1, 42, -1} {
		record("item", ContentItemKey(id))
	}
}
