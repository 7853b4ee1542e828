package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisplayName(t *testing.T) {
	people := map[string]Person{
		"u1": {ID: "u1", Name: "Priya Shah"},
	}

	// Resolved id renders the directory name
	assert.Equal(t, "Priya Shah", DisplayName(people, "u1"))

	// Unresolved machine-looking ids render as "User not found"
	assert.Equal(t, UserNotFound, DisplayName(people, "someone@example.org"))
	assert.Equal(t, UserNotFound, DisplayName(people, "user_4821"))

	// Unresolved freeform legacy names show verbatim
	assert.Equal(t, "Mrs. Shah", DisplayName(people, "Mrs. Shah"))
}

// countingClient records how many ids reached the inner directory.
type countingClient struct {
	inner    Client
	resolved []string
	err      error
}

func (c *countingClient) GetPerson(ctx context.Context, id string) (Person, bool, error) {
	if c.err != nil {
		return Person{}, false, c.err
	}
	c.resolved = append(c.resolved, id)
	return c.inner.GetPerson(ctx, id)
}

func (c *countingClient) GetPeople(ctx context.Context, ids []string) (map[string]Person, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.resolved = append(c.resolved, ids...)
	return c.inner.GetPeople(ctx, ids)
}

func TestCachedClient_GetPeopleOnlyFetchesMisses(t *testing.T) {
	roster := NewStaticClient([]Person{
		{ID: "u1", Name: "Priya Shah"},
		{ID: "u2", Name: "Noor Ali"},
	})
	counting := &countingClient{inner: roster}
	client := NewCachedClient(counting, time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := client.GetPeople(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Len(t, counting.resolved, 2)

	// Second lookup is served from cache
	second, err := client.GetPeople(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Len(t, counting.resolved, 2, "no second directory round trip")
}

func TestCachedClient_UnresolvedIDsNotNegativeCached(t *testing.T) {
	roster := NewStaticClient(nil)
	counting := &countingClient{inner: roster}
	client := NewCachedClient(counting, time.Minute, zap.NewNop())
	ctx := context.Background()

	result, err := client.GetPeople(ctx, []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, result)

	// The miss is retried on the next call rather than remembered
	_, err = client.GetPeople(ctx, []string{"ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost", "ghost"}, counting.resolved)
}

func TestCachedClient_GetPerson(t *testing.T) {
	roster := NewStaticClient([]Person{{ID: "u1", Name: "Priya Shah"}})
	counting := &countingClient{inner: roster}
	client := NewCachedClient(counting, time.Minute, zap.NewNop())
	ctx := context.Background()

	person, ok, err := client.GetPerson(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Priya Shah", person.Name)

	_, ok, err = client.GetPerson(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, counting.resolved, 1, "second resolve served from cache")

	_, ok, err = client.GetPerson(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedClient_ErrorPropagates(t *testing.T) {
	counting := &countingClient{inner: NewStaticClient(nil), err: errors.New("directory down")}
	client := NewCachedClient(counting, time.Minute, zap.NewNop())

	_, err := client.GetPeople(context.Background(), []string{"u1"})
	assert.ErrorContains(t, err, "directory down")
}
