package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReviewForcesIdentity(t *testing.T) {
	env := newTestEnv(t)
	published, _ := seedCatalog(t, env)

	rec := env.do(t, "POST", "/reviews", "alice@example.com", jsonBody(t, map[string]interface{}{
		"bookId": published.ID, "rating": 5, "text": "great",
		"reviewerEmail": "forged@example.com",
		"createdAt":     "1999-01-01T00:00:00Z",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[InsertResult](t, rec.Body)
	require.NotNil(t, res.InsertedID)

	review := env.store.reviews[*res.InsertedID]
	assert.Equal(t, "alice@example.com", review.ReviewerEmail)
	assert.Equal(t, "Test User", review.ReviewerName)
	// Timestamp is server-assigned, not taken from the body.
	assert.WithinDuration(t, time.Now(), review.CreatedAt, time.Minute)

	rec = env.do(t, "POST", "/reviews", "", jsonBody(t, map[string]interface{}{"bookId": published.ID}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListReviewsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	published, _ := seedCatalog(t, env)

	old := &Review{ID: "r1", BookID: published.ID, Text: "old", CreatedAt: time.Now().Add(-time.Hour)}
	recent := &Review{ID: "r2", BookID: published.ID, Text: "new", CreatedAt: time.Now()}
	env.store.reviews[old.ID] = old
	env.store.reviews[recent.ID] = recent

	rec := env.do(t, "GET", "/reviews/"+published.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reviews := decode[[]*Review](t, rec.Body)
	require.Len(t, reviews, 2)
	assert.Equal(t, "new", reviews[0].Text)
	assert.Equal(t, "old", reviews[1].Text)

	rec = env.do(t, "GET", "/reviews/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/reviews/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]*Review](t, rec.Body))
}
