package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/community-commons/internal/model"
)

func TestListingShowsOnlyActiveResources(t *testing.T) {
	h := newHarness(t)
	owner := h.users.add("owner", "correct horse", "")
	h.resources.add(model.Resource{Title: "Cordless drill", Location: "Nairobi", OwnerID: owner.ID, IsActive: true, IsAvailable: true, CategoryID: 1})
	h.resources.add(model.Resource{Title: "Retired ladder", Location: "Nairobi", OwnerID: owner.ID, IsActive: false, CategoryID: 1})

	for _, path := range []string{"/", "/browse", "/browse?category=1", "/browse?category=nope"} {
		body := h.get(path).Body.String()
		assert.Contains(t, body, "Cordless drill", path)
		assert.NotContains(t, body, "Retired ladder", path)
	}
	assert.NotContains(t, h.get("/browse?category=2").Body.String(), "Cordless drill")
}

func TestMatchByLocationIsExact(t *testing.T) {
	list := []model.ResourceListing{
		{Resource: model.Resource{ID: 1, Location: "Nairobi"}},
		{Resource: model.Resource{ID: 2, Location: "nairobi"}},
		{Resource: model.Resource{ID: 3, Location: "Mombasa"}},
		{Resource: model.Resource{ID: 4, Location: "Nairobi"}},
	}
	got := MatchByLocation(list, "Nairobi")
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, uint64(4), got[1].ID)

	assert.Len(t, MatchByLocation(list, ""), 4)
}

func TestMatchResourcesUsesProfileLocation(t *testing.T) {
	h := newHarness(t)
	h.users.add("amani", "correct horse", "Nairobi")
	owner := h.users.add("owner", "correct horse", "")
	h.resources.add(model.Resource{Title: "Bicycle", Location: "Nairobi", OwnerID: owner.ID, IsActive: true, IsAvailable: true})
	h.resources.add(model.Resource{Title: "Sewing machine", Location: "nairobi", OwnerID: owner.ID, IsActive: true, IsAvailable: true})
	h.resources.add(model.Resource{Title: "Wheelbarrow", Location: "Nairobi", OwnerID: owner.ID, IsActive: false})

	rec := h.get("/match_resources")
	assert.Equal(t, http.StatusFound, rec.Code)

	h.login("amani", "correct horse")
	body := h.get("/match_resources").Body.String()
	assert.Contains(t, body, "Bicycle")
	assert.NotContains(t, body, "Sewing machine")
	assert.NotContains(t, body, "Wheelbarrow")
}

func TestRequestResourceFragments(t *testing.T) {
	h := newHarness(t)
	h.users.add("amani", "correct horse", "")
	owner := h.users.add("owner", "correct horse", "")
	available := h.resources.add(model.Resource{Title: "Drill", OwnerID: owner.ID, IsActive: true, IsAvailable: true})
	lent := h.resources.add(model.Resource{Title: "Tent", OwnerID: owner.ID, IsActive: true, IsAvailable: false})
	path := func(id uint64) string { return "/request_resource/" + strconv.FormatUint(id, 10) }

	t.Run("anonymous", func(t *testing.T) {
		rec := h.post(path(available), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `<p class="text-red-500">Please log in to request a resource.</p>`, rec.Body.String())
		assert.Zero(t, h.requests.count())
	})

	h.login("amani", "correct horse")

	t.Run("unavailable", func(t *testing.T) {
		rec := h.post(path(lent), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "This resource is not available.")
		assert.Zero(t, h.requests.count())
	})

	t.Run("missing", func(t *testing.T) {
		rec := h.post(path(99), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Resource not found.")
		assert.Zero(t, h.requests.count())
	})

	t.Run("available", func(t *testing.T) {
		rec := h.post(path(available), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `<p class="text-green-500">Request submitted successfully!</p>`, rec.Body.String())
		require.Equal(t, 1, h.requests.count())
		assert.Equal(t, model.RequestPending, h.requests.created[0].Status)
		require.Len(t, h.pub.requested, 1)
		assert.Equal(t, owner.ID, h.pub.requested[0].OwnerID)
	})
}

func TestOwnerCannotRequestOwnResource(t *testing.T) {
	h := newHarness(t)
	owner := h.users.add("owner", "correct horse", "")
	id := h.resources.add(model.Resource{Title: "Drill", OwnerID: owner.ID, IsActive: true, IsAvailable: true})
	h.login("owner", "correct horse")

	rec := h.post("/request_resource/"+strconv.FormatUint(id, 10), nil)
	assert.Contains(t, rec.Body.String(), "You cannot request your own resource.")
	assert.Zero(t, h.requests.count())
}

func TestPostResource(t *testing.T) {
	h := newHarness(t)
	h.users.add("amani", "correct horse", "")

	rec := h.get("/post_resource")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, h.get("/login").Body.String(), "Please log in to post a resource.")

	h.login("amani", "correct horse")
	form := url.Values{
		"title":       {"Pressure washer"},
		"description": {"Barely used"},
		"category_id": {"7"},
		"location":    {"Kisumu"},
	}
	rec = h.post("/post_resource", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please choose a valid category.")
	assert.Contains(t, rec.Body.String(), "Pressure washer")

	form.Set("category_id", "1")
	rec = h.post("/post_resource", form)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	list, _ := h.resources.ListActive(context.Background())
	require.Len(t, list, 1)
	assert.True(t, list[0].IsAvailable)
	assert.Equal(t, uint64(1), list[0].OwnerID)
	assert.Contains(t, h.get("/").Body.String(), "Resource posted successfully!")
}

func TestDeleteResourceOnlyByOwner(t *testing.T) {
	h := newHarness(t)
	owner := h.users.add("owner", "correct horse", "")
	h.users.add("amani", "correct horse", "")
	id := h.resources.add(model.Resource{Title: "Drill", OwnerID: owner.ID, IsActive: true, IsAvailable: true})
	path := "/resources/" + strconv.FormatUint(id, 10) + "/delete"

	h.login("amani", "correct horse")
	rec := h.post(path, nil)
	assert.Equal(t, "/profile", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, h.get("/profile").Body.String(), "Resource not found.")
	h.get("/logout")

	h.login("owner", "correct horse")
	h.post(path, nil)
	assert.NotContains(t, h.get("/").Body.String(), "Drill")
}
