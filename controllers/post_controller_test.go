package controllers_test

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/testutil"
)

func TestPublicPages(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "test-slug")
	post := testutil.CreatePost(t, db, author, group, "Тестовый пост")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"index", "/", http.StatusOK, "Тестовый пост"},
		{"group", "/group/test-slug/", http.StatusOK, group.Title},
		{"profile", "/profile/leo/", http.StatusOK, "Posts: 1"},
		{"detail", fmt.Sprintf("/posts/%d/", post.ID), http.StatusOK, "Тестовый пост"},
		{"unknown group", "/group/nope/", http.StatusNotFound, "Page not found"},
		{"unknown profile", "/profile/nobody/", http.StatusNotFound, "Page not found"},
		{"unknown post", "/posts/9999/", http.StatusNotFound, "Page not found"},
		{"non numeric post", "/posts/abc/", http.StatusNotFound, "Page not found"},
		{"unknown page", "/unexisting_page/", http.StatusNotFound, "Page not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := request(r, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestDetailShowsAuthorPostCountAndGroup(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "cats")
	testutil.CreatePost(t, db, author, nil, "first")
	post := testutil.CreatePost(t, db, author, group, "second")

	rr := request(r, http.MethodGet, fmt.Sprintf("/posts/%d/", post.ID), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Author's posts: <span>2</span>")
	assert.Contains(t, body, `href="/group/cats/"`)
	assert.NotContains(t, body, "Edit post", "anonymous visitors get no edit link")

	rr = request(r, http.MethodGet, fmt.Sprintf("/posts/%d/", post.ID), nil, testutil.Token(t, author))
	assert.Contains(t, rr.Body.String(), "Edit post")
}

func TestPagination(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "test-slug")
	for i := 0; i < 16; i++ {
		testutil.CreatePost(t, db, author, group, fmt.Sprintf("post number %d", i))
	}

	for _, path := range []string{"/", "/group/test-slug/", "/profile/leo/"} {
		t.Run(path, func(t *testing.T) {
			first := request(r, http.MethodGet, path, nil, "")
			require.Equal(t, http.StatusOK, first.Code)
			assert.Equal(t, 10, countPosts(first.Body.String()))
			assert.Contains(t, first.Body.String(), "Page 1 of 2")
			assert.Contains(t, first.Body.String(), `<strong>1</strong> <a href="?page=2">2</a>`)

			second := request(r, http.MethodGet, path+"?page=2", nil, "")
			require.Equal(t, http.StatusOK, second.Code)
			assert.Equal(t, 6, countPosts(second.Body.String()))

			clamped := request(r, http.MethodGet, path+"?page=50", nil, "")
			require.Equal(t, http.StatusOK, clamped.Code)
			assert.Equal(t, 6, countPosts(clamped.Body.String()))
			assert.Contains(t, clamped.Body.String(), "Page 2 of 2")
		})
	}
}

func TestListingsAreNewestFirstAndFiltered(t *testing.T) {
	r, db := newServer(t)
	leo := testutil.CreateUser(t, db, "leo")
	ann := testutil.CreateUser(t, db, "ann")
	cats := testutil.CreateGroup(t, db, "cats")
	testutil.CreateGroup(t, db, "dogs")
	base := time.Now().Add(-time.Hour)
	testutil.CreatePostAt(t, db, leo, "older post", base)
	newest := testutil.CreatePost(t, db, ann, cats, "newest post")

	body := request(r, http.MethodGet, "/", nil, "").Body.String()
	assert.Less(t, strings.Index(body, "newest post"), strings.Index(body, "older post"))

	body = request(r, http.MethodGet, "/group/dogs/", nil, "").Body.String()
	assert.Equal(t, 0, countPosts(body), "a post filed under cats never appears in dogs")

	body = request(r, http.MethodGet, "/group/cats/", nil, "").Body.String()
	assert.Equal(t, 1, countPosts(body))
	assert.Contains(t, body, newest.Text)

	body = request(r, http.MethodGet, "/profile/leo/", nil, "").Body.String()
	assert.NotContains(t, body, "newest post")
}

func TestCreatePost(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "cats")
	token := testutil.Token(t, author)

	rr := request(r, http.MethodGet, "/create/", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="text"`)
	assert.Contains(t, rr.Body.String(), group.Title)

	rr = request(r, http.MethodPost, "/create/", url.Values{
		"text":  {"Тестовый текст"},
		"group": {strconv.FormatUint(uint64(group.ID), 10)},
	}, token)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/profile/leo/", rr.Header().Get("Location"))

	var stored models.Post
	require.NoError(t, db.Where("text = ?", "Тестовый текст").First(&stored).Error)
	assert.Equal(t, author.ID, stored.AuthorID)
	require.NotNil(t, stored.GroupID)
	assert.Equal(t, group.ID, *stored.GroupID)
}

func TestCreatePostInvalidStoresNothing(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	token := testutil.Token(t, author)

	for _, form := range []url.Values{
		{"text": {""}},
		{"text": {"   "}},
		{"text": {"hi"}, "group": {"424242"}},
	} {
		rr := request(r, http.MethodPost, "/create/", form, token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `class="error"`)
	}

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRequiresLogin(t *testing.T) {
	r, db := newServer(t)

	rr := request(r, http.MethodGet, "/create/", nil, "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/login/?next=/create/", rr.Header().Get("Location"))

	rr = request(r, http.MethodPost, "/create/", url.Values{"text": {"sneaky"}}, "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/login/?next=/create/", rr.Header().Get("Location"))

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEditByAuthor(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "cats")
	post := testutil.CreatePost(t, db, author, group, "Hello")
	token := testutil.Token(t, author)
	editPath := fmt.Sprintf("/posts/%d/edit/", post.ID)

	rr := request(r, http.MethodGet, editPath, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ">Hello</textarea>")
	assert.Contains(t, rr.Body.String(), "Edit post")
	assert.Contains(t, rr.Body.String(), " selected>")

	rr = request(r, http.MethodPost, editPath, url.Values{"text": {"Hello, edited"}}, token)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), rr.Header().Get("Location"))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "Hello, edited", stored.Text)
	assert.Nil(t, stored.GroupID)
	assert.Equal(t, author.ID, stored.AuthorID)
	assert.WithinDuration(t, post.PubDate, stored.PubDate, time.Second, "pub_date never moves")
}

func TestEditInvalidKeepsPost(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, author, nil, "Hello")

	rr := request(r, http.MethodPost, fmt.Sprintf("/posts/%d/edit/", post.ID), url.Values{"text": {""}}, testutil.Token(t, author))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "This field is required.")

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "Hello", stored.Text)
}

func TestEditByNonAuthorRedirects(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	intruder := testutil.CreateUser(t, db, "ann")
	post := testutil.CreatePost(t, db, author, nil, "Hello")
	token := testutil.Token(t, intruder)
	editPath := fmt.Sprintf("/posts/%d/edit/", post.ID)
	detailPath := fmt.Sprintf("/posts/%d/", post.ID)

	rr := request(r, http.MethodGet, editPath, nil, token)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, detailPath, rr.Header().Get("Location"))

	rr = request(r, http.MethodPost, editPath, url.Values{"text": {"hijacked"}}, token)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, detailPath, rr.Header().Get("Location"))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "Hello", stored.Text)
}

func TestEditAnonymousAndMissing(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, author, nil, "Hello")

	rr := request(r, http.MethodGet, fmt.Sprintf("/posts/%d/edit/", post.ID), nil, "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, fmt.Sprintf("/auth/login/?next=/posts/%d/edit/", post.ID), rr.Header().Get("Location"))

	rr = request(r, http.MethodGet, "/posts/9999/edit/", nil, testutil.Token(t, author))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRenderedTextIsSanitized(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, author, nil, "**bold** <script>alert('x')</script>")

	body := request(r, http.MethodGet, fmt.Sprintf("/posts/%d/", post.ID), nil, "").Body.String()
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.NotContains(t, body, "<script>alert")
}

func TestProfileLinksMatchRedirect(t *testing.T) {
	r, db := newServer(t)
	author := testutil.CreateUser(t, db, "лев")
	token := testutil.Token(t, author)
	want := "/profile/%D0%BB%D0%B5%D0%B2/"
	assert.Equal(t, want, controllers.ProfilePath(author.Username))

	rr := request(r, http.MethodPost, "/create/", url.Values{"text": {"привет"}}, token)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, want, rr.Header().Get("Location"))

	rr = request(r, http.MethodGet, want, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `href="`+want+`"`)
}
