package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

type scope = func(*gorm.DB) *gorm.DB

// PostController serves the HTML pages for browsing, writing and editing posts.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// listPosts counts the filtered posts and loads the requested page, newest first.
func (p *PostController) listPosts(ctx *gin.Context, filters ...scope) ([]models.Post, utils.Page, error) {
	db := p.db.WithContext(ctx.Request.Context())

	var total int64
	if err := db.Model(&models.Post{}).Scopes(filters...).Count(&total).Error; err != nil {
		return nil, utils.Page{}, err
	}
	page := utils.NewPage(ctx.Query("page"), total, pageSize())

	var posts []models.Post
	err := db.Scopes(filters...).
		Scopes(models.NewestFirst, page.Scope()).
		Preload("Author").
		Preload("Group").
		Find(&posts).Error
	return posts, page, err
}

// Index lists every post.
func (p *PostController) Index(ctx *gin.Context) {
	posts, page, err := p.listPosts(ctx)
	if err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "index.html", gin.H{
		"title":    "Latest updates",
		"posts":    posts,
		"page_obj": page,
	})
}

// GroupPosts lists the posts filed under one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, err := models.FindGroupBySlug(p.db.WithContext(ctx.Request.Context()), ctx.Param("slug"))
	if err != nil {
		if errors.Is(err, models.ErrGroupNotFound) {
			NotFound(ctx)
			return
		}
		serverError(ctx, err)
		return
	}

	posts, page, err := p.listPosts(ctx, models.InGroup(group.ID))
	if err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "group_list.html", gin.H{
		"title":    group.Title,
		"group":    group,
		"posts":    posts,
		"page_obj": page,
	})
}

// Profile lists one author's posts with their post count.
func (p *PostController) Profile(ctx *gin.Context) {
	var author models.User
	err := p.db.WithContext(ctx.Request.Context()).Where("username = ?", ctx.Param("username")).First(&author).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(ctx)
			return
		}
		serverError(ctx, err)
		return
	}

	posts, page, err := p.listPosts(ctx, models.ByAuthor(author.ID))
	if err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "profile.html", gin.H{
		"title":       "Profile of " + author.Username,
		"author":      author,
		"posts":       posts,
		"page_obj":    page,
		"count_posts": page.Total,
	})
}

// loadPost fetches a post with author and group, writing the 404 or 500 page itself on failure.
func (p *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		NotFound(ctx)
		return nil, false
	}

	var post models.Post
	err := p.db.WithContext(ctx.Request.Context()).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(ctx)
		} else {
			serverError(ctx, err)
		}
		return nil, false
	}
	return &post, true
}

// Detail shows a single post.
func (p *PostController) Detail(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	var count int64
	if err := p.db.WithContext(ctx.Request.Context()).Model(&models.Post{}).Scopes(models.ByAuthor(post.AuthorID)).Count(&count).Error; err != nil {
		serverError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "post_detail.html", gin.H{
		"title":       post.String(),
		"post":        post,
		"count_posts": count,
		"is_author":   post.IsAuthor(middleware.CurrentUser(ctx)),
	})
}

func (p *PostController) renderForm(ctx *gin.Context, status int, form *forms.PostForm, post *models.Post) {
	var groups []models.Group
	if err := p.db.WithContext(ctx.Request.Context()).Order("title").Find(&groups).Error; err != nil {
		serverError(ctx, err)
		return
	}
	title := "New post"
	if post != nil {
		title = "Edit post"
	}
	render(ctx, status, "create_post.html", gin.H{
		"title":   title,
		"form":    form,
		"groups":  groups,
		"is_edit": post != nil,
		"post":    post,
	})
}

// CreateForm shows an empty post form.
func (p *PostController) CreateForm(ctx *gin.Context) {
	p.renderForm(ctx, http.StatusOK, &forms.PostForm{Errors: forms.FieldErrors{}}, nil)
}

// Create stores a submitted post and sends the author to their profile.
func (p *PostController) Create(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	form := forms.BindPostForm(ctx)

	db := p.db.WithContext(ctx.Request.Context())
	valid, err := form.IsValid(db)
	if err != nil {
		serverError(ctx, err)
		return
	}
	if !valid {
		p.renderForm(ctx, http.StatusOK, form, nil)
		return
	}

	post := form.NewPost(user)
	if err := db.Omit(clause.Associations).Create(&post).Error; err != nil {
		serverError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(statsCacheKey)

	ctx.Redirect(http.StatusFound, ProfilePath(user.Username))
}

// authorOnly loads the post and bounces anyone but its author to the detail page.
func (p *PostController) authorOnly(ctx *gin.Context) (*models.Post, bool) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return nil, false
	}
	if !post.IsAuthor(middleware.CurrentUser(ctx)) {
		ctx.Redirect(http.StatusFound, postPath(post.ID))
		return nil, false
	}
	return post, true
}

// EditForm shows the author's post pre-filled for editing.
func (p *PostController) EditForm(ctx *gin.Context) {
	post, ok := p.authorOnly(ctx)
	if !ok {
		return
	}
	p.renderForm(ctx, http.StatusOK, forms.PostFormFromPost(post), post)
}

// Edit saves the author's changes to text and group. pub_date and author never change.
func (p *PostController) Edit(ctx *gin.Context) {
	post, ok := p.authorOnly(ctx)
	if !ok {
		return
	}

	form := forms.BindPostForm(ctx)
	db := p.db.WithContext(ctx.Request.Context())
	valid, err := form.IsValid(db)
	if err != nil {
		serverError(ctx, err)
		return
	}
	if !valid {
		p.renderForm(ctx, http.StatusOK, form, post)
		return
	}

	form.Apply(post)
	err = db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"text":     post.Text,
		"group_id": post.GroupID,
	}).Error
	if err != nil {
		serverError(ctx, err)
		return
	}

	ctx.Redirect(http.StatusFound, postPath(post.ID))
}
