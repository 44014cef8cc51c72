package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// GroupController exposes the JSON API administrators use to manage groups.
type GroupController struct {
	db *gorm.DB
}

// NewGroupController creates a new GroupController instance.
func NewGroupController(db *gorm.DB) *GroupController {
	return &GroupController{db: db}
}

// ListGroups returns all groups ordered by title.
func (g *GroupController) ListGroups(ctx *gin.Context) {
	var groups []models.Group
	if err := g.db.WithContext(ctx.Request.Context()).Order("title").Find(&groups).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load groups")
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

// CreateGroup adds a group. Slugs are unique.
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,max=200"`
		Slug        string `json:"slug" binding:"required,max=50"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	slug := strings.TrimSpace(req.Slug)
	if !models.ValidSlug(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40031, "slug may contain only letters, numbers, hyphens and underscores")
		return
	}
	// Stored as plain text; templates escape on output
	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "title cannot be empty")
		return
	}

	// The unique index decides; a pre-check would race with concurrent creates
	group := models.Group{Title: title, Slug: slug, Description: strings.TrimSpace(req.Description)}
	if err := g.db.WithContext(ctx.Request.Context()).Create(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40930, "slug already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create group")
		return
	}
	utils.InvalidateByPrefix(statsCacheKey)

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "created", Data: gin.H{"group": group}})
}

// DeleteGroup removes a group; its posts stay and lose the group.
func (g *GroupController) DeleteGroup(ctx *gin.Context) {
	db := g.db.WithContext(ctx.Request.Context())
	group, err := models.FindGroupBySlug(db, ctx.Param("slug"))
	if err != nil {
		if errors.Is(err, models.ErrGroupNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "group not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load group")
		return
	}

	detached, err := models.DeleteGroup(db, group)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to delete group")
		return
	}
	utils.InvalidateByPrefix(statsCacheKey)

	utils.Success(ctx, gin.H{"message": "group deleted", "detached_posts": detached})
}
