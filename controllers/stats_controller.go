package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const statsCacheKey = "cache:stats:"

// StatsController reports site counters and page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type siteStats struct {
	UserCount      int64 `json:"user_count"`
	GroupCount     int64 `json:"group_count"`
	PostCount      int64 `json:"post_count"`
	TodayPageViews int64 `json:"today_page_views"`
}

// GetStats returns aggregate counters; a failing counter reads as 0 instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var stats siteStats
	if utils.CacheGetJSON(statsCacheKey+"site", &stats) {
		utils.Success(ctx, stats)
		return
	}

	db := s.db.WithContext(ctx.Request.Context())
	if err := db.Model(&models.User{}).Count(&stats.UserCount).Error; err != nil {
		stats.UserCount = 0
	}
	if err := db.Model(&models.Group{}).Count(&stats.GroupCount).Error; err != nil {
		stats.GroupCount = 0
	}
	if err := db.Model(&models.Post{}).Count(&stats.PostCount).Error; err != nil {
		stats.PostCount = 0
	}
	if err := db.Model(&models.PageView{}).
		Where("date = ?", middleware.Today()).
		Select("COALESCE(SUM(count),0)").
		Scan(&stats.TodayPageViews).Error; err != nil {
		stats.TodayPageViews = 0
	}

	utils.CacheSetJSON(statsCacheKey+"site", stats, 0)
	utils.Success(ctx, stats)
}

// GetPostStats returns the total page views of one post's detail page.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40440, "post not found")
		return
	}

	var pv int64
	if err := s.db.WithContext(ctx.Request.Context()).Model(&models.PageView{}).
		Where("path = ?", postPath(id)).
		Select("COALESCE(SUM(count),0)").
		Scan(&pv).Error; err != nil {
		pv = 0
	}
	utils.Success(ctx, gin.H{"post_id": id, "pv": pv})
}
