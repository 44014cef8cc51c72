package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var untrackedPrefixes = []string{"/api/", "/auth/", "/static/", "/metrics", "/health"}

// PageViewRecorder counts successful GET page views per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				return
			}
		}

		if err := RecordPageView(db.WithContext(c.Request.Context()), path, time.Now()); err != nil {
			utils.Sugar.Warnf("page view upsert failed path=%s err=%v", path, err)
		}
	}
}

// RecordPageView increments the counter of path for the local day of at.
func RecordPageView(db *gorm.DB, path string, at time.Time) error {
	local := at.In(time.Local)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())

	// Upsert keeps concurrent hits from colliding on the unique (date, path) key
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
	}).Create(&models.PageView{Date: day, Path: path, Count: 1}).Error
}

// Today is the local-midnight key RecordPageView stores rows under.
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
