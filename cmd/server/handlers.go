package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/database"
	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/monitoring"
	"github.com/ZanzyTHEbar/dialin/internal/types"
	"github.com/ZanzyTHEbar/dialin/internal/validation"
)

// bindJSON decodes the request body and aborts with a validation error on failure
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		apperrors.Abort(c, apperrors.NewValidationError("Invalid request body", err.Error()))
		return false
	}
	return true
}

func parseFilter(c *gin.Context) (validation.ShotFilter, bool) {
	f, err := validation.ParseShotFilter(c.Query("bean_id"), c.Query("from"), c.Query("to"), c.Query("limit"))
	if err != nil {
		apperrors.Abort(c, err)
		return f, false
	}
	return f, true
}

func (a *app) createBean(c *gin.Context) {
	var req types.CreateBeanRequest
	if !bindJSON(c, &req) {
		return
	}

	bean, err := a.beans.Create(c.Request.Context(), req)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, bean)
}

func (a *app) listBeans(c *gin.Context) {
	beans, err := a.beans.List(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beans": beans, "count": len(beans)})
}

func (a *app) getBean(c *gin.Context) {
	bean, err := a.beans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, bean)
}

func (a *app) updateBean(c *gin.Context) {
	var req types.CreateBeanRequest
	if !bindJSON(c, &req) {
		return
	}

	bean, err := a.beans.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, bean)
}

// archiveBean hides the bean from the active list; its shots stay in the history
func (a *app) archiveBean(c *gin.Context) {
	if err := a.beans.Archive(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) restoreBean(c *gin.Context) {
	if err := a.beans.Restore(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Abort(c, err)
		return
	}
	bean, err := a.beans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, bean)
}

func (a *app) recordShot(c *gin.Context) {
	var req types.RecordShotRequest
	if !bindJSON(c, &req) {
		return
	}

	shot, err := a.shots.Record(c.Request.Context(), req)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	a.metrics.IncrementShotsRecorded()
	c.JSON(http.StatusCreated, shot)
}

func (a *app) listShots(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}

	shots, err := a.shots.List(c.Request.Context(), database.ShotQuery{
		BeanID:     f.BeanID,
		From:       f.From,
		To:         f.To,
		Limit:      f.Limit,
		Descending: true,
	})
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shots": shots, "count": len(shots)})
}

func (a *app) getShot(c *gin.Context) {
	shot, err := a.shots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, shot)
}

func (a *app) updateShot(c *gin.Context) {
	var req types.UpdateShotRequest
	if !bindJSON(c, &req) {
		return
	}

	shot, err := a.shots.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, shot)
}

func (a *app) deleteShot(c *gin.Context) {
	if err := a.shots.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) analyzeShot(c *gin.Context) {
	id := c.Param("id")
	result, err := a.shots.Analyze(c.Request.Context(), id)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	shot, err := a.shots.Get(c.Request.Context(), id)
	if err == nil {
		a.logger.ShotLogger(shot.ID, shot.BeanID, result.BrewRatio, shot.ExtractionTimeSeconds,
			result.Quality.Score, result.Quality.Grade)
	}
	if span := monitoring.SpanFromContext(c.Request.Context()); span != nil {
		span.AddEvent("shot_scored", map[string]interface{}{
			"shot_id":   id,
			"score":     result.Quality.Score,
			"direction": string(result.Recommendation.Direction),
		})
	}
	a.metrics.IncrementShotsAnalyzed()
	c.JSON(http.StatusOK, result)
}

func (a *app) analyticsFilter(c *gin.Context) (analysis.Filter, bool) {
	f, ok := parseFilter(c)
	if !ok {
		return analysis.Filter{}, false
	}
	return analysis.Filter{BeanID: f.BeanID, From: f.From, To: f.To}, true
}

func (a *app) summary(c *gin.Context) {
	f, ok := a.analyticsFilter(c)
	if !ok {
		return
	}

	summary, err := a.analytics.Summary(c.Request.Context(), f)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *app) trend(c *gin.Context) {
	f, ok := a.analyticsFilter(c)
	if !ok {
		return
	}

	trend, err := a.analytics.Trend(c.Request.Context(), f)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (a *app) recommend(c *gin.Context) {
	var req types.RecommendRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := a.analytics.Recommend(c.Request.Context(), req)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	a.metrics.IncrementRecommendations()
	a.logger.RecommendationLogger(rec.CurrentSetting, string(rec.Direction), rec.Steps, string(rec.Confidence))
	c.JSON(http.StatusOK, rec)
}

func (a *app) getGrinder(c *gin.Context) {
	g, err := a.settings.Grinder(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (a *app) putGrinder(c *gin.Context) {
	var g types.GrinderConfiguration
	if !bindJSON(c, &g) {
		return
	}
	if err := a.settings.SetGrinder(c.Request.Context(), g); err != nil {
		apperrors.Abort(c, err)
		return
	}
	a.invalidateCache(c)
	c.JSON(http.StatusOK, g)
}

func (a *app) getBasket(c *gin.Context) {
	b, err := a.settings.Basket(c.Request.Context())
	if err != nil {
		apperrors.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (a *app) putBasket(c *gin.Context) {
	var b types.BasketConfiguration
	if !bindJSON(c, &b) {
		return
	}
	if err := a.settings.SetBasket(c.Request.Context(), b); err != nil {
		apperrors.Abort(c, err)
		return
	}
	a.invalidateCache(c)
	c.JSON(http.StatusOK, b)
}

// invalidateCache drops cached analytics; a failure only costs a stale read until TTL
func (a *app) invalidateCache(c *gin.Context) {
	if err := a.cache.Invalidate(c.Request.Context()); err != nil {
		a.logger.CacheLogger("invalidate", a.local.Size(), err)
	}
}
