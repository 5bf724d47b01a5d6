package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/letsrace/digest/app/digest"
	"github.com/letsrace/digest/app/metrics"
	"github.com/letsrace/digest/app/subscriber"
	"github.com/letsrace/digest/app/tasks"
)

// Subscribe handles new and repeat subscription requests from the website.
func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.Subscriptions.WithLabelValues("subscribe", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body.",
		})
		return
	}

	sendDay := req.SendDay
	if sendDay == "" {
		sendDay = h.catalog.DefaultSendDay
	}

	if errs := subscriber.ValidateSubscription(req.Email, req.Region, req.Disciplines, sendDay, h.catalog); len(errs) > 0 {
		metrics.Subscriptions.WithLabelValues("subscribe", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": strings.Join(errs, " "),
		})
		return
	}

	record, err := h.subscribers.Subscribe(c.Request.Context(), req.Email, req.Region, req.Disciplines, sendDay)
	if err != nil {
		slog.Error("Failed to store subscription", "error", err)
		metrics.Subscriptions.WithLabelValues("subscribe", "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "We could not process your subscription. Please try again later.",
		})
		return
	}

	slog.Info("Subscription confirmed", "email", record.Email, "region", record.Region, "send_day", record.SendDay)
	metrics.Subscriptions.WithLabelValues("subscribe", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Thanks! Your subscription is confirmed. You'll receive emails on %ss.", record.SendDay),
	})
}

// Unsubscribe handles the unsubscribe link from digest emails. The response
// never reveals whether the address was actually subscribed.
func (h *Handler) Unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		metrics.Subscriptions.WithLabelValues("unsubscribe", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Unsubscribe token is required.",
		})
		return
	}

	claims, err := h.tokens.Verify(req.Token)
	if err != nil {
		metrics.Subscriptions.WithLabelValues("unsubscribe", "invalid").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "We couldn't process your unsubscribe request. This might be because the link has expired.",
		})
		return
	}

	found, err := h.subscribers.Unsubscribe(c.Request.Context(), claims.ID)
	if err != nil {
		slog.Error("Failed to store unsubscribe", "id", claims.ID, "error", err)
	} else if !found {
		slog.Warn("Unsubscribe token for unknown subscriber", "id", claims.ID)
	} else {
		slog.Info("Unsubscribed", "email", claims.Email)
	}

	metrics.Subscriptions.WithLabelValues("unsubscribe", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "You've been unsubscribed. You won't receive further emails.",
	})
}

// PreviewDigest renders a digest for arbitrary filters without sending mail.
func (h *Handler) PreviewDigest(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body."})
		return
	}

	if !h.catalog.ValidRegion(req.Region) || len(req.Disciplines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A valid region and at least one discipline are required."})
		return
	}

	today, ok := h.referenceDate(req.Date)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format. Use ISO8601."})
		return
	}

	email, err := h.runner.Preview(c.Request.Context(), req.Region, req.Disciplines, today)
	if err != nil {
		slog.Error("Failed to generate digest preview", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to generate preview."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"subject":    email.Subject,
		"html":       email.HTML,
		"hasContent": email.HasContent,
	})
}

// SendTestDigest renders a digest for arbitrary filters and sends one real
// email, leaving the subscriber store untouched.
func (h *Handler) SendTestDigest(c *gin.Context) {
	var req TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body."})
		return
	}

	if !subscriber.ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide a valid email address."})
		return
	}

	if !h.catalog.ValidRegion(req.Region) || len(req.Disciplines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A valid region and at least one discipline are required."})
		return
	}

	today, ok := h.referenceDate(req.Date)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format. Use ISO8601."})
		return
	}

	email, err := h.runner.SendTest(c.Request.Context(), req.Email, req.Region, req.Disciplines, today)
	if err != nil {
		slog.Error("Failed to send test digest", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send test email."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Test email sent to %s.", strings.ToLower(strings.TrimSpace(req.Email))),
		"subject":    email.Subject,
		"hasContent": email.HasContent,
	})
}

// RunDigest enqueues an immediate digest run on the background scheduler.
// The run executes asynchronously; outcomes land in the logs and metrics.
func (h *Handler) RunDigest(c *gin.Context) {
	task := tasks.NewRunDigestTask(h.runner)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue digest run", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Could not schedule digest run. Please try again later."})
		return
	}

	slog.Info("Digest run enqueued via API", "task_id", task.GetID())
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Digest run scheduled.",
		"task_id": task.GetID(),
	})
}

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.version,
	}

	if subscribers, err := h.subscribers.Load(c.Request.Context()); err == nil {
		health["subscribers"] = len(subscribers)
	}

	health["regions"] = len(h.catalog.Regions)
	health["disciplines"] = len(h.catalog.Disciplines)

	c.JSON(http.StatusOK, health)
}

// referenceDate resolves the optional date override on preview and test
// requests. An empty value means today.
func (h *Handler) referenceDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Now(), true
	}
	return digest.ParseDay(value)
}
