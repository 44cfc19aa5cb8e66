package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Notifications lists the caller's notifications (?unread=true for unread
// only).
func (h *Handler) Notifications(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	list, err := h.notes.ListForUser(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// UnreadCount returns how many unread notifications the caller has.
func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	count, err := h.notes.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead flags one notification read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	notificationID, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	if err := h.notes.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MarkAllNotificationsRead flags every unread notification for the caller.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.notes.MarkAllRead(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DeleteNotification removes one of the caller's notifications.
func (h *Handler) DeleteNotification(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	notificationID, ok := paramID(c, "notification_id")
	if !ok {
		return
	}
	if err := h.notes.Delete(c.Request.Context(), notificationID, userID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
