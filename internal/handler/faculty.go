package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/notify"
)

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func callerID(c *gin.Context) (int64, bool) {
	id, ok := auth.UserIDFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return 0, false
	}
	return id, true
}

type createClassRequest struct {
	ClassName string `json:"class_name" binding:"required"`
	JoinCode  string `json:"join_code"`
}

// CreateClass makes a class owned by the calling faculty member.
func (h *Handler) CreateClass(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.classes.Create(c.Request.Context(), facultyID, req.ClassName, req.JoinCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListClasses returns the caller's classes.
func (h *Handler) ListClasses(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	list, err := h.classesRepo.ListByFaculty(c.Request.Context(), facultyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": list})
}

// DeleteClass removes a class the caller owns; enrollments, sessions and
// records cascade away with it.
func (h *Handler) DeleteClass(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	if err := h.classesRepo.Delete(c.Request.Context(), classID, facultyID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "class deleted"})
}

// ClassDetails returns a class with its faculty name.
func (h *Handler) ClassDetails(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	d, ok := h.ownedClass(c, classID, facultyID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, d)
}

// ClassRoster lists a class's enrolled students.
func (h *Handler) ClassRoster(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	if _, ok := h.ownedClass(c, classID, facultyID); !ok {
		return
	}
	students, err := h.classesRepo.Roster(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type openSessionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	RadiusM   *float64 `json:"radius_m"`
}

// OpenSession starts an attendance session for a class; when one is
// already ACTIVE it is returned unchanged.
func (h *Handler) OpenSession(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	if _, ok := h.ownedClass(c, classID, facultyID); !ok {
		return
	}

	var req openSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var g *attendance.Geofence
	if req.Latitude != nil && req.Longitude != nil {
		g = &attendance.Geofence{Latitude: *req.Latitude, Longitude: *req.Longitude, RadiusM: float64(h.cfg.DefaultRadiusM)}
		if req.RadiusM != nil && *req.RadiusM > 0 {
			g.RadiusM = *req.RadiusM
		}
	}

	sess, err := h.att.OpenSession(c.Request.Context(), classID, g)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// CloseSession finalizes a session, synthesizing ABSENT records for every
// silent student, then notifies each enrolled student of their outcome.
func (h *Handler) CloseSession(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	d, ok := h.ownedClass(c, classID, facultyID)
	if !ok {
		return
	}

	sess, err := h.att.CloseSession(c.Request.Context(), classID, sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	// Best-effort outcome notifications; failures never undo the close.
	if roster, err := h.attRepo.SessionRoster(c.Request.Context(), sessionID); err == nil {
		for _, entry := range roster {
			n := notify.Notification{
				UserID:           entry.StudentID,
				Type:             notify.TypeSessionClosed,
				RelatedClassID:   &classID,
				RelatedSessionID: &sessionID,
			}
			if entry.Status == attendance.StatusAbsent {
				n.Title = "Marked Absent"
				n.Message = "You were marked absent for " + d.Name
				n.Priority = "medium"
			} else {
				n.Title = "Attendance Recorded"
				n.Message = "Your attendance has been marked as " + entry.Status + " for " + d.Name
				n.Priority = "low"
			}
			h.emitter.Emit(c.Request.Context(), n)
		}
	}

	c.JSON(http.StatusOK, sess)
}

// ActiveSessions lists the caller's ACTIVE sessions across classes.
func (h *Handler) ActiveSessions(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	sessions, err := h.attRepo.ActiveSessionsByFaculty(c.Request.Context(), facultyID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// SessionByID returns one of the caller's sessions.
func (h *Handler) SessionByID(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	sess, err := h.attRepo.SessionByID(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sess == nil {
		h.fail(c, attendance.ErrSessionNotFound)
		return
	}
	if _, ok := h.ownedClass(c, sess.ClassID, facultyID); !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SessionsByDate lists a class's sessions for one calendar day
// (?date=YYYY-MM-DD).
func (h *Handler) SessionsByDate(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	if _, ok := h.ownedClass(c, classID, facultyID); !ok {
		return
	}
	date := c.Query("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	sessions, err := h.attRepo.SessionsByClassOnDate(c.Request.Context(), classID, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// SessionRoster returns per-student statuses for a session, ABSENT for
// students without a record.
func (h *Handler) SessionRoster(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	sess, err := h.attRepo.SessionByID(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sess == nil {
		h.fail(c, attendance.ErrSessionNotFound)
		return
	}
	if _, ok := h.ownedClass(c, sess.ClassID, facultyID); !ok {
		return
	}
	roster, err := h.attRepo.SessionRoster(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": roster})
}

type manualMarkRequest struct {
	StudentID int64  `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// ManualMark lets faculty override a student's status for a session.
func (h *Handler) ManualMark(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}
	var req manualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.attRepo.SessionByID(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sess == nil {
		h.fail(c, attendance.ErrSessionNotFound)
		return
	}
	d, ok := h.ownedClass(c, sess.ClassID, facultyID)
	if !ok {
		return
	}

	if err := h.att.ManualMark(c.Request.Context(), sessionID, req.StudentID, req.Status); err != nil {
		h.fail(c, err)
		return
	}

	h.emitter.Emit(c.Request.Context(), notify.Notification{
		UserID:           req.StudentID,
		Type:             notify.TypeAttendanceMarked,
		Title:            "Attendance Updated",
		Message:          "Your attendance has been manually marked as " + req.Status + " for " + d.Name,
		Priority:         "medium",
		RelatedClassID:   &sess.ClassID,
		RelatedSessionID: &sessionID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "attendance updated", "status": req.Status})
}

// StudentsBelowThreshold reports students under an attendance percentage
// (?threshold=, default 75).
func (h *Handler) StudentsBelowThreshold(c *gin.Context) {
	facultyID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	if _, ok := h.ownedClass(c, classID, facultyID); !ok {
		return
	}
	threshold := 75.0
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be 0-100"})
			return
		}
		threshold = parsed
	}
	students, err := h.attRepo.StudentsBelowThreshold(c.Request.Context(), classID, threshold)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "students": students})
}
