package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/notify"
)

// MyClasses lists the classes the calling student is enrolled in.
func (h *Handler) MyClasses(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	list, err := h.classesRepo.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": list})
}

type joinClassRequest struct {
	JoinCode   string `json:"join_code" binding:"required"`
	RollNumber string `json:"roll_number" binding:"required"`
	Section    string `json:"section"`
}

// JoinClass enrolls the caller via a class join code. Re-joining an
// already-joined class is a no-op, not an error.
func (h *Handler) JoinClass(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	var req joinClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.classes.Join(c.Request.Context(), req.JoinCode, studentID, req.RollNumber, req.Section)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.AlreadyEnrolled {
		c.JSON(http.StatusOK, gin.H{"message": "already enrolled", "class_id": res.Class.ID})
		return
	}

	classID := res.Class.ID
	h.emitter.Emit(c.Request.Context(), notify.Notification{
		UserID:         studentID,
		Type:           notify.TypeClassJoined,
		Title:          "Joined Class",
		Message:        "You have successfully joined " + res.Class.Name,
		Priority:       "low",
		RelatedClassID: &classID,
	})
	if student, err := h.usersRepo.ByID(c.Request.Context(), studentID); err == nil && student != nil {
		h.emitter.Emit(c.Request.Context(), notify.Notification{
			UserID:         res.Class.FacultyID,
			Type:           notify.TypeStudentJoined,
			Title:          "New Student",
			Message:        student.Name + " has joined your " + res.Class.Name + " class",
			Priority:       "low",
			RelatedClassID: &classID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "successfully joined class", "class_id": res.Class.ID})
}

type submitAttendanceRequest struct {
	Code      string   `json:"code" binding:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

// SubmitAttendance marks the caller against the ACTIVE session carrying
// the submitted code, geofence permitting.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	var req submitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.att.Submit(c.Request.Context(), req.Code, studentID, req.Latitude, req.Longitude, req.Accuracy)
	if err != nil {
		h.fail(c, err)
		return
	}
	submissionsTotal.WithLabelValues(res.Status).Inc()

	h.notifySubmission(c, studentID, res)

	body := gin.H{
		"message":       res.Message,
		"session_id":    res.SessionID,
		"status":        res.Status,
		"within_radius": res.WithinRadius,
	}
	if res.Distance != nil {
		body["distance"] = *res.Distance
	}
	c.JSON(http.StatusOK, body)
}

// notifySubmission tells the student and the class's faculty about a
// submission outcome, best-effort.
func (h *Handler) notifySubmission(c *gin.Context, studentID int64, res attendance.SubmitResult) {
	ctx := c.Request.Context()
	d, err := h.classesRepo.ByID(ctx, res.ClassID)
	if err != nil || d == nil {
		return
	}

	student := notify.Notification{
		UserID:           studentID,
		Type:             notify.TypeAttendanceMarked,
		RelatedClassID:   &res.ClassID,
		RelatedSessionID: &res.SessionID,
	}
	if res.Status == attendance.StatusAbsent {
		student.Title = "Attendance: Outside Zone"
		student.Message = "You were outside the classroom radius for " + d.Name
		student.Priority = "high"
	} else {
		student.Title = "Attendance Confirmed"
		student.Message = "Your attendance has been recorded as " + res.Status + " for " + d.Name
		student.Priority = "low"
	}
	h.emitter.Emit(ctx, student)

	studentName := "A student"
	if u, err := h.usersRepo.ByID(ctx, studentID); err == nil && u != nil {
		studentName = u.Name
	}
	h.emitter.Emit(ctx, notify.Notification{
		UserID:           d.FacultyID,
		Type:             notify.TypeStudentMarked,
		Title:            "Student Attendance",
		Message:          studentName + " marked attendance for " + d.Name + " (" + res.Status + ")",
		Priority:         "low",
		RelatedClassID:   &res.ClassID,
		RelatedSessionID: &res.SessionID,
	})
}

// AttendanceHistory lists the caller's outcomes over a class's finished
// sessions.
func (h *Handler) AttendanceHistory(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "class_id")
	if !ok {
		return
	}
	history, err := h.attRepo.StudentHistory(c.Request.Context(), classID, studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// AttendancePercentage returns the caller's overall attendance rate.
func (h *Handler) AttendancePercentage(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	p, err := h.attRepo.StudentPercentage(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, gin.H{"attendance_percentage": nil, "message": "no attendance records yet"})
		return
	}
	c.JSON(http.StatusOK, p)
}
