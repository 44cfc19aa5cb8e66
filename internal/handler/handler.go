// Package handler wires the HTTP surface to the domain services.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/classes"
	"rollcall/internal/config"
	"rollcall/internal/notify"
	"rollcall/internal/users"
)

type Handler struct {
	cfg         config.App
	users       *users.Service
	usersRepo   *users.Repository
	classes     *classes.Service
	classesRepo *classes.Repository
	att         *attendance.Service
	attRepo     *attendance.Repository
	notes       *notify.Repository
	emitter     *notify.Emitter
}

func New(
	cfg config.App,
	userSvc *users.Service, userRepo *users.Repository,
	classSvc *classes.Service, classRepo *classes.Repository,
	attSvc *attendance.Service, attRepo *attendance.Repository,
	notes *notify.Repository, emitter *notify.Emitter,
) *Handler {
	return &Handler{
		cfg:         cfg,
		users:       userSvc,
		usersRepo:   userRepo,
		classes:     classSvc,
		classesRepo: classRepo,
		att:         attSvc,
		attRepo:     attRepo,
		notes:       notes,
		emitter:     emitter,
	}
}

// fail maps domain errors onto HTTP statuses; anything unrecognized is a
// logged 500 with a generic body.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidCode),
		errors.Is(err, attendance.ErrLocationRequired),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, users.ErrInvalidRole),
		errors.Is(err, users.ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrSessionNotFound),
		errors.Is(err, classes.ErrClassNotFound),
		errors.Is(err, classes.ErrInvalidJoinCode):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, classes.ErrDuplicateName),
		errors.Is(err, classes.ErrJoinCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ownedClass loads a class and verifies the caller owns it. A class that
// exists but belongs to someone else reads as not found.
func (h *Handler) ownedClass(c *gin.Context, classID, facultyID int64) (*classes.Details, bool) {
	d, err := h.classesRepo.ByID(c.Request.Context(), classID)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if d == nil || d.FacultyID != facultyID {
		h.fail(c, classes.ErrClassNotFound)
		return nil, false
	}
	return d, true
}
