// Package api exposes the tracker's action-dispatch surface. Every request
// names an operation (reads via the action query parameter, writes via an
// action field in the JSON body) and every reply is the same envelope; the
// transport status stays 200 and callers inspect the body, as the original
// clients do. The envelope's kind field is the structured addition that lets
// them stop string-matching messages.
package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/queue"
	"classtrack/internal/worklocation"
)

// Error kinds carried in the envelope.
const (
	KindDuplicateMark    = "duplicate_mark"
	KindStudentNotFound  = "student_not_found"
	KindLocationNotFound = "location_not_found"
	KindInvalidAction    = "invalid_action"
	KindBadRequest       = "bad_request"
	KindStorage          = "storage"
)

// Envelope is the uniform response body.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Kind      string      `json:"kind,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Handler dispatches API actions to the domain services.
type Handler struct {
	attendance *attendance.Service
	locations  *worklocation.Service
	queue      queue.Queue
}

// NewHandler creates a handler. The queue may be nil when enrichment is
// disabled.
func NewHandler(att *attendance.Service, locs *worklocation.Service, q queue.Queue) *Handler {
	return &Handler{attendance: att, locations: locs, queue: q}
}

// Register mounts the dispatch endpoints on the router group.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api", h.dispatchRead)
	r.POST("/api", h.dispatchWrite)
}

func ok(c *gin.Context, message string, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func fail(c *gin.Context, kind, message string) {
	c.JSON(http.StatusOK, Envelope{
		Success:   false,
		Message:   message,
		Kind:      kind,
		Data:      gin.H{},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// failErr maps a service error onto the envelope taxonomy.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrDuplicateMark):
		fail(c, KindDuplicateMark, "Attendance already marked today")
	case errors.Is(err, worklocation.ErrNotFound):
		fail(c, KindLocationNotFound, "Work location not found")
	default:
		fail(c, KindStorage, "Error: "+err.Error())
	}
}

func (h *Handler) dispatchRead(c *gin.Context) {
	action := c.Query("action")
	studentID := c.Query("studentId")

	switch action {
	case "getStudentStats", "checkTodayAttendance", "getAllRecords", "verifyData", "getWorkLocations":
		if studentID == "" {
			fail(c, KindBadRequest, "studentId parameter is required")
			return
		}
	default:
		fail(c, KindInvalidAction, "Invalid action")
		return
	}

	ctx := c.Request.Context()
	switch action {
	case "getStudentStats":
		stats, err := h.attendance.Stats(ctx, studentID)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, "Stats retrieved", stats)

	case "checkTodayAttendance":
		marked, err := h.attendance.TodayMarked(ctx, studentID)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, "Today's status retrieved", gin.H{"marked": marked})

	case "getAllRecords":
		records, err := h.attendance.Records(ctx, studentID)
		if err != nil {
			failErr(c, err)
			return
		}
		if records == nil {
			records = []attendance.RecordView{}
		}
		ok(c, "Records retrieved", gin.H{"records": records})

	case "verifyData":
		result, err := h.attendance.Verify(ctx, studentID)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, "Verification complete", result)

	case "getWorkLocations":
		locs, err := h.locations.List(ctx, studentID)
		if err != nil {
			failErr(c, err)
			return
		}
		if locs == nil {
			locs = []worklocation.Location{}
		}
		ok(c, "Work locations retrieved", gin.H{"locations": locs})
	}
}

// writeRequest is the union body for all write actions; each action reads
// the fields it needs.
type writeRequest struct {
	Action string `json:"action"`

	StudentID     string             `json:"studentId"`
	StudentName   string             `json:"studentName"`
	Location      *attendance.LatLng `json:"location"`
	Weather       string             `json:"weather"`
	SignatureData string             `json:"signatureData"`
	PhotoData     string             `json:"photoData"`

	Name         *string  `json:"name"`
	Email        *string  `json:"email"`
	PresentCount *int     `json:"presentCount"`
	AbsentCount  *int     `json:"absentCount"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`

	LocationID string `json:"locationId"`
}

func (h *Handler) dispatchWrite(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, KindBadRequest, "Error: invalid request body")
		return
	}

	switch req.Action {
	case "markAttendance":
		h.markAttendance(c, req)
	case "updateStudent":
		h.updateStudent(c, req)
	case "addWorkLocation":
		h.addWorkLocation(c, req)
	case "deleteWorkLocation":
		h.deleteWorkLocation(c, req)
	default:
		fail(c, KindInvalidAction, "Invalid action")
	}
}

func (h *Handler) markAttendance(c *gin.Context, req writeRequest) {
	if req.StudentID == "" {
		fail(c, KindBadRequest, "studentId is required")
		return
	}
	mark := attendance.MarkRequest{
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		Weather:          req.Weather,
		SignaturePayload: req.SignatureData,
		PhotoPayload:     req.PhotoData,
	}
	if req.Location != nil {
		mark.Location = *req.Location
	}

	result, err := h.attendance.Mark(c.Request.Context(), mark)
	if err != nil {
		failErr(c, err)
		return
	}

	if h.queue != nil {
		msg := queue.Message{Type: "checkin", RecordID: result.Record.ID}
		if err := h.queue.Publish(c.Request.Context(), msg); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}

	ok(c, "Attendance marked", result)
}

func (h *Handler) updateStudent(c *gin.Context, req writeRequest) {
	if req.StudentID == "" {
		fail(c, KindBadRequest, "studentId is required")
		return
	}
	entry, err := h.attendance.UpdateStudent(c.Request.Context(), attendance.UpdateStudentRequest{
		StudentID:    req.StudentID,
		Name:         req.Name,
		Email:        req.Email,
		PresentCount: req.PresentCount,
		AbsentCount:  req.AbsentCount,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, "Student updated", entry)
}

func (h *Handler) addWorkLocation(c *gin.Context, req writeRequest) {
	if req.StudentID == "" || req.Name == nil || *req.Name == "" {
		fail(c, KindBadRequest, "studentId and name are required")
		return
	}
	var lat, lng float64
	if req.Lat != nil {
		lat = *req.Lat
	}
	if req.Lng != nil {
		lng = *req.Lng
	}
	loc, err := h.locations.Add(c.Request.Context(), req.StudentID, *req.Name, lat, lng)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, "Work location added", loc)
}

func (h *Handler) deleteWorkLocation(c *gin.Context, req writeRequest) {
	if req.LocationID == "" {
		fail(c, KindBadRequest, "locationId is required")
		return
	}
	if err := h.locations.Delete(c.Request.Context(), req.LocationID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, "Work location deleted", gin.H{"locationId": req.LocationID})
}
