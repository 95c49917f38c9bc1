package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"push-backend/internal/notification/usecase"
	"push-backend/pkg/apperror"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{
		notificationUsecase: notificationUsecase,
	}
}

// callableRequest is the request body of a callable function
type callableRequest struct {
	Data usecase.DispatchRequest `json:"data"`
}

type callableError struct {
	Status  apperror.Kind `json:"status"`
	Message string        `json:"message"`
}

// Send dispatches a push notification using the callable protocol
// POST /api/notifications/send
func (h *NotificationHandler) Send(c *gin.Context) {
	var req callableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeCallableError(c, apperror.Wrap(apperror.KindInvalidArgument, err, "invalid request body"))
		return
	}

	resp, err := h.notificationUsecase.Dispatch(c.Request.Context(), req.Data)
	if err != nil {
		writeCallableError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": resp})
}

func writeCallableError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	switch kind {
	case apperror.KindInvalidArgument, apperror.KindFailedPrecondition:
	default:
		kind = apperror.KindInternal
	}

	c.JSON(apperror.HTTPStatus(kind), gin.H{
		"error": callableError{Status: kind, Message: err.Error()},
	})
}

// Create stores a pending notification for asynchronous delivery
// POST /api/notifications
func (h *NotificationHandler) Create(c *gin.Context) {
	var req usecase.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.notificationUsecase.Enqueue(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperror.HTTPStatus(apperror.KindOf(err)), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, n)
}

// GetByID returns a notification record
// GET /api/notifications/:id
func (h *NotificationHandler) GetByID(c *gin.Context) {
	n, err := h.notificationUsecase.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apperror.HTTPStatus(apperror.KindOf(err)), gin.H{"error": err.Error()})
		return
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, n)
}
