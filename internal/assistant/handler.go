package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sampurna/itsupport/internal/api"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Ask handles POST /ask. Once the body is valid the response is always 200.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(validationMessage(err)))
		return
	}

	api.JSON(w, http.StatusOK, h.svc.Ask(r.Context(), ChannelHTTP, req))
}

// validationMessage names the offending field without echoing validator
// internals.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	switch field := verrs[0].StructField(); {
	case field == "Question":
		return "question too long"
	case strings.HasPrefix(field, "ChatHistory"):
		return "chat history too long"
	case field == "ImageData":
		return "image too large"
	default:
		return "invalid request"
	}
}
