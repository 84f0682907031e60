package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type provisionStruct struct {
	GroupID int64  `validate:"required"`
	TopicID int64  `validate:"required,gt=0"`
	Title   string `validate:"required,max=225"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&provisionStruct{GroupID: -1001, TopicID: 4, Title: "Morning"})
		assert.NoError(t, err)
	})

	t.Run("missing and out of range fields", func(t *testing.T) {
		err := vh.ValidateStruct(&provisionStruct{TopicID: -1, Title: strings.Repeat("x", 226)})
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3)
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&provisionStruct{})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "GroupID")
		assert.Contains(t, response.Details, "TopicID")
		assert.Contains(t, response.Details, "Title")
	})

	t.Run("non-validation error carries no details", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Conflict", http.StatusConflict, errors.New("duplicate"))

		var response ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Nil(t, response.Details)
	})
}

func TestDecodeJSONBody(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}

	t.Run("single object", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Evening"}`))
		assert.True(t, DecodeJSONBody(w, r, &dst))
		assert.Equal(t, "Evening", dst.Title)
	})

	t.Run("unknown field", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Evening"}`))
		assert.False(t, DecodeJSONBody(w, r, &dst))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("trailing object", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a"}{"title":"b"}`))
		assert.False(t, DecodeJSONBody(w, r, &dst))
		assert.Contains(t, w.Body.String(), "single JSON object")
	})
}
