package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/geocoder89/perfeval/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNames sync.Once

// useJSONFieldNames makes gin's validator report JSON field names, the same
// names the validation package uses for domain errors.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.UseJSONNames(v)
		}
	})
}

// BindJSON decodes the body into out and writes a 400 (or 413) on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	useJSONFieldNames()

	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "body_too_large",
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
		return false
	}

	RespondBadRequest(ctx, "Invalid request body", parseBindError(err))
	return false
}

func parseBindError(err error) interface{} {
	if verr, ok := validation.As(validation.FromValidator(err)); ok {
		return gin.H{"fields": verr.Fields}
	}

	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []validation.FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be of type " + typeError.Type.String(),
			}},
		}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}
