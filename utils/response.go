package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a standard response for a newly persisted resource.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "created", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// ValidationError replies 400 with field-level detail extracted from a binding error.
func ValidationError(ctx *gin.Context, code int, err error) {
	Respond(ctx, http.StatusBadRequest, code, "validation error", gin.H{"fields": FieldErrors(err)})
}

// FieldErrors flattens validator errors into a field -> message map keyed by the request field name.
func FieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fieldName(fe)] = describe(fe)
		}
		return fields
	}
	var named interface{ FieldName() string }
	if errors.As(err, &named) {
		fields[named.FieldName()] = "invalid value"
		return fields
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fields[typeErr.Field] = "expected " + typeErr.Type.String()
		return fields
	}
	fields["non_field_errors"] = err.Error()
	return fields
}

func fieldName(fe validator.FieldError) string {
	// Namespace looks like "PostCreateSchema.category_id" once a tag name func is registered
	name := fe.Field()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt", "gte":
		return "must be a positive integer"
	case "email":
		return "must be a valid email address"
	case "number":
		return "must be an integer"
	case "boolean":
		return "must be a boolean"
	default:
		return "invalid value"
	}
}

var fieldNamesOnce sync.Once

// UseRequestFieldNames makes validator report json/form names instead of Go struct field names.
func UseRequestFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}
