// Package validation wraps go-playground/validator with the document rules
// used across the service.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/complyx/complyx/pkg/schema"
)

// MaxFileSize is the largest file whose metadata may be registered.
const MaxFileSize = 100 * 1024 * 1024

// AllowedExtensions are the file types accepted for documents.
var AllowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".txt": true, ".rtf": true, ".csv": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".zip": true, ".rar": true, ".7z": true, ".mp4": true, ".avi": true, ".mov": true,
}

var documentTypes = map[schema.DocumentType]bool{
	schema.TypePolicy: true, schema.TypeProcedure: true, schema.TypeForm: true, schema.TypeTemplate: true,
	schema.TypeReport: true, schema.TypeManual: true, schema.TypeCertificate: true, schema.TypeRegulation: true,
	schema.TypeAuditReport: true, schema.TypeRiskAssessment: true, schema.TypeIncidentReport: true,
	schema.TypeTrainingMaterial: true, schema.TypeOther: true,
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("doctype", validateDocType)
	_ = validate.RegisterValidation("allowedext", validateExtension)
}

func validateDocType(fl validator.FieldLevel) bool {
	return ValidDocumentType(schema.DocumentType(fl.Field().String()))
}

func validateExtension(fl validator.FieldLevel) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(fl.Field().String()))]
}

// ValidDocumentType reports whether t is a known document type.
func ValidDocumentType(t schema.DocumentType) bool {
	return documentTypes[t]
}

// Error lists field failures. It matches schema.ErrValidation.
type Error struct {
	Fields map[string]string
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return "validation failed: " + e.Msg
	}
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, rule))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *Error) Is(target error) bool {
	return target == schema.ErrValidation
}

// Errorf builds a free-form validation error.
func Errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Msg: err.Error()}
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Namespace()] = fe.Tag()
	}
	return out
}
