package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"calibration-backend/repository"
)

// ValidationError carries every rejected field with its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type validator struct {
	fields map[string]string
}

func (v *validator) add(field, message string) {
	if v.fields == nil {
		v.fields = map[string]string{}
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.add(field, message)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// Missing is one entity kind with the ids that did not resolve.
type Missing struct {
	Entity string `json:"entity"`
	IDs    []uint `json:"ids,omitempty"`
}

// NotFoundError lists every reference that failed to resolve.
type NotFoundError struct {
	Missing []Missing
}

func (e *NotFoundError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		if len(m.IDs) == 0 {
			parts = append(parts, m.Entity+" not found")
			continue
		}
		ids := make([]string, len(m.IDs))
		for i, id := range m.IDs {
			ids[i] = fmt.Sprint(id)
		}
		parts = append(parts, fmt.Sprintf("%s not found: %s", m.Entity, strings.Join(ids, ", ")))
	}
	return strings.Join(parts, "; ")
}

func (e *NotFoundError) add(entity string, id uint) {
	for i := range e.Missing {
		if e.Missing[i].Entity == entity {
			e.Missing[i].IDs = append(e.Missing[i].IDs, id)
			return
		}
	}
	e.Missing = append(e.Missing, Missing{Entity: entity, IDs: []uint{id}})
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// AuthError is a rejected credential: wrong password, unknown account or a bad OTP.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RenderError wraps any failure while drawing or writing a certificate document.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "render certificate: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// TransportError is a failed delivery on one channel.
type TransportError struct {
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send via %s: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func notFound(entity string, ids ...uint) error {
	return &NotFoundError{Missing: []Missing{{Entity: entity, IDs: ids}}}
}

// lookup converts a repository miss into a NotFoundError for entity.
func lookup[T any](v *T, err error, entity string, id uint) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", entity, id, err)
	}
	return v, nil
}
