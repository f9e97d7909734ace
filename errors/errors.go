/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a requested entity does not exist in the backend
	ErrNotFound = errors.New("entity not found")

	// ErrUnsupportedOperation is returned when a provider cannot route an operation for an entity type
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrFilterPolicyViolation is returned when a filter cannot be applied and the policy says fail
	ErrFilterPolicyViolation = errors.New("filter policy violation")

	// ErrTransport is returned when the transport failed or the backend answered with an error status
	ErrTransport = errors.New("transport failure")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrRelationship is returned when a related entity cannot be hydrated
	ErrRelationship = errors.New("relationship hydration failed")
)

// EntityNotFoundError represents an error when an entity is not found
type EntityNotFoundError struct {
	Type      string
	Key       string
	Operation string
}

func (e *EntityNotFoundError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s %s: %s with key %q not found", e.Operation, e.Type, e.Type, e.Key)
	}
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *EntityNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnsupportedOperationError represents an operation a provider cannot perform for a type
type UnsupportedOperationError struct {
	Type      string
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: unsupported operation (%s)", e.Operation, e.Type, e.Reason)
	}
	return fmt.Sprintf("%s %s: unsupported operation", e.Operation, e.Type)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// FilterPolicyViolationError lists the filter keys a provider could not apply
type FilterPolicyViolationError struct {
	Type      string
	Operation string
	Filters   []string
}

func (e *FilterPolicyViolationError) Error() string {
	return fmt.Sprintf("%s %s: filter not supported by provider: %s",
		e.Operation, e.Type, strings.Join(e.Filters, ", "))
}

func (e *FilterPolicyViolationError) Is(target error) bool {
	return target == ErrFilterPolicyViolation
}

// TransportError wraps a failed backend call. StatusCode is zero for network errors.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: backend returned status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether the call failed before a response was received
func (e *TransportError) IsNetwork() bool {
	return e.StatusCode == 0
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RelationshipError reports a relationship of an existing entity that could not
// be hydrated. A missing related record is reachable through Err only, so the
// owner is never reported as not found.
type RelationshipError struct {
	Type         string
	Key          string
	Relationship string
	Err          error
}

func (e *RelationshipError) Error() string {
	return fmt.Sprintf("hydrating %s(%s).%s: %v", e.Type, e.Key, e.Relationship, e.Err)
}

func (e *RelationshipError) Is(target error) bool {
	return target == ErrRelationship
}

func (e *RelationshipError) Unwrap() error {
	if errors.Is(e.Err, ErrNotFound) {
		return nil
	}
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new EntityNotFoundError
func NewNotFoundError(operation, entityType, key string) error {
	return &EntityNotFoundError{Type: entityType, Key: key, Operation: operation}
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError
func NewUnsupportedOperationError(operation, entityType, reason string) error {
	return &UnsupportedOperationError{Type: entityType, Operation: operation, Reason: reason}
}

// NewFilterPolicyViolationError creates a new FilterPolicyViolationError
func NewFilterPolicyViolationError(operation, entityType string, filters []string) error {
	return &FilterPolicyViolationError{Type: entityType, Operation: operation, Filters: filters}
}

// NewTransportError creates a TransportError for a failed request
func NewTransportError(method, url string, statusCode int, err error) error {
	return &TransportError{Method: method, URL: url, StatusCode: statusCode, Err: err}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewRelationshipError creates a new RelationshipError
func NewRelationshipError(entityType, key, relationship string, err error) error {
	return &RelationshipError{Type: entityType, Key: key, Relationship: relationship, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnsupportedOperation checks if an error is an unsupported operation error
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsFilterPolicyViolation checks if an error is a filter policy violation
func IsFilterPolicyViolation(err error) bool {
	return errors.Is(err, ErrFilterPolicyViolation)
}

// IsTransport checks if an error is a transport failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsRelationship checks if an error is a relationship hydration failure
func IsRelationship(err error) bool {
	return errors.Is(err, ErrRelationship)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
