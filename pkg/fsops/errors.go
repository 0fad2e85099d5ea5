// Copyright 2025 EGDesk Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsops

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures for the protocol layer.
type Kind string

const (
	KindAccessDenied Kind = "access_denied"
	KindNotFound     Kind = "not_found"
	KindIO           Kind = "io_error"
	KindValidation   Kind = "validation_error"
	KindOperation    Kind = "operation_error"
)

// OpError is the error type returned by every Engine operation.
type OpError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or KindIO for foreign errors.
func KindOf(err error) Kind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	return KindIO
}

func accessDenied(format string, args ...any) *OpError {
	return &OpError{Kind: KindAccessDenied, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *OpError {
	return &OpError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ioError(err error, format string, args ...any) *OpError {
	return &OpError{Kind: KindIO, Message: fmt.Sprintf(format, args...), Err: err}
}

func validationError(format string, args ...any) *OpError {
	return &OpError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func operationError(format string, args ...any) *OpError {
	return &OpError{Kind: KindOperation, Message: fmt.Sprintf(format, args...)}
}
