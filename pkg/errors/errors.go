// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeRegistryProviderNotFound   Code = "registry.provider.not_found"
	CodeRegistryCapabilityInvalid  Code = "registry.capability.invalid_value"
	CodeRegistryCapabilityMismatch Code = "registry.capability.mismatch"
	CodeRegistryDescriptorConflict Code = "registry.descriptor.conflict"
	CodeRegistryInitFailure        Code = "registry.init.failure"
	CodeRegistryShutdownFailure    Code = "registry.shutdown.failure"

	CodeStoreBackendUnavailable Code = "store.backend.unavailable"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreInvalidInput       Code = "store.invalid_input"
	CodeStoreDocumentNotFound   Code = "store.document.get.not_found"

	CodeEmbedRequestInvalid  Code = "embed.request.invalid_input"
	CodeEmbedResponseInvalid Code = "embed.response.invalid_value"
	CodeEmbedUpstreamFailure Code = "embed.upstream.failure"

	CodeChunkConfigInvalid Code = "chunk.config.invalid_value"

	CodeIndexDimensionInvalid Code = "index.dimension.invalid_value"

	CodeIngestHandlerNotFound Code = "ingest.handler.not_found"
	CodeIngestGraphPartial    Code = "ingest.graph.partial_failure"
	CodeIngestDocumentFailure Code = "ingest.document.failure"

	CodeQueryRequestInvalid Code = "query.request.invalid_input"

	CodeProviderConfigInvalid   Code = "provider.config.invalid_value"
	CodeProviderRequestInvalid  Code = "provider.request.invalid_input"
	CodeProviderResponseInvalid Code = "provider.response.invalid_value"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"

	CodeHandlerParseFailure    Code = "handler.parse.failure"
	CodeHandlerTypeUnsupported Code = "handler.type.unsupported"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid_input"

	CodeInternalFailure Code = "internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldCapability(value string) Attr {
	return Field("capability", value)
}

func FieldDocumentID(value string) Attr {
	return Field("document_id", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsPartialFailure(err error) bool {
	return reason(CodeOf(err)) == "partial_failure"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func Join(errs ...error) error {
	return oops.Code(CodeInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
