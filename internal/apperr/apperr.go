// Package apperr is the error taxonomy shared by the workflow, the repositories
// and the transport layer. Kinds are gRPC status codes so that Firestore errors,
// which already carry a status, need no translation.
package apperr

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is the ErrorInfo domain attached to reasoned errors.
const Domain = "temple-services"

// Machine readable reasons surfaced to clients.
const (
	ReasonAlreadyRegistered       = "ALREADY_REGISTERED"
	ReasonServiceHasRegistrations = "SERVICE_HAS_REGISTRATIONS"
	ReasonServiceFull             = "SERVICE_FULL"
	ReasonAlreadyMember           = "ALREADY_MEMBER"
	ReasonLeaderNotesOnly         = "LEADER_NOTES_ONLY"
)

func New(code codes.Code, format string, args ...any) error {
	return status.Errorf(code, format, args...)
}

// WithReason builds a status error carrying an ErrorInfo detail.
func WithReason(code codes.Code, reason, format string, args ...any) error {
	st := status.Newf(code, format, args...)
	withDetails, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: Domain})
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}

func InvalidArgument(format string, args ...any) error {
	return New(codes.InvalidArgument, format, args...)
}

func NotFound(format string, args ...any) error {
	return New(codes.NotFound, format, args...)
}

func AlreadyExists(format string, args ...any) error {
	return New(codes.AlreadyExists, format, args...)
}

func PermissionDenied(format string, args ...any) error {
	return New(codes.PermissionDenied, format, args...)
}

func FailedPrecondition(format string, args ...any) error {
	return New(codes.FailedPrecondition, format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return New(codes.Unauthenticated, format, args...)
}

// Code returns the kind of err, looking through fmt.Errorf wrapping.
// Errors without a status are Unknown.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

// Is reports whether err is of the given kind.
func Is(err error, code codes.Code) bool {
	return err != nil && Code(err) == code
}

// Reason returns the ErrorInfo reason attached to err, if any.
func Reason(err error) string {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		return ""
	}
	for _, d := range se.GRPCStatus().Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}

// Message returns the status message without the "rpc error: code = ..." prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Message()
	}
	return err.Error()
}

// Wrap keeps the kind of err while prefixing its message with context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
